package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/OCAP2/waypoints/pkg/core"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportGzip   bool
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every waypoint as share strings or client commands",
	Long: `Writes one line per waypoint in insertion order.

Formats:
  plain  [name:.., x:.., y:.., z:.., dim:.., world:..]
  voxel  /newWaypoint command for VoxelMap
  xaero  xaero_waypoint_add command for Xaero's Minimap`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "plain", "output format: plain, voxel or xaero")
	exportCmd.Flags().BoolVar(&exportGzip, "gzip", false, "gzip the output")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	render, err := exportRenderer(exportFormat)
	if err != nil {
		return err
	}

	st, backend, err := openStore()
	if err != nil {
		return err
	}
	defer closeBackend(backend)

	if exportOutput == "" {
		n, err := exportTo(cmd.OutOrStdout(), exportGzip, st.All(), st.World(), render)
		if err != nil {
			return err
		}
		Logger.Info("Exported waypoints", "count", n, "format", exportFormat)
		return nil
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	n, err := exportTo(f, exportGzip, st.All(), st.World(), render)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("error closing file: %w", closeErr)
	}
	if err != nil {
		return err
	}
	Logger.Info("Exported waypoints", "count", n, "format", exportFormat, "output", exportOutput)
	return nil
}

// exportTo writes the waypoints to out, gzipped when compress is set. The
// gzip footer is written before returning.
func exportTo(out io.Writer, compress bool, ws []core.Waypoint, world string, render renderer) (int, error) {
	if !compress {
		return writeWaypoints(out, ws, world, render)
	}

	gzWriter := gzip.NewWriter(out)
	n, err := writeWaypoints(gzWriter, ws, world, render)
	if closeErr := gzWriter.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("error writing gzip: %w", closeErr)
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

type renderer func(w core.Waypoint, world string) string

func exportRenderer(format string) (renderer, error) {
	switch format {
	case "plain":
		return core.Waypoint.Format, nil
	case "voxel":
		return core.Waypoint.VoxelMapCommand, nil
	case "xaero":
		return func(w core.Waypoint, _ string) string { return w.XaeroCommand() }, nil
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

func writeWaypoints(out io.Writer, ws []core.Waypoint, world string, render renderer) (int, error) {
	w := bufio.NewWriter(out)
	for _, wp := range ws {
		if _, err := fmt.Fprintln(w, render(wp, world)); err != nil {
			return 0, fmt.Errorf("error writing waypoints: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("error writing waypoints: %w", err)
	}
	return len(ws), nil
}
