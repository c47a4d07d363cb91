package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OCAP2/waypoints/internal/parser"
	"github.com/OCAP2/waypoints/pkg/core"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add waypoints from a file of share strings",
	Long: `Parses every non-empty line of the file as a share string and adds the
valid ones in a single save. Files ending in .gz are decompressed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "voxel", "share format: voxel or xaero")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := parser.ParseFormat(importFormat)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(args[0], ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("error reading gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	ws, failures, err := parseLines(parser.NewParser(Logger), format, r)
	if err != nil {
		return err
	}
	for _, msg := range failures {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}

	st, backend, err := openStore()
	if err != nil {
		return err
	}
	defer closeBackend(backend)

	n, err := st.Import(ws)
	if err != nil {
		return err
	}
	Logger.Info("Imported waypoints", "file", args[0], "added", n, "failed", len(failures))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d waypoints, %d lines failed\n", n, len(failures))
	return nil
}

// parseLines decodes each non-blank line, collecting a message per failure.
func parseLines(p *parser.Parser, format parser.Format, r io.Reader) ([]core.Waypoint, []string, error) {
	var (
		ws       []core.Waypoint
		failures []string
	)
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := p.Parse(format, line)
		if err != nil {
			failures = append(failures, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		ws = append(ws, res.Waypoint)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading input: %w", err)
	}
	return ws, failures, nil
}
