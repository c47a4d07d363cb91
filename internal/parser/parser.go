package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/OCAP2/waypoints/pkg/core"
)

// Format selects which share-string syntax a bulk paste is parsed with.
type Format int

const (
	// FormatVoxelMap is the bracketed key:value syntax, e.g. [name:a, x:1, y:2, z:3, dim:minecraft:overworld].
	FormatVoxelMap Format = iota + 1
	// FormatXaero is the Xaero's Minimap share string, e.g. xaero-waypoint:a:A:1:2:3:6:false:0:Internal-overworld-waypoints.
	FormatXaero
)

func (f Format) String() string {
	switch f {
	case FormatVoxelMap:
		return "voxel"
	case FormatXaero:
		return "xaero"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat resolves a format name as used on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "voxel", "voxelmap", "bracket":
		return FormatVoxelMap, nil
	case "xaero":
		return FormatXaero, nil
	default:
		return 0, fmt.Errorf("unknown share format: %s", name)
	}
}

// Result is a successfully decoded waypoint and the number of characters consumed.
type Result struct {
	Waypoint  core.Waypoint
	CharsRead int
}

// Parser converts share strings into waypoints.
// It has no dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse decodes text with the given format.
func (p *Parser) Parse(format Format, text string) (Result, error) {
	var (
		res Result
		err error
	)
	switch format {
	case FormatVoxelMap:
		res, err = ParseBracketed(text)
	case FormatXaero:
		res, err = ParseXaero(text)
	default:
		return res, fmt.Errorf("unsupported share format: %s", format)
	}

	if err != nil {
		p.logger.Debug("Failed to parse waypoint", "format", format.String(), "error", err)
		return res, err
	}
	p.logger.Debug("Parsed waypoint", "format", format.String(), "name", res.Waypoint.Name)
	return res, nil
}

var keyValuePattern = regexp.MustCompile(`[\[ ](.*?):(.*?)[,\]]`)

var requiredKeys = []string{"name", "x", "y", "z", "dim"}

// ParseBracketed decodes the bracketed key:value syntax.
// The first occurrence of a key wins; unknown keys are ignored.
func ParseBracketed(text string) (Result, error) {
	var res Result

	fields := map[string]string{}
	end := 0
	for _, m := range keyValuePattern.FindAllStringSubmatchIndex(text, -1) {
		key, value := text[m[2]:m[3]], text[m[4]:m[5]]
		if _, ok := fields[key]; !ok {
			fields[key] = value
		}
		end = m[1]
	}
	read := utf8.RuneCountInString(text[:end])

	if len(fields) == 0 {
		return res, newParseError(KindParseFailed, ReasonNoMatch, read, nil)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return res, newParseError(KindParseFailed, ReasonMissingKeys, read, nil)
		}
	}

	w, err := core.NewWaypoint(fields["name"], fields["x"], fields["y"], fields["z"], fields["dim"])
	if err != nil {
		return res, fromWaypointError(err, read)
	}

	res.Waypoint = w
	res.CharsRead = read
	return res, nil
}

const (
	xaeroPrefix         = "xaero-waypoint:"
	xaeroFieldCount     = 9
	xaeroEnvelopePrefix = "Internal-"
	xaeroEnvelopeSuffix = "-waypoints"
)

// ParseXaero decodes a Xaero's Minimap share string:
// xaero-waypoint:name:initial:x:y:z:color:disabled:type:Internal-<dim>-waypoints
func ParseXaero(text string) (Result, error) {
	var res Result
	read := 0

	if !strings.HasPrefix(text, xaeroPrefix) {
		return res, newParseError(KindFormatInvalid, ReasonXaeroFormat, read, nil)
	}
	read += utf8.RuneCountInString(xaeroPrefix)

	body := text[len(xaeroPrefix):]
	fields := strings.Split(body, ":")
	if len(fields) != xaeroFieldCount {
		return res, newParseError(KindFormatInvalid, ReasonXaeroFormat, read, nil)
	}

	tag := fields[8]
	if !strings.HasPrefix(tag, xaeroEnvelopePrefix) || !strings.HasSuffix(tag, xaeroEnvelopeSuffix) {
		return res, newParseError(KindDimensionEnvelopeInvalid, ReasonXaeroEnvelope, read, nil)
	}
	// "Internal-waypoints" shares its hyphen between prefix and suffix.
	var middle string
	if len(tag) >= len(xaeroEnvelopePrefix)+len(xaeroEnvelopeSuffix) {
		middle = tag[len(xaeroEnvelopePrefix) : len(tag)-len(xaeroEnvelopeSuffix)]
	}
	dim := core.Namespace + strings.ReplaceAll(middle, "-", "_")

	name := core.UnescapeXaeroColons(fields[0])
	w, err := core.NewWaypoint(name, fields[2], fields[3], fields[4], dim)
	if err != nil {
		return res, fromWaypointError(err, read)
	}

	res.Waypoint = w
	res.CharsRead = read + utf8.RuneCountInString(body)
	return res, nil
}

func fromWaypointError(err error, read int) *ParseError {
	switch {
	case errors.Is(err, core.ErrCoordinateFormatInvalid):
		return newParseError(KindCoordinateFormatInvalid, ReasonCoordinates, read, err)
	case errors.Is(err, core.ErrDimensionUnrecognized):
		return newParseError(KindDimensionUnrecognized, ReasonDimension, read, err)
	case errors.Is(err, core.ErrNameEmpty):
		return newParseError(KindParseFailed, ReasonNameEmpty, read, err)
	default:
		return newParseError(KindParseFailed, ReasonMissingKeys, read, err)
	}
}
