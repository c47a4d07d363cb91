package host

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/OCAP2/waypoints/internal/util"
)

// palette maps Minecraft colour codes to their RGB values.
var palette = map[rune]lipgloss.Color{
	'0': lipgloss.Color("#000000"),
	'1': lipgloss.Color("#0000AA"),
	'2': lipgloss.Color("#00AA00"),
	'3': lipgloss.Color("#00AAAA"),
	'4': lipgloss.Color("#AA0000"),
	'5': lipgloss.Color("#AA00AA"),
	'6': lipgloss.Color("#FFAA00"),
	'7': lipgloss.Color("#AAAAAA"),
	'8': lipgloss.Color("#555555"),
	'9': lipgloss.Color("#5555FF"),
	'a': lipgloss.Color("#55FF55"),
	'b': lipgloss.Color("#55FFFF"),
	'c': lipgloss.Color("#FF5555"),
	'd': lipgloss.Color("#FF55FF"),
	'e': lipgloss.Color("#FFFF55"),
	'f': lipgloss.Color("#FFFFFF"),
}

// Styler renders § formatting codes for a terminal.
type Styler struct {
	renderer *lipgloss.Renderer
	enabled  bool
}

// NewStyler creates a Styler for out. With enabled false, codes are stripped.
func NewStyler(out io.Writer, enabled bool) *Styler {
	return &Styler{renderer: lipgloss.NewRenderer(out), enabled: enabled}
}

// Render converts formatting codes to terminal styling, or strips them.
func (s *Styler) Render(text string) string {
	if !s.enabled {
		return util.StripColors(text)
	}

	var b strings.Builder
	style := s.renderer.NewStyle()
	for _, seg := range util.SplitColors(text) {
		style = s.apply(style, seg.Code)
		b.WriteString(style.Render(seg.Text))
	}
	return b.String()
}

func (s *Styler) apply(style lipgloss.Style, code rune) lipgloss.Style {
	code = toLower(code)
	if c, ok := palette[code]; ok {
		// a colour code also resets formatting
		return s.renderer.NewStyle().Foreground(c)
	}
	switch code {
	case 'l':
		return style.Bold(true)
	case 'm':
		return style.Strikethrough(true)
	case 'n':
		return style.Underline(true)
	case 'o':
		return style.Italic(true)
	default:
		return s.renderer.NewStyle()
	}
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
