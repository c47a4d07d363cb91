// Package util provides helpers for Minecraft chat text.
package util

import "strings"

// ColorPrefix starts a two-character formatting code such as §a or §r.
const ColorPrefix = '§'

// Reset is the formatting code that clears colour and style.
const Reset = 'r'

// StripColors removes every §x formatting code from s.
func StripColors(s string) string {
	if !strings.ContainsRune(s, ColorPrefix) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	skip := false
	for _, r := range s {
		switch {
		case skip:
			skip = false
		case r == ColorPrefix:
			skip = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Segment is a run of text rendered with one formatting code.
type Segment struct {
	Code rune // Reset when no code is active
	Text string
}

// SplitColors splits s at formatting codes. Empty runs are dropped and a
// trailing lone § is discarded.
func SplitColors(s string) []Segment {
	var out []Segment
	code := Reset
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			out = append(out, Segment{Code: code, Text: b.String()})
			b.Reset()
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != ColorPrefix {
			b.WriteRune(runes[i])
			continue
		}
		flush()
		if i+1 < len(runes) {
			code = runes[i+1]
			i++
		}
	}
	flush()
	return out
}
