package tui

import (
	"strings"

	"github.com/rivo/tview"
)

// displayText prepares message text for a tview cell: emoji modifiers that
// tcell renders badly are removed, the attachment marker becomes a visible
// tag, and tview style tags are escaped.
func displayText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\uFFFC':
			b.WriteString("<attachment>")
		case dropRune(r):
		default:
			b.WriteRune(r)
		}
	}
	return tview.Escape(b.String())
}

func dropRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	default:
		return false
	}
}
