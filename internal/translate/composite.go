package translate

import "strings"

// Line is one translated variant appended to a composite message.
type Line struct {
	Label string
	Text  string
}

// Compose builds the single persisted/broadcast string: the original
// text followed by one labeled line per translation.
func Compose(original string, lines []Line) string {
	if len(lines) == 0 {
		return original
	}

	var b strings.Builder
	b.WriteString(original)
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(line.Label)
		b.WriteString(":[")
		b.WriteString(line.Text)
		b.WriteString("]")
	}
	return b.String()
}
