package docs

import (
	"strings"
	"time"
)

// TimestampLayout formats the envelope header time as YYYY-MM-DD HH:MM:SS.
const TimestampLayout = "2006-01-02 15:04:05"

var separator = strings.Repeat("=", 80)

// FormatEnvelope wraps content with the separator and header lines
// written ahead of every append.
func FormatEnvelope(content, displayName string, at time.Time) string {
	var b strings.Builder
	b.Grow(len(content) + 4*len(separator))

	b.WriteString("\n\n")
	b.WriteString(separator)
	b.WriteString("\n")
	b.WriteString("Added by ")
	b.WriteString(displayName)
	b.WriteString(" daemon at ")
	b.WriteString(at.Format(TimestampLayout))
	b.WriteString("\n")
	b.WriteString("\n\n")
	b.WriteString(separator)
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n")
	b.WriteString(separator)
	b.WriteString("\n\n")

	return b.String()
}
