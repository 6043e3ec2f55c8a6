package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FileReader is the subset of source.Source needed to describe locations.
type FileReader interface {
	Exists(path string) bool
	ReadAll(path string) (string, error)
}

// Describe renders loc as a header line, the source line and a ~ underline
// below the span. The underline is clipped to the first line of the span.
func Describe(loc *Location, files FileReader) string {
	if loc == nil {
		return "unknown location"
	}
	if files == nil || !files.Exists(loc.Source) {
		return fmt.Sprintf("unknown location in %s", loc.Source)
	}
	contents, err := files.ReadAll(loc.Source)
	if err != nil {
		return fmt.Sprintf("unknown location in %s", loc.Source)
	}

	lstart := 0
	for lineno, line := range strings.Split(contents, "\n") {
		lend := lstart + utf8.RuneCountInString(line)
		if lstart <= loc.Start && loc.Start <= lend {
			width := max(1, min(lend-1, loc.End)-loc.Start+1)
			var b strings.Builder
			fmt.Fprintf(&b, "from %s line %d:\n", loc.Source, lineno+1)
			b.WriteString(line)
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(" ", loc.Start-lstart))
			b.WriteString(strings.Repeat("~", width))
			return b.String()
		}
		lstart = lend + 1
	}
	return fmt.Sprintf("unknown location in %s", loc.Source)
}
