package diagnostics

import (
	"log/slog"
	"strings"
)

// Bag collects diagnostics in report order. When a logger is set every record
// is also logged at its severity.
type Bag struct {
	logger      *slog.Logger
	diagnostics []Diagnostic
	counts      [Error + 1]int
}

func NewBag(logger *slog.Logger) *Bag {
	return &Bag{logger: logger}
}

func (b *Bag) Report(d Diagnostic) {
	b.diagnostics = append(b.diagnostics, d)
	if d.Severity >= Debug && d.Severity <= Error {
		b.counts[d.Severity]++
	}
	if b.logger != nil {
		log(b.logger, d)
	}
}

func (b *Bag) Diagnostics() []Diagnostic {
	return b.diagnostics
}

// Count returns the number of diagnostics with severity s.
func (b *Bag) Count(s Severity) int {
	if s < Debug || s > Error {
		return 0
	}
	return b.counts[s]
}

func (b *Bag) HasErrors() bool {
	return b.counts[Error] > 0
}

func (b *Bag) Len() int {
	return len(b.diagnostics)
}

func (b *Bag) String() string {
	lines := make([]string, len(b.diagnostics))
	for i, d := range b.diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
