// Package diagnostics collects the structured records produced for malformed
// directives.
package diagnostics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwessels/vpp/internal/tokenizer"
)

type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Level maps the severity onto a slog level.
func (s Severity) Level() slog.Level {
	switch s {
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Diagnostic describes one malformed directive or macro use. Description is
// the rendered location, see tokenizer.Describe.
type Diagnostic struct {
	Severity    Severity
	Directive   string
	Message     string
	Location    *tokenizer.Location
	Description string
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: `%s: %s", d.Severity, d.Directive, d.Message)
	if d.Description != "" {
		s += "\n" + d.Description
	}
	return s
}

// Sink receives diagnostics as they are produced.
type Sink interface {
	Report(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

func logAttrs(d Diagnostic) []slog.Attr {
	attrs := []slog.Attr{slog.String("directive", d.Directive)}
	if d.Location != nil {
		attrs = append(attrs, slog.String("location", d.Location.String()))
	}
	if d.Description != "" {
		attrs = append(attrs, slog.String("context", d.Description))
	}
	return attrs
}

func log(logger *slog.Logger, d Diagnostic) {
	logger.LogAttrs(context.Background(), d.Severity.Level(), d.Message, logAttrs(d)...)
}
