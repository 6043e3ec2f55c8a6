package preprocessor

import (
	"github.com/fwessels/vpp/internal/diagnostics"
	"github.com/fwessels/vpp/internal/tokenizer"
	"github.com/fwessels/vpp/internal/verilog"
)

// parseDefine reads the rest of a `define directive from s. It returns nil,
// after reporting why, when the directive is malformed.
func parseDefine(directive tokenizer.Token, s *tokenizer.Stream, ctx *Context) *Macro {
	s.SkipWhile(verilog.Whitespace)
	name, ok := s.Pop()
	if !ok || name.Kind == verilog.Newline {
		ctx.report(diagnostics.Warning, "define", directive.Location, "without argument")
		return nil
	}
	if name.Kind != verilog.Identifier {
		ctx.report(diagnostics.Warning, "define", name.Location, "invalid name")
		return nil
	}

	var (
		params   []string
		defaults map[string][]tokenizer.Token
	)
	next, err := s.Current()
	switch {
	case err != nil:
		return &Macro{Name: name.Value}
	case next.Kind == verilog.Newline:
		s.Pop()
		return &Macro{Name: name.Value}
	case next.Kind == verilog.Whitespace:
		s.Pop()
	case next.Kind == verilog.LPar:
		s.Pop()
		if params, defaults, ok = parseParams(s); !ok {
			ctx.report(diagnostics.Debug, "define", name.Location, "broken argument list of %s", name.Value)
			return nil
		}
	}

	s.SkipWhile(verilog.Whitespace)
	start := s.Index()
	end := s.SkipUntil(verilog.Newline)
	s.Pop()

	m, err := NewMacro(name.Value, s.Slice(start, end), params, defaults)
	if err != nil {
		ctx.report(diagnostics.Debug, "define", name.Location, "%v", err)
		return nil
	}
	return m
}

// parseParams reads a parameter list after its opening paren, up to and
// including the closing one. An identifier followed by = takes the next
// token as its default; everything else between parameters is skipped.
func parseParams(s *tokenizer.Stream) (params []string, defaults map[string][]tokenizer.Token, ok bool) {
	for {
		tok, ok := s.Pop()
		if !ok {
			return nil, nil, false
		}
		switch tok.Kind {
		case verilog.RPar:
			return params, defaults, true
		case verilog.Identifier:
			params = append(params, tok.Value)
			if next, err := s.Current(); err != nil || next.Kind != verilog.Equal {
				continue
			}
			s.Pop()
			def, ok := s.Pop()
			if !ok {
				return nil, nil, false
			}
			if defaults == nil {
				defaults = map[string][]tokenizer.Token{}
			}
			defaults[tok.Value] = []tokenizer.Token{def}
		}
	}
}
