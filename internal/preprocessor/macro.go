package preprocessor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fwessels/vpp/internal/tokenizer"
	"github.com/fwessels/vpp/internal/verilog"
)

var (
	ErrMissingArgument = errors.New("no actual and no default for parameter")
	ErrBrokenActuals   = errors.New("broken macro argument list")
)

// Macro is one `define. It must not be modified once installed in a
// definitions table; redefinition replaces the entry.
type Macro struct {
	Name     string
	Params   []string
	Defaults map[string][]tokenizer.Token
	Body     []tokenizer.Token
}

// NewMacro checks that params are distinct and that every default belongs to
// a declared parameter.
func NewMacro(name string, body []tokenizer.Token, params []string, defaults map[string][]tokenizer.Token) (*Macro, error) {
	for i, p := range params {
		if slices.Contains(params[:i], p) {
			return nil, fmt.Errorf("macro %s: duplicate parameter %q", name, p)
		}
	}
	for p := range defaults {
		if !slices.Contains(params, p) {
			return nil, fmt.Errorf("macro %s: default for undeclared parameter %q", name, p)
		}
	}
	return &Macro{Name: name, Params: params, Defaults: defaults, Body: body}, nil
}

func (m *Macro) NumParams() int {
	return len(m.Params)
}

func (m *Macro) String() string {
	return fmt.Sprintf("Macro(%s, %v, %v, %v)", m.Name, m.Params, m.Defaults, m.Body)
}

// Expand substitutes actuals positionally for parameter identifiers in the
// body. A parameter beyond the actuals takes its default; without one the
// expansion fails with ErrMissingArgument.
func (m *Macro) Expand(actuals [][]tokenizer.Token) ([]tokenizer.Token, error) {
	if len(m.Params) == 0 {
		return slices.Clone(m.Body), nil
	}
	var out []tokenizer.Token
	for _, tok := range m.Body {
		idx := -1
		if tok.Kind == verilog.Identifier {
			idx = slices.Index(m.Params, tok.Value)
		}
		if idx < 0 {
			out = append(out, tok)
			continue
		}
		if idx < len(actuals) {
			out = append(out, actuals[idx]...)
			continue
		}
		def, ok := m.Defaults[tok.Value]
		if !ok {
			return nil, fmt.Errorf("`%s %s: %w", m.Name, tok.Value, ErrMissingArgument)
		}
		out = append(out, def...)
	}
	return out, nil
}

// ExpandFromStream expands the macro at a call site, consuming the
// parenthesized actuals from s when the macro has parameters.
func (m *Macro) ExpandFromStream(s *tokenizer.Stream) ([]tokenizer.Token, error) {
	if len(m.Params) == 0 {
		return m.Expand(nil)
	}
	actuals, err := parseActuals(s)
	if err != nil {
		return nil, fmt.Errorf("`%s: %w", m.Name, err)
	}
	return m.Expand(actuals)
}

// parseActuals reads "(a, b c, d)". Commas and the closing paren are not
// matched against nested brackets, so "(f(x), y)" splits inside f(x).
func parseActuals(s *tokenizer.Stream) ([][]tokenizer.Token, error) {
	tok, ok := s.Pop()
	if !ok {
		return nil, fmt.Errorf("%w: end of input before (", ErrBrokenActuals)
	}
	if tok.Kind != verilog.LPar {
		return nil, fmt.Errorf("%w: expected ( got %v", ErrBrokenActuals, tok)
	}

	var actuals [][]tokenizer.Token
	var cur []tokenizer.Token
	for {
		tok, ok := s.Pop()
		if !ok {
			return nil, fmt.Errorf("%w: end of input before )", ErrBrokenActuals)
		}
		switch tok.Kind {
		case verilog.RPar:
			return append(actuals, cur), nil
		case verilog.Comma:
			actuals = append(actuals, cur)
			cur = nil
		default:
			cur = append(cur, tok)
		}
	}
}
