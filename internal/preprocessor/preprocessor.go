package preprocessor

import (
	"fmt"
	"path/filepath"

	"github.com/fwessels/vpp/internal/diagnostics"
	"github.com/fwessels/vpp/internal/source"
	"github.com/fwessels/vpp/internal/tokenizer"
	"github.com/fwessels/vpp/internal/verilog"
)

// Context is the state shared by one top-level Preprocess call and all of
// the includes it expands. Definitions and IncludedFiles are updated in
// place, so a nested include sees and leaves behind the same table.
type Context struct {
	Definitions   map[string]*Macro
	IncludeDirs   []string
	IncludedFiles []string

	Source      source.Source
	Diagnostics diagnostics.Sink
	// Locations makes included files tokenize with locations, so that
	// diagnostics inside them can be described.
	Locations bool

	including map[string]bool
	// contents of files already read, for describing locations
	files map[string]string
}

// NewContext returns a context with an empty definitions table reading files
// through src.
func NewContext(src source.Source, sink diagnostics.Sink, includeDirs ...string) *Context {
	return &Context{
		Definitions: map[string]*Macro{},
		IncludeDirs: includeDirs,
		Source:      src,
		Diagnostics: sink,
	}
}

// Enter marks file as being included. It reports false when file is already
// on the include stack.
func (c *Context) Enter(file string) bool {
	if c.including == nil {
		c.including = map[string]bool{}
	}
	if c.including[file] {
		return false
	}
	c.including[file] = true
	return true
}

func (c *Context) Leave(file string) {
	delete(c.including, file)
}

func (c *Context) report(sev diagnostics.Severity, directive string, loc *tokenizer.Location, format string, args ...any) {
	if c.Diagnostics == nil {
		return
	}
	c.Diagnostics.Report(diagnostics.Diagnostic{
		Severity:    sev,
		Directive:   directive,
		Message:     fmt.Sprintf(format, args...),
		Location:    loc,
		Description: tokenizer.Describe(loc, cachedFiles{c}),
	})
}

// cachedFiles reads each file through the context's source at most once, so
// a file with many diagnostics is not re-read for every description.
type cachedFiles struct{ c *Context }

func (f cachedFiles) Exists(path string) bool {
	if _, ok := f.c.files[path]; ok {
		return true
	}
	return f.c.Source != nil && f.c.Source.Exists(path)
}

func (f cachedFiles) ReadAll(path string) (string, error) {
	if text, ok := f.c.files[path]; ok {
		return text, nil
	}
	text, err := f.c.Source.ReadAll(path)
	if err != nil {
		return "", err
	}
	f.c.remember(path, text)
	return text, nil
}

func (c *Context) remember(path, text string) {
	if c.files == nil {
		c.files = map[string]string{}
	}
	c.files[path] = text
}

// Preprocess expands `define, `include and macro uses in tokens. Malformed
// directives are reported to ctx.Diagnostics and dropped.
func Preprocess(tokens []tokenizer.Token, ctx *Context) []tokenizer.Token {
	if ctx.Definitions == nil {
		ctx.Definitions = map[string]*Macro{}
	}
	stream := tokenizer.NewStream(tokens)

	var out []tokenizer.Token
	for {
		tok, ok := stream.Pop()
		if !ok {
			break
		}
		if tok.Kind != verilog.Preprocessor {
			out = append(out, tok)
			continue
		}

		switch {
		case tok.Value == "define":
			if m := parseDefine(tok, stream, ctx); m != nil {
				ctx.Definitions[m.Name] = m
			}

		case tok.Value == "include":
			out = append(out, include(tok, stream, ctx)...)

		case ctx.Definitions[tok.Value] != nil:
			m := ctx.Definitions[tok.Value]
			expanded, err := m.ExpandFromStream(stream)
			if err != nil {
				ctx.report(diagnostics.Debug, tok.Value, tok.Location, "broken macro use: %v", err)
				continue
			}
			out = append(out, expanded...)

		default:
			out = append(out, tok)
		}
	}
	return out
}

func include(directive tokenizer.Token, stream *tokenizer.Stream, ctx *Context) []tokenizer.Token {
	stream.SkipWhile(verilog.Whitespace)
	arg, ok := stream.Pop()
	if !ok {
		ctx.report(diagnostics.Debug, "include", directive.Location, "end of input before argument")
		return nil
	}

	var fileName string
	switch arg.Kind {
	case verilog.Preprocessor:
		m := ctx.Definitions[arg.Value]
		if m == nil {
			ctx.report(diagnostics.Debug, "include", arg.Location, "bad argument %v", arg)
			return nil
		}
		expanded, err := m.ExpandFromStream(stream)
		if err != nil {
			ctx.report(diagnostics.Debug, "include", arg.Location, "bad argument %v: %v", arg, err)
			return nil
		}
		if len(expanded) == 0 {
			ctx.report(diagnostics.Debug, "include", arg.Location, "bad argument %v expands to nothing", arg)
			return nil
		}
		if expanded[0].Kind != verilog.String {
			ctx.report(diagnostics.Debug, "include", arg.Location, "bad argument %v expands to %v", arg, expanded[0])
			return nil
		}
		fileName = expanded[0].Value

	case verilog.String:
		fileName = arg.Value

	default:
		ctx.report(diagnostics.Debug, "include", arg.Location, "bad argument %v", arg)
		return nil
	}

	path, abs, ok := ctx.resolve(fileName)
	if !ok {
		ctx.report(diagnostics.Debug, "include", arg.Location, "could not find include file %s", fileName)
		return nil
	}
	if !ctx.Enter(abs) {
		ctx.report(diagnostics.Error, "include", arg.Location, "include cycle at %s", abs)
		return nil
	}
	defer ctx.Leave(abs)

	ctx.IncludedFiles = append(ctx.IncludedFiles, abs)
	contents, err := ctx.Source.ReadAll(path)
	if err != nil {
		ctx.report(diagnostics.Error, "include", arg.Location, "read %s: %v", path, err)
		return nil
	}
	if ctx.Locations {
		ctx.remember(path, contents)
	}
	return Preprocess(verilog.Tokenize(contents, path, ctx.Locations), ctx)
}

// resolve joins name with each include directory in order and returns the
// first existing file, both as found and as an absolute path.
func (c *Context) resolve(name string) (path, abs string, ok bool) {
	if c.Source == nil {
		return "", "", false
	}
	for _, dir := range c.IncludeDirs {
		path = filepath.Join(dir, name)
		if !c.Source.Exists(path) {
			continue
		}
		var err error
		if abs, err = filepath.Abs(path); err != nil {
			abs = path
		}
		return path, abs, true
	}
	return "", "", false
}
