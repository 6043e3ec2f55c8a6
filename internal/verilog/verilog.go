// Package verilog holds the Verilog token rules used by the preprocessor.
package verilog

import (
	"strings"

	"github.com/fwessels/vpp/internal/tokenizer"
)

var tok = tokenizer.New()

func add(name, regex string, pp tokenizer.PostProcessor) tokenizer.Kind {
	return tok.Add(name, regex, pp)
}

func trim(prefix, suffix int) tokenizer.PostProcessor {
	return tokenizer.Rewrite(func(v string) string {
		return v[prefix : len(v)-suffix]
	})
}

// Keyword kinds are never matched directly; identifiers are recategorized to
// them.
var (
	Module     = tokenizer.NewKind("module")
	EndModule  = tokenizer.NewKind("endmodule")
	Package    = tokenizer.NewKind("package")
	EndPackage = tokenizer.NewKind("endpackage")
	Parameter  = tokenizer.NewKind("parameter")
	Import     = tokenizer.NewKind("import")
)

var keywords = map[string]tokenizer.Kind{
	"module":     Module,
	"endmodule":  EndModule,
	"package":    Package,
	"endpackage": EndPackage,
	"parameter":  Parameter,
	"import":     Import,
}

// Rules in priority order.
var (
	Preprocessor   = add("preprocessor", "`[a-zA-Z_][a-zA-Z0-9_]*", trim(1, 0))
	String         = add("string", `"(?:\\[\s\S]|[^"\\])*"`, trim(1, 1))
	Newline        = add("newline", `\n`, nil)
	Whitespace     = add("whitespace", `[ \t\r\f\v]+`, nil)
	Comment        = add("comment", `//.*$`, trim(2, 0))
	MultiComment   = add("multi_line_comment", `/\*[\s\S]*?\*/`, trim(2, 2))
	Identifier     = add("identifier", `[a-zA-Z_][a-zA-Z0-9_$]*`, tokenizer.Recategorize(keywords))
	EscapedNewline = add("escaped_newline", `\\\n`, nil)
	SemiColon      = add("semi_colon", `;`, nil)
	Hash           = add("hash", `#`, nil)
	Equal          = add("equal", `=`, nil)
	LPar           = add("lpar", `\(`, nil)
	RPar           = add("rpar", `\)`, nil)
	Comma          = add("comma", `,`, nil)
	Other          = add("other", `[\s\S]`, nil)
)

func init() {
	tok.Finalize()
}

// Tokenize splits Verilog source into tokens. source names the text in
// locations, which are only recorded when locations is set.
func Tokenize(text, source string, locations bool) []tokenizer.Token {
	return tok.Tokenize(text, source, locations)
}

// Render turns tokens back into source text, restoring the markers that the
// rules strip from directive, string and comment values.
func Render(tokens []tokenizer.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case Preprocessor:
			b.WriteString("`" + t.Value)
		case String:
			b.WriteString(`"` + t.Value + `"`)
		case Comment:
			b.WriteString("//" + t.Value)
		case MultiComment:
			b.WriteString("/*" + t.Value + "*/")
		default:
			b.WriteString(t.Value)
		}
	}
	return b.String()
}
