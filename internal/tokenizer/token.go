package tokenizer

import (
	"fmt"
	"sync"
)

// Kind identifies a token rule. Kinds are allocated by Tokenizer.Add and are
// never shared between two registrations, even when the names collide.
type Kind uint32

var registry struct {
	sync.Mutex
	names []string
}

// NewKind allocates a kind that no rule matches directly, e.g. a target of
// Recategorize.
func NewKind(name string) Kind {
	registry.Lock()
	defer registry.Unlock()
	registry.names = append(registry.names, name)
	return Kind(len(registry.names))
}

func (k Kind) String() string {
	registry.Lock()
	defer registry.Unlock()
	if k == 0 || int(k) > len(registry.names) {
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
	return registry.names[k-1]
}

// Location is an inclusive character span within a named source.
type Location struct {
	Source string
	Start  int
	End    int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d-%d", l.Source, l.Start, l.End)
}

// Token is a single lexeme. Location is nil unless the tokenizer was asked to
// create locations.
type Token struct {
	Kind     Kind
	Value    string
	Location *Location
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
}

// PostProcessor is invoked on every matched token. Returning false drops the
// token from the output.
type PostProcessor interface {
	Process(tok Token) (Token, bool)
}

// PostProcessorFunc adapts a function to PostProcessor.
type PostProcessorFunc func(tok Token) (Token, bool)

func (f PostProcessorFunc) Process(tok Token) (Token, bool) {
	return f(tok)
}

var (
	// Identity keeps every token as matched.
	Identity PostProcessor = PostProcessorFunc(func(tok Token) (Token, bool) { return tok, true })
	// Drop removes every token of the rule, e.g. for filtering comments.
	Drop PostProcessor = PostProcessorFunc(func(tok Token) (Token, bool) { return tok, false })
)

// Recategorize changes the kind of tokens whose value is a key of kinds.
func Recategorize(kinds map[string]Kind) PostProcessor {
	return PostProcessorFunc(func(tok Token) (Token, bool) {
		if k, ok := kinds[tok.Value]; ok {
			tok.Kind = k
		}
		return tok, true
	})
}

// Rewrite replaces the token value.
func Rewrite(fn func(value string) string) PostProcessor {
	return PostProcessorFunc(func(tok Token) (Token, bool) {
		tok.Value = fn(tok.Value)
		return tok, true
	})
}

// Chain runs post-processors in order and stops at the first drop.
func Chain(pps ...PostProcessor) PostProcessor {
	return PostProcessorFunc(func(tok Token) (Token, bool) {
		for _, pp := range pps {
			if pp == nil {
				continue
			}
			var keep bool
			if tok, keep = pp.Process(tok); !keep {
				return tok, false
			}
		}
		return tok, true
	})
}
