package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

type rule struct {
	kind  Kind
	group string
	regex string
	pp    PostProcessor
}

// Tokenizer keeps a prioritized list of token rules. Rules registered first
// win when several alternatives match at the same position.
type Tokenizer struct {
	rules []rule
	re    *regexp2.Regexp
}

func New() *Tokenizer {
	return &Tokenizer{}
}

// Add registers a rule and returns its kind. pp may be nil.
func (t *Tokenizer) Add(name, regex string, pp PostProcessor) Kind {
	if t.re != nil {
		panic(fmt.Sprintf("tokenizer: Add(%q) after Finalize", name))
	}
	kind := NewKind(name)
	t.rules = append(t.rules, rule{
		kind:  kind,
		group: fmt.Sprintf("r%d", len(t.rules)),
		regex: regex,
		pp:    pp,
	})
	return kind
}

// Finalize compiles all rules into one alternation. It panics when the
// combined expression does not compile or when called twice.
func (t *Tokenizer) Finalize() {
	if t.re != nil {
		panic("tokenizer: Finalize called twice")
	}
	alts := make([]string, len(t.rules))
	for i, r := range t.rules {
		alts[i] = fmt.Sprintf("(?<%s>%s)", r.group, r.regex)
	}
	re, err := regexp2.Compile(strings.Join(alts, "|"), regexp2.Multiline|regexp2.ExplicitCapture)
	if err != nil {
		panic(fmt.Sprintf("tokenizer: %v", err))
	}
	t.re = re
}

// Finalized reports whether Finalize has been called.
func (t *Tokenizer) Finalized() bool {
	return t.re != nil
}

// Tokenize scans text and returns the tokens in order. Text between matches
// that no rule accepts is skipped. When locations is set every token carries
// its span in source. Values are slices of text, so bytes that are not valid
// UTF-8 come out unchanged.
func (t *Tokenizer) Tokenize(text, source string, locations bool) []Token {
	if t.re == nil {
		panic("tokenizer: Tokenize before Finalize")
	}

	runes := []rune(text)
	offsets := byteOffsets(text, len(runes))
	var tokens []Token
	for pos := 0; pos <= len(runes); {
		m, err := t.re.FindRunesMatchStartingAt(runes, pos)
		if err != nil || m == nil {
			break
		}
		end := m.Index + m.Length
		if m.Length == 0 {
			// an empty match makes no progress
			pos = end + 1
			continue
		}
		pos = end

		r := t.matchedRule(m)
		if r == nil {
			continue
		}
		tok := Token{Kind: r.kind, Value: text[offsets[m.Index]:offsets[end]]}
		if locations {
			tok.Location = &Location{Source: source, Start: m.Index, End: end - 1}
		}
		if r.pp != nil {
			var keep bool
			if tok, keep = r.pp.Process(tok); !keep {
				continue
			}
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// byteOffsets maps each rune index of text, plus the end, to its byte offset.
// An invalid byte decodes as one rune of width 1, as in []rune(text).
func byteOffsets(text string, n int) []int {
	offsets := make([]int, 0, n+1)
	for i := 0; i < len(text); {
		offsets = append(offsets, i)
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
	}
	return append(offsets, len(text))
}

func (t *Tokenizer) matchedRule(m *regexp2.Match) *rule {
	for i := range t.rules {
		g := m.GroupByName(t.rules[i].group)
		if g != nil && len(g.Captures) > 0 {
			return &t.rules[i]
		}
	}
	return nil
}
