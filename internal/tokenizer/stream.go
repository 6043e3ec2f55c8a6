package tokenizer

import (
	"errors"
	"fmt"
	"slices"
)

var ErrOutOfRange = errors.New("token index out of range")

// Stream is a cursor over a fixed token list. It is not safe for concurrent
// use.
type Stream struct {
	tokens []Token
	idx    int
}

func NewStream(tokens []Token) *Stream {
	return &Stream{tokens: tokens}
}

func (s *Stream) Len() int   { return len(s.tokens) }
func (s *Stream) Index() int { return s.idx }
func (s *Stream) EOF() bool  { return s.idx >= len(s.tokens) }

func (s *Stream) Current() (Token, error) {
	return s.Peek(0)
}

// Peek returns the token offset positions after the cursor.
func (s *Stream) Peek(offset int) (Token, error) {
	i := s.idx + offset
	if i < 0 || i >= len(s.tokens) {
		return Token{}, fmt.Errorf("peek %d at %d of %d: %w", offset, s.idx, len(s.tokens), ErrOutOfRange)
	}
	return s.tokens[i], nil
}

// SkipWhile advances while the current token has one of kinds and returns the
// new cursor.
func (s *Stream) SkipWhile(kinds ...Kind) int {
	for !s.EOF() && slices.Contains(kinds, s.tokens[s.idx].Kind) {
		s.idx++
	}
	return s.idx
}

// SkipUntil advances until the current token has one of kinds and returns the
// new cursor.
func (s *Stream) SkipUntil(kinds ...Kind) int {
	for !s.EOF() && !slices.Contains(kinds, s.tokens[s.idx].Kind) {
		s.idx++
	}
	return s.idx
}

// Pop returns the current token and advances. ok is false at the end of the
// stream.
func (s *Stream) Pop() (tok Token, ok bool) {
	if s.EOF() {
		return Token{}, false
	}
	s.idx++
	return s.tokens[s.idx-1], true
}

// Slice returns tokens[start:end] independent of the cursor.
func (s *Stream) Slice(start, end int) []Token {
	start = max(0, min(start, len(s.tokens)))
	end = max(start, min(end, len(s.tokens)))
	return s.tokens[start:end:end]
}
