// Package tokenizer counts and truncates text by model tokens.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used by current chat models.
const DefaultEncoding = "cl100k_base"

// Tokenizer wraps a tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding. Loading may fetch the BPE ranks on first
// use, so callers should tolerate an error and fall back to estimates.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", DefaultEncoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the token count of text. A nil Tokenizer estimates
// four characters per token.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil {
		return estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most limit tokens and whether it was cut.
// A nil Tokenizer cuts by the same estimate CountTokens uses.
func (t *Tokenizer) Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}
	if t == nil {
		runes := []rune(text)
		if len(runes) <= limit*4 {
			return text, false
		}
		return string(runes[:limit*4]), true
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text, false
	}
	return t.enc.Decode(tokens[:limit]), true
}

func estimate(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
