// Package tokenizer counts prompt tokens client-side so prompts can be kept
// inside a model's context budget before they are sent.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/beacon/pkg/types"
)

// DefaultEncoding is a reasonable approximation for current chat models.
const DefaultEncoding = "cl100k_base"

// perMessageOverhead approximates the role and separator tokens a chat API
// adds around every message.
const perMessageOverhead = 4

// Tokenizer counts tokens with a BPE encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding. It fails when the BPE table cannot be
// loaded, in which case callers should fall back to Estimate.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", DefaultEncoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text. A nil Tokenizer estimates.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return Estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the token count of a conversation.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += t.CountTokens(m.Content) + perMessageOverhead
	}
	return total
}

// Estimate approximates a token count as one token per four characters.
func Estimate(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
