// Package tokenizer provides token counters for chunk budgeting.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// KindTiktoken counts BPE tokens with the embedding model's encoding.
	KindTiktoken = "tiktoken"
	// KindEstimate approximates tokens as characters / 4.
	KindEstimate = "estimate"
	// KindWords counts whitespace-separated words.
	KindWords = "words"

	charsPerToken = 4
)

// Counter counts tokens in a string.
type Counter interface {
	CountTokens(text string) int
	Name() string
}

// BPE counts tokens with a tiktoken encoding.
type BPE struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewBPE loads the encoding used by model, e.g. "text-embedding-3-small"
// (cl100k_base). Unknown models fall back to cl100k_base.
func NewBPE(model string) (*BPE, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return nil, fmt.Errorf("tokenizer: load encoding for %s: %w", model, err)
		}
	}
	return &BPE{enc: enc, name: KindTiktoken + ":" + model}, nil
}

func (b *BPE) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(b.enc.Encode(text, nil, nil))
}

func (b *BPE) Name() string { return b.name }

// Estimate approximates token counts from byte length.
type Estimate struct{}

func (Estimate) CountTokens(text string) int {
	n := len(text) / charsPerToken
	if n == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return n
}

func (Estimate) Name() string { return KindEstimate }

// Words counts whitespace-separated words.
type Words struct{}

func (Words) CountTokens(text string) int { return len(strings.Fields(text)) }

func (Words) Name() string { return KindWords }

// New builds the counter named by kind.
func New(kind, model string) (Counter, error) {
	switch kind {
	case KindTiktoken, "":
		return NewBPE(model)
	case KindEstimate:
		return Estimate{}, nil
	case KindWords:
		return Words{}, nil
	default:
		return nil, fmt.Errorf("tokenizer: unknown kind %q", kind)
	}
}
