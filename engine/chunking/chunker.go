// Package chunking splits cleaned bill text into token-bounded chunks.
//
// Legislative text is packed along statutory section boundaries and never
// split inside a section. Narrative text (summaries) is packed by sentence
// with a sentence-level overlap between neighbouring chunks.
package chunking

import (
	"regexp"
	"strings"

	"github.com/WessleyAI/legisearch/engine/legis"
)

const (
	// DefaultTargetTokens is the token budget per chunk.
	DefaultTargetTokens = 800
	// DefaultOverlapTokens is the sentence overlap budget between chunks.
	DefaultOverlapTokens = 100
	// oversizeSlack is how far over budget a single section may run before
	// it is emitted as a chunk of its own.
	oversizeSlack = 1.2
)

// sectionMarker matches "Section A." / "Section 12." headings and numbered
// code-section openers such as "338.056. 1." at the start of a line.
var sectionMarker = regexp.MustCompile(`Section\s+[A-Z\d]+\.|(?m:^)\d{3}\.\d{3}\.\s+1\.`)

// Tokenizer counts tokens. One Tokenizer must be used for a whole run so that
// every budget decision is made in the same unit.
type Tokenizer interface {
	CountTokens(text string) int
}

// TokenizerFunc adapts a plain function to Tokenizer.
type TokenizerFunc func(string) int

func (f TokenizerFunc) CountTokens(text string) int { return f(text) }

// Words counts whitespace-separated words.
var Words = TokenizerFunc(func(s string) int { return len(strings.Fields(s)) })

// Chunker picks a chunking strategy per document and applies it.
type Chunker struct {
	tok     Tokenizer
	target  int
	overlap int
}

// New creates a Chunker. A non-positive target or a negative overlap falls
// back to the defaults.
func New(tok Tokenizer, targetTokens, overlapTokens int) *Chunker {
	if tok == nil {
		tok = Words
	}
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	return &Chunker{tok: tok, target: targetTokens, overlap: overlapTokens}
}

// TargetTokens returns the chunk budget.
func (c *Chunker) TargetTokens() int { return c.target }

// OverlapTokens returns the sentence overlap budget.
func (c *Chunker) OverlapTokens() int { return c.overlap }

// CountTokens counts tokens with the chunker's tokenizer.
func (c *Chunker) CountTokens(text string) int { return c.tok.CountTokens(text) }

// Classify reports whether text carries statutory section markers.
func Classify(text string) legis.DocType {
	if sectionMarker.MatchString(text) {
		return legis.DocTypeLegislative
	}
	return legis.DocTypeSummary
}

// ChunkDocument classifies text and splits it with the matching strategy.
// Short summaries come back whole as a single chunk.
func (c *Chunker) ChunkDocument(text string) ([]string, legis.DocType) {
	if Classify(text) == legis.DocTypeLegislative {
		return c.BySections(text), legis.DocTypeLegislative
	}
	if c.tok.CountTokens(text) <= c.target {
		return []string{text}, legis.DocTypeSummary
	}
	return c.BySentences(text), legis.DocTypeSummary
}

// Chunks is ChunkDocument with each piece wrapped as a legis.Chunk tagged
// with its index, token count and the index of the document it came from.
func (c *Chunker) Chunks(text string, documentIndex int) []legis.Chunk {
	texts, docType := c.ChunkDocument(text)
	out := make([]legis.Chunk, len(texts))
	for i, t := range texts {
		out[i] = legis.Chunk{
			Index:         i,
			Text:          t,
			TokenCount:    c.tok.CountTokens(t),
			DocType:       docType,
			DocumentIndex: documentIndex,
		}
	}
	return out
}
