package chunking

import (
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// The terminating punctuation stays with its sentence; the whitespace is
// dropped.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) || len(out) == 0 {
		out = append(out, text[start:])
	}
	return out
}

// BySentences packs sentences greedily up to the token budget. Each new chunk
// is seeded with the trailing sentences of the previous one that fit in the
// overlap budget. A sentence larger than the budget is kept whole.
func (c *Chunker) BySentences(text string) []string {
	var (
		chunks    []string
		cur       []string
		counts    []int
		curTokens int
	)
	for _, s := range SplitSentences(text) {
		n := c.tok.CountTokens(s)
		if curTokens+n > c.target && len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur, counts, curTokens = c.overlapSeed(cur, counts)
		}
		cur = append(cur, s)
		counts = append(counts, n)
		curTokens += n
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// overlapSeed walks back from the end of the emitted chunk and keeps the
// longest run of trailing sentences whose tokens sum to at most the overlap
// budget, in their original order.
func (c *Chunker) overlapSeed(sentences []string, counts []int) ([]string, []int, int) {
	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		if total+counts[i] > c.overlap {
			break
		}
		total += counts[i]
		start = i
	}
	seed := append([]string(nil), sentences[start:]...)
	seedCounts := append([]int(nil), counts[start:]...)
	return seed, seedCounts, total
}
