package textclean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanRemovesNulls(t *testing.T) {
	out := Clean("Sec\x00tion A.\x00 Chapter 1\x00")
	assert.NotContains(t, out, "\x00")
	assert.Equal(t, "Section A. Chapter 1", out)
}

func TestCleanRejoinsHyphenatedBreaks(t *testing.T) {
	out := Clean("pharma-\ncist")
	assert.Contains(t, out, "pharmacist")
	assert.NotContains(t, out, "pharma-")

	out = Clean("a licensed pharma-  \n   cist shall")
	assert.Equal(t, "a licensed pharmacist shall", out)
}

func TestCleanRejoinsChainedBreaks(t *testing.T) {
	assert.Equal(t, "pharmacistry", Clean("pharma-\ncist-\nry"))
}

func TestCleanKeepsOrdinaryHyphens(t *testing.T) {
	assert.Equal(t, "a well-known rule", Clean("a well-known rule"))
}

func TestCleanDropsPageHeaders(t *testing.T) {
	raw := "the department shall\nHCS HB 1366 & 1878 2\nissue a permit"
	out := Clean(raw)
	assert.NotContains(t, out, "HB 1366")
	assert.Contains(t, out, "the department shall")
	assert.Contains(t, out, "issue a permit")
}

func TestCleanStripsLineNumbers(t *testing.T) {
	raw := "1 Section A. Chapter 338, RSMo, is amended\n2 by adding one new section\n3 to read as follows:"
	out := Clean(raw)
	assert.Equal(t, "Section A. Chapter 338, RSMo, is amended\nby adding one new section\nto read as follows:", out)
}

func TestCleanKeepsStatuteNumbers(t *testing.T) {
	out := Clean("338.056. 1. The pharmacist")
	assert.Equal(t, "338.056. 1. The pharmacist", out)
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	out := Clean("  one    two\n\n\n\n\nthree  ")
	assert.Equal(t, "one two\n\nthree", out)
}

func TestCleanIsIdempotent(t *testing.T) {
	samples := []string{
		"",
		"   ",
		"pharma-\ncist",
		"pharma-\ncist-\nry and pre-\n12 approved",
		"12 HCS HB 1366 & 1878 2\nbody text",
		"1 Section A. Chapter 338\n\n\n\n2 Section B. Chapter 339",
		"12 34 text that starts with two numbers",
		"HCS HB 5 3\n\n\n\n\nSS SB 7 & 8 10\n",
		"no\x00 nulls\x00\n\n\n\n here  at   all",
		strings.Repeat("word- \n  next  line\n\n\n", 20),
	}
	for _, s := range samples {
		once := Clean(s)
		assert.Equal(t, once, Clean(once), "input %q", s)
	}
}

func TestCleanDeterministic(t *testing.T) {
	raw := "1 HCS HB 2 1\nSection 1. pre-\nsent   text\n\n\n\nend"
	assert.Equal(t, Clean(raw), Clean(raw))
}
