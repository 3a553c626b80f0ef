// Package textclean normalizes text extracted from bill PDFs into plain prose.
package textclean

import (
	"regexp"
	"strings"
)

var (
	// word-<newline>word, as left by PDF line wrapping.
	hyphenBreak = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)

	// Running page headers such as "HCS HB 1366 & 1878 2" or "SS SCS SB 5 12".
	pageHeader = regexp.MustCompile(`(?m)^[A-Z]{2,}\s+(?:[A-Z]{2,}\s+)*(?:HBs?|SBs?)\s+[\d\s&]+\s+\d+\s*$`)

	// Printed line numbers in the left margin.
	lineNumber = regexp.MustCompile(`(?m)^\s*\d+\s+`)

	spaces   = regexp.MustCompile(` {2,}`)
	newlines = regexp.MustCompile(`\n{3,}`)
)

// step is a single text transformation.
type step func(string) string

var steps = []step{
	func(s string) string { return strings.ReplaceAll(s, "\x00", "") },
	func(s string) string { return hyphenBreak.ReplaceAllString(s, "${1}${2}") },
	func(s string) string { return pageHeader.ReplaceAllString(s, "") },
	func(s string) string { return lineNumber.ReplaceAllString(s, "") },
	func(s string) string { return spaces.ReplaceAllString(s, " ") },
	func(s string) string { return newlines.ReplaceAllString(s, "\n\n") },
	strings.TrimSpace,
}

// Clean runs the cleaning steps in order. Every step only ever removes text, so
// the pass is repeated until the output stops changing; that makes Clean
// idempotent even when one step exposes work for an earlier one (a line number
// hiding a page header, a chain of hyphenated breaks).
func Clean(raw string) string {
	text := raw
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	for _, s := range steps {
		text = s(text)
	}
	return text
}
