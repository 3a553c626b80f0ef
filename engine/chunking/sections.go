package chunking

import "strings"

// splitSections cuts text at every section marker. Text ahead of the first
// marker becomes a leading segment of its own. Segments are contiguous, so
// joining them gives back text. Returns nil when there are no markers.
func splitSections(text string) []string {
	locs := sectionMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	segments := make([]string, 0, len(locs)+1)
	if locs[0][0] > 0 {
		segments = append(segments, text[:locs[0][0]])
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, text[loc[0]:end])
	}
	return segments
}

// BySections packs whole sections greedily up to the token budget. A section
// over budget*1.2 is emitted alone, never split. Overlap does not apply.
func (c *Chunker) BySections(text string) []string {
	segments := splitSections(text)
	if segments == nil {
		return []string{text}
	}

	limit := float64(c.target) * oversizeSlack
	var (
		chunks    []string
		acc       strings.Builder
		accTokens int
	)
	flush := func() {
		if acc.Len() > 0 {
			chunks = append(chunks, acc.String())
			acc.Reset()
			accTokens = 0
		}
	}

	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		n := c.tok.CountTokens(seg)
		switch {
		case float64(n) > limit:
			flush()
			chunks = append(chunks, seg)
		case accTokens+n > c.target && acc.Len() > 0:
			flush()
			acc.WriteString(seg)
			accTokens = n
		default:
			acc.WriteString(seg)
			accTokens += n
		}
	}
	flush()
	return chunks
}
