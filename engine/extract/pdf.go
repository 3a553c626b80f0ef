// Package extract converts stored bill documents to plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// PDF extracts text page by page from PDF bytes.
type PDF struct{}

// ExtractText returns the plain text of every readable page, one page per
// block. Unreadable pages are skipped; a document with no readable pages is
// an extraction error.
func (PDF) ExtractText(raw []byte) (text string, err error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: empty document", legis.ErrExtraction)
	}
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", legis.ErrExtraction, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		if strings.Contains(err.Error(), "encrypted") || strings.Contains(err.Error(), "password") {
			return "", fmt.Errorf("%w: encrypted pdf not supported", legis.ErrExtraction)
		}
		return "", fmt.Errorf("%w: %v", legis.ErrExtraction, err)
	}

	var sb strings.Builder
	read := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
		read++
	}
	if read == 0 && r.NumPage() > 0 {
		return "", fmt.Errorf("%w: no readable pages", legis.ErrExtraction)
	}
	return sb.String(), nil
}

// Plain treats the stored bytes as UTF-8 text.
type Plain struct{}

func (Plain) ExtractText(raw []byte) (string, error) {
	return string(raw), nil
}
