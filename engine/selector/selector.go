// Package selector decides which stored versions of a bill get indexed.
package selector

import (
	"strings"

	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/pkg/fn"
)

// FiscalNoteMarker appears in the storage ref of fiscal-note artifacts.
const FiscalNoteMarker = ".ORG"

// Hierarchy lists document types from most to least authoritative. Terms are
// matched against normalized type labels, so spacing variants collapse.
var Hierarchy = []string{
	"truly agreed",
	"senate comm sub",
	"senate committee substitute",
	"perfected",
	"committee",
	"introduced",
}

// normalize lowercases a type label and maps spaces and hyphens to
// underscores so "Senate Comm Sub" and "senate_comm_sub" compare equal.
func normalize(label string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(label)))
}

// Embeddable reports whether doc has stored bytes and is not a fiscal note.
func Embeddable(doc legis.DocumentRecord) bool {
	return doc.StorageRef != "" && !strings.Contains(doc.StorageRef, FiscalNoteMarker)
}

// Introduced returns the first document whose type mentions "introduced".
func Introduced(docs []legis.DocumentRecord) (legis.DocumentRecord, bool) {
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.DocumentType), "introduced") {
			return d, true
		}
	}
	return legis.DocumentRecord{}, false
}

// MostRecent walks Hierarchy and returns the first document matching the
// highest-ranked term present.
func MostRecent(docs []legis.DocumentRecord) (legis.DocumentRecord, bool) {
	for _, term := range Hierarchy {
		term = normalize(term)
		for _, d := range docs {
			if strings.Contains(normalize(d.DocumentType), term) {
				return d, true
			}
		}
	}
	return legis.DocumentRecord{}, false
}

// SelectEmbeddable picks at most two documents of one bill to index: the
// introduced version and the most authoritative later version, in that order.
// When neither is found the first embeddable document is used. Fiscal notes
// and documents without stored bytes are never selected.
func SelectEmbeddable(docs []legis.DocumentRecord) []legis.DocumentRecord {
	docs = fn.Filter(docs, Embeddable)
	if len(docs) == 0 {
		return nil
	}

	var picked []legis.DocumentRecord
	if d, ok := Introduced(docs); ok {
		picked = append(picked, d)
	}
	if d, ok := MostRecent(docs); ok {
		picked = append(picked, d)
	}
	if len(picked) == 0 {
		return docs[:1]
	}
	return fn.UniqueBy(picked, func(d legis.DocumentRecord) string { return d.ID })
}
