package ingest

import (
	"errors"
	"log/slog"
	"time"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// Status is the outcome of one unit of work.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// DocumentResult is the outcome of indexing one document.
type DocumentResult struct {
	Document   legis.DocumentRecord
	Embeddings int
	Skipped    bool
	Err        error
	Duration   time.Duration
}

// Status reports whether the document succeeded, was skipped or failed.
func (r DocumentResult) Status() Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Skipped:
		return StatusSkipped
	default:
		return StatusSucceeded
	}
}

// BillResult is the outcome of indexing one bill.
type BillResult struct {
	BillID     string
	BillNumber string
	// Stored is the number of documents the bill has; Documents holds one
	// result per selected document.
	Stored    int
	Documents []DocumentResult
	Err       error
}

// Embeddings sums the records written for every document of the bill.
func (r BillResult) Embeddings() int {
	n := 0
	for _, d := range r.Documents {
		n += d.Embeddings
	}
	return n
}

// Processed reports whether the bill produced at least one embedding.
func (r BillResult) Processed() bool { return r.Embeddings() > 0 }

// Status is failed when the bill itself could not be processed or produced
// nothing because every selected document failed.
func (r BillResult) Status() Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Processed():
		return StatusSucceeded
	case len(r.Documents) == 0:
		return StatusSkipped
	}
	for _, d := range r.Documents {
		if d.Err != nil {
			return StatusFailed
		}
	}
	return StatusSkipped
}

// UnitFailure names one failed unit and why it failed.
type UnitFailure struct {
	Unit    string          `json:"unit"`
	Kind    legis.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

func failureOf(unit string, err error) UnitFailure {
	f := UnitFailure{Unit: unit, Kind: legis.KindOf(err), Message: err.Error()}
	var ue *legis.UnitError
	if errors.As(err, &ue) {
		f.Unit = ue.Unit
		f.Message = ue.Err.Error()
	}
	return f
}

// RunReport aggregates the results of a run over one or more bills.
type RunReport struct {
	BillsSeen          int           `json:"bills_seen"`
	BillsProcessed     int           `json:"bills_processed"`
	EmbeddingsCreated  int           `json:"embeddings_created"`
	DocumentsSucceeded int           `json:"documents_succeeded"`
	DocumentsFailed    int           `json:"documents_failed"`
	DocumentsSkipped   int           `json:"documents_skipped"`
	Failures           []UnitFailure `json:"failures,omitempty"`
	Duration           time.Duration `json:"duration_ns"`
}

// AddBill folds one bill result into the report. Stored documents that were
// not selected count as skipped.
func (r *RunReport) AddBill(b BillResult) {
	r.BillsSeen++
	if b.Processed() {
		r.BillsProcessed++
	}
	if b.Err != nil {
		r.Failures = append(r.Failures, failureOf(b.BillID, b.Err))
	}
	if unselected := b.Stored - len(b.Documents); unselected > 0 {
		r.DocumentsSkipped += unselected
	}
	for _, d := range b.Documents {
		r.EmbeddingsCreated += d.Embeddings
		switch d.Status() {
		case StatusSucceeded:
			r.DocumentsSucceeded++
		case StatusSkipped:
			r.DocumentsSkipped++
		case StatusFailed:
			r.DocumentsFailed++
			r.Failures = append(r.Failures, failureOf(d.Document.ID, d.Err))
		}
	}
}

// AddFailure records a failure that ended a unit larger than a bill, such as
// listing the bills of a session.
func (r *RunReport) AddFailure(unit string, err error) {
	r.Failures = append(r.Failures, failureOf(unit, err))
}

// Merge adds the counts and failures of o into r.
func (r *RunReport) Merge(o RunReport) {
	r.BillsSeen += o.BillsSeen
	r.BillsProcessed += o.BillsProcessed
	r.EmbeddingsCreated += o.EmbeddingsCreated
	r.DocumentsSucceeded += o.DocumentsSucceeded
	r.DocumentsFailed += o.DocumentsFailed
	r.DocumentsSkipped += o.DocumentsSkipped
	r.Failures = append(r.Failures, o.Failures...)
	r.Duration += o.Duration
}

// AveragePerBill is the mean number of embeddings per processed bill.
func (r RunReport) AveragePerBill() float64 {
	if r.BillsProcessed == 0 {
		return 0
	}
	return float64(r.EmbeddingsCreated) / float64(r.BillsProcessed)
}

// FailureKinds counts failures by kind.
func (r RunReport) FailureKinds() map[legis.ErrorKind]int {
	out := make(map[legis.ErrorKind]int)
	for _, f := range r.Failures {
		out[f.Kind]++
	}
	return out
}

// LogValue renders the report as a group of counts.
func (r RunReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bills_seen", r.BillsSeen),
		slog.Int("bills_processed", r.BillsProcessed),
		slog.Int("embeddings", r.EmbeddingsCreated),
		slog.Float64("avg_per_bill", r.AveragePerBill()),
		slog.Int("documents_succeeded", r.DocumentsSucceeded),
		slog.Int("documents_failed", r.DocumentsFailed),
		slog.Int("documents_skipped", r.DocumentsSkipped),
		slog.Int("failures", len(r.Failures)),
		slog.Duration("duration", r.Duration),
	)
}
