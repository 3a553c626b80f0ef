package ingest

import (
	"context"
	"time"

	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/selector"
)

// ProcessBill indexes the selected documents of one bill. Each document is
// processed on its own: a failure in one never stops its siblings. A bill
// whose metadata cannot be resolved fails as metadata_not_found with no
// embeddings.
func ProcessBill(ctx context.Context, deps Deps, billID string) (res BillResult) {
	log := deps.logger().With("bill_id", billID)
	res.BillID = billID
	defer func() { recordBill(deps.Metrics, res) }()

	docs, err := deps.Documents.Documents(ctx, billID)
	if err != nil {
		res.Err = legis.NewUnitError(legis.KindOf(err), billID, err)
		log.ErrorContext(ctx, "ingest: list documents", "error", err)
		return res
	}
	res.Stored = len(docs)

	selected := selector.SelectEmbeddable(docs)
	if len(selected) == 0 {
		log.InfoContext(ctx, "ingest: no embeddable documents", "stored", len(docs))
		return res
	}

	meta, err := deps.Metadata.BillMetadata(ctx, billID)
	if err != nil {
		res.Err = legis.NewUnitError(legis.KindMetadataNotFound, billID, err)
		log.ErrorContext(ctx, "ingest: bill metadata", "error", err)
		return res
	}
	res.BillNumber = meta.BillNumber
	log = log.With("bill_number", meta.BillNumber)

	for i, doc := range selected {
		res.Documents = append(res.Documents, processDocument(ctx, deps, doc, meta, i))
	}
	log.InfoContext(ctx, "ingest: bill done",
		"selected", len(selected), "stored", len(docs), "embeddings", res.Embeddings())
	return res
}

// ProcessSession indexes the bills of one session in order. A limit of zero
// or less processes every bill. Cancelling ctx stops before the next bill.
func ProcessSession(ctx context.Context, deps Deps, session legis.Session, limit int) (report RunReport) {
	log := deps.logger().With("session", session.String())
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	if deps.Bills == nil {
		report.AddFailure(session.String(), legis.Configf("ingest: no bill lister"))
		return report
	}
	bills, err := deps.Bills.BillsForSession(ctx, session.Year, session.Code, limit)
	if err != nil {
		report.AddFailure(session.String(), err)
		log.ErrorContext(ctx, "ingest: list bills", "error", err)
		return report
	}
	log.InfoContext(ctx, "ingest: session start", "bills", len(bills), "limit", limit)

	for i, b := range bills {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "ingest: session interrupted", "done", i, "bills", len(bills), "error", err)
			break
		}
		log.InfoContext(ctx, "ingest: bill", "n", i+1, "of", len(bills), "bill_number", b.BillNumber)
		r := ProcessBill(ctx, deps, b.ID)
		if r.BillNumber == "" {
			r.BillNumber = b.BillNumber
		}
		report.AddBill(r)
	}

	report.Duration = time.Since(start)
	log.InfoContext(ctx, "ingest: session done", "report", report)
	return report
}

// ProcessSessions runs ProcessSession over each session in order and merges
// the reports. Pass legis.KnownSessions to index everything.
func ProcessSessions(ctx context.Context, deps Deps, sessions []legis.Session, limit int) RunReport {
	log := deps.logger()
	var total RunReport
	for i, s := range sessions {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "ingest: run interrupted", "sessions_done", i, "error", err)
			break
		}
		total.Merge(ProcessSession(ctx, deps, s, limit))
	}
	log.InfoContext(ctx, "ingest: run done", "sessions", len(sessions), "report", total)
	return total
}
