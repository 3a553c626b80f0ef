// Package ingest drives bill documents through selection, text extraction,
// cleaning, chunking, metadata enrichment and vector upsert, and reports the
// outcome per document, per bill and per run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/legisearch/engine/chunking"
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/engine/textclean"
	"github.com/WessleyAI/legisearch/pkg/fn"
)

// docJob carries one document through the pipeline stages.
type docJob struct {
	doc      legis.DocumentRecord
	meta     legis.BillMetadata
	index    int
	raw      []byte
	text     string
	chunks   []legis.Chunk
	enriched []legis.EnrichedChunk
	stored   int
}

// newFetch loads the raw bytes behind the document's storage ref. Bytes that
// cannot be fetched can never become text, so the failure is an extraction
// error.
func newFetch(blobs BlobFetcher) fn.Stage[docJob, docJob] {
	return fn.Lift(func(ctx context.Context, j docJob) (docJob, error) {
		raw, err := blobs.Fetch(ctx, j.doc.StorageRef)
		if err != nil {
			return j, fmt.Errorf("%w: fetch %s: %w", legis.ErrExtraction, j.doc.StorageRef, err)
		}
		j.raw = raw
		return j, nil
	})
}

// newExtract converts the raw bytes to text.
func newExtract(x TextExtractor) fn.Stage[docJob, docJob] {
	extract := fn.Lift(func(_ context.Context, j docJob) (docJob, error) {
		text, err := x.ExtractText(j.raw)
		j.text, j.raw = text, nil
		return j, err
	})
	return func(ctx context.Context, j docJob) fn.Result[docJob] {
		return fn.MapErr(extract(ctx, j), asKind(legis.ErrExtraction))
	}
}

// asKind tags an error with sentinel unless it already carries it.
func asKind(sentinel error) func(error) error {
	return func(err error) error {
		if errors.Is(err, sentinel) {
			return err
		}
		return fmt.Errorf("%w: %w", sentinel, err)
	}
}

// clean normalizes the extracted text. A document that is blank after
// cleaning fails with legis.ErrNoText.
var clean = fn.Lift(func(_ context.Context, j docJob) (docJob, error) {
	j.text = textclean.Clean(j.text)
	if strings.TrimSpace(j.text) == "" {
		return j, legis.ErrNoText
	}
	return j, nil
})

// newChunk splits the cleaned text into chunks.
func newChunk(c *chunking.Chunker) fn.Stage[docJob, docJob] {
	return fn.MapStage(func(j docJob) docJob {
		j.chunks = c.Chunks(j.text, j.index)
		return j
	})
}

// enrichStage attaches bill metadata to every chunk.
var enrichStage = fn.MapStage(func(j docJob) docJob {
	j.enriched = Enrich(j.chunks, j.doc, j.meta)
	return j
})

// newUpsert embeds and stores the enriched chunks.
func newUpsert(u *Upserter) fn.Stage[docJob, docJob] {
	return fn.Lift(func(ctx context.Context, j docJob) (docJob, error) {
		n, err := u.Store(ctx, j.doc.ID, j.enriched)
		j.stored = n
		return j, err
	})
}

// Logged wraps a stage with debug logging at entry and exit, including the
// stage duration and error.
func Logged[In, Out any](name string, log *slog.Logger, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	return func(ctx context.Context, in In) fn.Result[Out] {
		log.DebugContext(ctx, "stage.enter", "stage", name)
		start := time.Now()
		r := stage(ctx, in)
		if r.IsErr() {
			_, err := r.Unwrap()
			log.DebugContext(ctx, "stage.exit", "stage", name, "duration", time.Since(start), "error", err)
		} else {
			log.DebugContext(ctx, "stage.exit", "stage", name, "duration", time.Since(start))
		}
		return r
	}
}

// newPipeline constructs the per-document pipeline with all stages wired:
// fetch, extract, clean, chunk, enrich, upsert. Every stage gets a span and
// debug logging.
func newPipeline(deps Deps, log *slog.Logger) fn.Stage[docJob, docJob] {
	stage := func(name string, s fn.Stage[docJob, docJob]) fn.Stage[docJob, docJob] {
		return fn.TracedStage("ingest."+name, Logged(name, log, s))
	}
	return fn.Pipeline(
		stage("fetch", newFetch(deps.Blobs)),
		stage("extract", newExtract(deps.Extractor)),
		stage("clean", clean),
		stage("chunk", newChunk(deps.Chunker)),
		stage("enrich", enrichStage),
		stage("upsert", newUpsert(deps.Upserter)),
	)
}

// ProcessDocument indexes one document of a bill. Documents without a
// storage ref are skipped. Failures are returned in the result, never
// raised: the error is a *legis.UnitError naming the document.
func ProcessDocument(ctx context.Context, deps Deps, doc legis.DocumentRecord, meta legis.BillMetadata) DocumentResult {
	return processDocument(ctx, deps, doc, meta, 0)
}

func processDocument(ctx context.Context, deps Deps, doc legis.DocumentRecord, meta legis.BillMetadata, index int) (res DocumentResult) {
	log := deps.logger().With("document_id", doc.ID, "document_type", doc.DocumentType)
	res.Document = doc
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		recordDocument(deps.Metrics, res)
	}()

	if doc.StorageRef == "" {
		log.InfoContext(ctx, "ingest: skipping document without stored bytes")
		res.Skipped = true
		return res
	}

	r := newPipeline(deps, log)(ctx, docJob{doc: doc, meta: meta, index: index})
	j, err := r.Unwrap()
	if r.IsErr() {
		res.Err = legis.NewUnitError(legis.KindOf(err), doc.ID, err)
		log.ErrorContext(ctx, "ingest: document failed", "kind", legis.KindOf(err), "error", err)
		return res
	}
	res.Embeddings = j.stored
	log.InfoContext(ctx, "ingest: document indexed", "chunks", len(j.chunks), "embeddings", j.stored)
	return res
}
