package ingest

import (
	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/pkg/metrics"
)

const (
	metricBills      = "legisearch_bills_total"
	metricDocuments  = "legisearch_documents_total"
	metricEmbeddings = "legisearch_embeddings_total"
	metricFailures   = "legisearch_failures_total"
	metricDocSeconds = "legisearch_document_seconds"
	metricInflight   = "legisearch_requests_inflight"
)

func recordDocument(reg *metrics.Registry, r DocumentResult) {
	if reg == nil {
		return
	}
	reg.CounterVec(metricDocuments, "Documents by outcome.", "status").With(string(r.Status())).Inc()
	reg.Counter(metricEmbeddings, "Vector records written.").Add(int64(r.Embeddings))
	if r.Err != nil {
		recordFailure(reg, legis.KindOf(r.Err))
	}
	if !r.Skipped {
		reg.Histogram(metricDocSeconds, "Time to index one document.", nil).Observe(r.Duration.Seconds())
	}
}

func recordBill(reg *metrics.Registry, r BillResult) {
	if reg == nil {
		return
	}
	reg.CounterVec(metricBills, "Bills by outcome.", "status").With(string(r.Status())).Inc()
	if r.Err != nil {
		recordFailure(reg, legis.KindOf(r.Err))
	}
}

func recordFailure(reg *metrics.Registry, kind legis.ErrorKind) {
	reg.CounterVec(metricFailures, "Failed units by kind.", "kind").With(string(kind)).Inc()
}

// trackRequest counts an in-flight consumer request; call the returned func
// when it is done.
func trackRequest(reg *metrics.Registry) func() {
	if reg == nil {
		return func() {}
	}
	g := reg.Gauge(metricInflight, "Indexing requests in progress.")
	g.Inc()
	return g.Dec
}
