// Package metrics is a small Prometheus-compatible registry for indexing
// runs. Metrics are grouped into families that share a name, help text and
// label names; every distinct set of label values is one series. The
// registry renders in the text exposition format on /metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBuckets are the default histogram buckets in seconds. Indexing one
// document spans fetch, extraction and remote embedding, so the tail is long.
var DefaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.val.Store(n) }
func (g *Gauge) Inc()         { g.val.Add(1) }
func (g *Gauge) Dec()         { g.val.Add(-1) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram tracks the distribution of observed values using fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64 // per bucket, not cumulative
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *Histogram {
	b := slices.Clone(buckets)
	slices.Sort(b)
	return &Histogram{buckets: b, counts: make([]uint64, len(b))}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	if i, _ := slices.BinarySearch(h.buckets, v); i < len(h.buckets) {
		h.counts[i]++
	}
}

func (h *Histogram) snapshot() (buckets []float64, counts []uint64, sum float64, count uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buckets, slices.Clone(h.counts), h.sum, h.count
}

type metricType string

const (
	typeCounter   metricType = "counter"
	typeGauge     metricType = "gauge"
	typeHistogram metricType = "histogram"
)

type family struct {
	name    string
	help    string
	typ     metricType
	labels  []string
	buckets []float64
	series  map[string]*series // keyed by joined label values
}

type series struct {
	values []string
	metric any // *Counter, *Gauge or *Histogram
}

// Registry holds metric families in registration order.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	order    []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// family returns the family called name, creating it on first use.
// Registering one name with a different type or label set panics.
func (r *Registry) family(name, help string, typ metricType, labels []string, buckets []float64) *family {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.families[name]; ok {
		if f.typ != typ || !slices.Equal(f.labels, labels) {
			panic(fmt.Sprintf("metrics: %s registered as %s%v, requested as %s%v", name, f.typ, f.labels, typ, labels))
		}
		if f.help == "" {
			f.help = help
		}
		return f
	}
	f := &family{
		name:    name,
		help:    help,
		typ:     typ,
		labels:  slices.Clone(labels),
		buckets: buckets,
		series:  make(map[string]*series),
	}
	r.families[name] = f
	r.order = append(r.order, name)
	return f
}

func (r *Registry) with(f *family, values []string, create func() any) any {
	if len(values) != len(f.labels) {
		panic(fmt.Sprintf("metrics: %s takes %d label values, got %d", f.name, len(f.labels), len(values)))
	}
	key := strings.Join(values, "\xff")
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := f.series[key]
	if !ok {
		s = &series{values: slices.Clone(values), metric: create()}
		f.series[key] = s
	}
	return s.metric
}

// CounterVec is a counter family partitioned by labels.
type CounterVec struct {
	r *Registry
	f *family
}

// With returns the counter for the given label values, in label order.
func (v *CounterVec) With(values ...string) *Counter {
	return v.r.with(v.f, values, func() any { return &Counter{} }).(*Counter)
}

// HistogramVec is a histogram family partitioned by labels.
type HistogramVec struct {
	r *Registry
	f *family
}

// With returns the histogram for the given label values, in label order.
func (v *HistogramVec) With(values ...string) *Histogram {
	return v.r.with(v.f, values, func() any { return newHistogram(v.f.buckets) }).(*Histogram)
}

// CounterVec returns (or creates) a counter family with the given labels.
func (r *Registry) CounterVec(name, help string, labels ...string) *CounterVec {
	return &CounterVec{r: r, f: r.family(name, help, typeCounter, labels, nil)}
}

// Counter returns (or creates) an unlabelled counter.
func (r *Registry) Counter(name, help string) *Counter {
	return r.CounterVec(name, help).With()
}

// Gauge returns (or creates) an unlabelled gauge.
func (r *Registry) Gauge(name, help string) *Gauge {
	f := r.family(name, help, typeGauge, nil, nil)
	return r.with(f, nil, func() any { return &Gauge{} }).(*Gauge)
}

// HistogramVec returns (or creates) a histogram family. Nil buckets means
// DefaultBuckets.
func (r *Registry) HistogramVec(name, help string, buckets []float64, labels ...string) *HistogramVec {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return &HistogramVec{r: r, f: r.family(name, help, typeHistogram, labels, buckets)}
}

// Histogram returns (or creates) an unlabelled histogram.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	return r.HistogramVec(name, help, buckets).With()
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// pairs renders label names and values as k="v" items.
func pairs(names, values []string) []string {
	out := make([]string, len(names), len(names)+1)
	for i, n := range names {
		out[i] = n + `="` + labelEscaper.Replace(values[i]) + `"`
	}
	return out
}

func braces(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "{" + strings.Join(items, ",") + "}"
}

// Render returns the registry in the Prometheus text exposition format.
// Families appear in registration order, series sorted by label values.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, name := range r.order {
		f := r.families[name]
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", name, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, f.typ)

		for _, key := range slices.Sorted(maps.Keys(f.series)) {
			s := f.series[key]
			labels := pairs(f.labels, s.values)
			switch m := s.metric.(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s%s %d\n", name, braces(labels), m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s%s %d\n", name, braces(labels), m.Value())
			case *Histogram:
				renderHistogram(&b, name, labels, m)
			}
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, name string, labels []string, h *Histogram) {
	buckets, counts, sum, count := h.snapshot()
	var cumulative uint64
	for i, bound := range buckets {
		cumulative += counts[i]
		le := `le="` + strconv.FormatFloat(bound, 'g', -1, 64) + `"`
		fmt.Fprintf(b, "%s_bucket%s %d\n", name, braces(append(labels, le)), cumulative)
	}
	fmt.Fprintf(b, "%s_bucket%s %d\n", name, braces(append(labels, `le="+Inf"`)), count)
	fmt.Fprintf(b, "%s_sum%s %g\n", name, braces(labels), sum)
	fmt.Fprintf(b, "%s_count%s %d\n", name, braces(labels), count)
}

// Handler returns an http.Handler that serves the rendered registry.
func (r *Registry) Handler() http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(r.Render()))
	})
	return otelhttp.NewHandler(h, "metrics")
}

// Mux returns a mux serving /metrics and a liveness probe on /.
func (r *Registry) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve serves Mux on addr until ctx is cancelled, then shuts down
// gracefully.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: r.Mux(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("metrics: serve %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	return nil
}

// ServeAsync starts Serve in a goroutine. Errors are logged.
func (r *Registry) ServeAsync(ctx context.Context, addr string, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	go func() {
		if err := r.Serve(ctx, addr); err != nil {
			log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
}
