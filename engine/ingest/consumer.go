package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/legisearch/engine/legis"
	"github.com/WessleyAI/legisearch/pkg/natsutil"
)

const (
	// BillSubject carries BillRequests.
	BillSubject = "legisearch.index.bill"
	// SessionSubject carries SessionRequests.
	SessionSubject = "legisearch.index.session"
	// ReportSubject receives a Report after every request.
	ReportSubject = "legisearch.index.report"
	// QueueGroup is shared by every indexing worker.
	QueueGroup = "legisearch-indexers"

	drainPoll = 10 * time.Millisecond
)

// BillRequest asks a worker to index one bill.
type BillRequest struct {
	BillID string `json:"bill_id"`
}

// SessionRequest asks a worker to index the bills of one session.
type SessionRequest struct {
	Year  int    `json:"year"`
	Code  string `json:"code"`
	Limit int    `json:"limit,omitempty"`
}

// Report is the reply to a request and the message published on
// ReportSubject.
type Report struct {
	Request string    `json:"request"`
	Report  RunReport `json:"report"`
}

// Consumer serves indexing requests from NATS. Requests run one at a time
// across all subjects.
type Consumer struct {
	nc   *nats.Conn
	deps Deps
	mu   sync.Mutex
	subs []*nats.Subscription
}

// StartConsumer subscribes to BillSubject and SessionSubject in QueueGroup.
func StartConsumer(nc *nats.Conn, deps Deps) (*Consumer, error) {
	c := &Consumer{nc: nc, deps: deps}
	log := deps.logger()

	billSub, err := natsutil.Serve(nc, BillSubject, QueueGroup, log, c.handleBill)
	if err != nil {
		return nil, fmt.Errorf("ingest: subscribe %s: %w", BillSubject, err)
	}
	sessionSub, err := natsutil.Serve(nc, SessionSubject, QueueGroup, log, c.handleSession)
	if err != nil {
		_ = billSub.Unsubscribe()
		return nil, fmt.Errorf("ingest: subscribe %s: %w", SessionSubject, err)
	}
	c.subs = []*nats.Subscription{billSub, sessionSub}
	return c, nil
}

// Drain stops taking requests and waits for pending and in-flight ones to
// finish.
func (c *Consumer) Drain() error {
	for _, s := range c.subs {
		if err := s.Drain(); err != nil {
			return err
		}
	}
	for _, s := range c.subs {
		for s.IsValid() {
			time.Sleep(drainPoll)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return nil
}

func (c *Consumer) handleBill(ctx context.Context, req BillRequest) Report {
	defer trackRequest(c.deps.Metrics)()
	c.mu.Lock()
	defer c.mu.Unlock()

	var report RunReport
	if req.BillID == "" {
		report.AddFailure("request", legis.Configf("ingest: bill request without bill_id"))
	} else {
		report.AddBill(ProcessBill(ctx, c.deps, req.BillID))
	}
	return c.publish(ctx, Report{Request: "bill " + req.BillID, Report: report})
}

func (c *Consumer) handleSession(ctx context.Context, req SessionRequest) Report {
	defer trackRequest(c.deps.Metrics)()
	c.mu.Lock()
	defer c.mu.Unlock()

	s := legis.Session{Year: req.Year, Code: req.Code}
	if s.Code == "" {
		s.Code = "R"
	}
	return c.publish(ctx, Report{
		Request: "session " + s.String(),
		Report:  ProcessSession(ctx, c.deps, s, req.Limit),
	})
}

func (c *Consumer) publish(ctx context.Context, r Report) Report {
	log := c.deps.logger()
	if err := natsutil.Publish(ctx, c.nc, ReportSubject, r); err != nil {
		log.ErrorContext(ctx, "ingest: publish report", "request", r.Request, "error", err)
	}
	log.InfoContext(ctx, "ingest: request done", "request", r.Request, "report", r.Report)
	return r
}
