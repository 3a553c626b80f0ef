// Package natsutil provides typed NATS publish/subscribe/request helpers
// with OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultRequestTimeout bounds Request when ctx carries no deadline. Indexing a
// whole session can take minutes.
const DefaultRequestTimeout = 10 * time.Minute

// carrier exposes msg headers to the otel propagator. nats.Header and
// http.Header have the same representation.
func carrier(msg *nats.Msg) propagation.HeaderCarrier {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	return propagation.HeaderCarrier(msg.Header)
}

// newMsg encodes v as JSON and injects the trace context of ctx.
func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, carrier(msg))
	return msg, nil
}

// decode unmarshals msg into a T and extracts its trace context. Malformed
// messages are logged and reported as not ok.
func decode[T any](msg *nats.Msg, log *slog.Logger) (context.Context, T, bool) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		log.Warn("natsutil: dropping malformed message", "subject", msg.Subject, "error", err)
		return nil, v, false
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), carrier(msg))
	return ctx, v, true
}

func logger(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe registers a handler that deserializes JSON messages of type T.
// Trace context is extracted from NATS message headers and passed to the handler.
// Malformed messages are logged and dropped.
func Subscribe[T any](nc *nats.Conn, subject string, log *slog.Logger, handler func(context.Context, T)) (*nats.Subscription, error) {
	log = logger(log)
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx, v, ok := decode[T](msg, log)
		if !ok {
			return
		}
		handler(ctx, v)
	})
}

// Serve registers a request handler on subject. The handler's response is
// sent to the message's reply subject when there is one. A non-empty queue
// joins a queue group so several workers share the subject.
func Serve[Req, Resp any](nc *nats.Conn, subject, queue string, log *slog.Logger, handler func(context.Context, Req) Resp) (*nats.Subscription, error) {
	log = logger(log)
	cb := func(msg *nats.Msg) {
		ctx, req, ok := decode[Req](msg, log)
		if !ok {
			return
		}
		resp := handler(ctx, req)
		if msg.Reply == "" {
			return
		}
		out, err := newMsg(ctx, msg.Reply, resp)
		if err != nil {
			log.Error("natsutil: encode reply", "subject", subject, "error", err)
			return
		}
		if err := msg.RespondMsg(out); err != nil {
			log.Error("natsutil: reply", "subject", subject, "error", err)
		}
	}
	if queue != "" {
		return nc.QueueSubscribe(subject, queue, cb)
	}
	return nc.Subscribe(subject, cb)
}

// Request sends a JSON-encoded request and decodes the response. The deadline
// of ctx applies, or DefaultRequestTimeout when ctx has none.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	msg, err := newMsg(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}
	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("natsutil: request %s: %w", subject, err)
	}
	var result Resp
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return zero, fmt.Errorf("natsutil: decode reply from %s: %w", subject, err)
	}
	return result, nil
}
