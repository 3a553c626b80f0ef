package embed

import (
	"context"

	"github.com/WessleyAI/legisearch/pkg/resilience"
	"github.com/WessleyAI/legisearch/pkg/tokenizer"
)

// Limited paces provider calls through a shared limiter. Each batch is
// charged one request plus its input tokens. A call that cannot start before
// ctx ends fails; nothing is retried.
type Limited struct {
	next    Embedder
	limiter *resilience.Limiter
	counter tokenizer.Counter
}

// NewLimited wraps next with limiter. A nil counter estimates tokens from
// text length.
func NewLimited(next Embedder, limiter *resilience.Limiter, counter tokenizer.Counter) *Limited {
	if counter == nil {
		counter = tokenizer.Estimate{}
	}
	return &Limited{next: next, limiter: limiter, counter: counter}
}

func (l *Limited) Model() string { return l.next.Model() }

func (l *Limited) Embed(ctx context.Context, text string) ([]float32, error) {
	return single(ctx, l, text)
}

func (l *Limited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	cost := 0
	for _, t := range texts {
		cost += l.counter.CountTokens(t)
	}
	if err := l.limiter.Wait(ctx, cost); err != nil {
		return nil, err
	}
	return l.next.EmbedBatch(ctx, texts)
}
