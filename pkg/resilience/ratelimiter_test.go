package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 3})
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("expected allow on call %d", i)
		}
	}
	if l.Allow() {
		t.Fatal("expected rejection after burst exhausted")
	}
}

func TestLimiterUnlimited(t *testing.T) {
	l := NewLimiter(LimiterOpts{})
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("zero rate should not limit, call %d", i)
		}
		if err := l.Wait(context.Background(), 1_000_000); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func TestLimiterWaitCancelled(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	l.Allow()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLimiterTokenBudget(t *testing.T) {
	l := NewLimiter(LimiterOpts{TokensPerMinute: 600})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The first request may spend the whole minute.
	if err := l.Wait(ctx, 600); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	// 10 tokens per second cannot refill 300 before the deadline.
	if err := l.Wait(ctx, 300); err == nil {
		t.Fatal("expected the token budget to block")
	}
}

func TestLimiterOversizedCostIsClamped(t *testing.T) {
	l := NewLimiter(LimiterOpts{TokensPerMinute: 100})
	if err := l.Wait(context.Background(), 5000); err != nil {
		t.Fatalf("oversized request should take the full bucket, got %v", err)
	}
}
