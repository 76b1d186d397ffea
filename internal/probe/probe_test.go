package probe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

type staticProbe struct {
	name string
	err  error
}

func (p staticProbe) Name() string                    { return p.name }
func (p staticProbe) Check(ctx context.Context) error { return p.err }

func TestReport(t *testing.T) {
	probes := []Probe{
		staticProbe{name: "redis"},
		staticProbe{name: "postgres", err: errors.New("connection refused")},
	}

	got := Report(context.Background(), probes)

	if got["redis"] != "ok" {
		t.Errorf("expected redis to report ok, got %q", got["redis"])
	}
	if got["postgres"] != "error: connection refused" {
		t.Errorf("expected postgres to report the error, got %q", got["postgres"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}

func TestReport_Empty(t *testing.T) {
	got := Report(context.Background(), nil)
	if len(got) != 0 {
		t.Errorf("expected an empty report, got %v", got)
	}
}

func TestRedisProbe_Check(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis probe test")
	}

	p := NewRedis(addr)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.Check(ctx); err != nil {
		t.Fatalf("expected Redis at %s to be reachable: %v", addr, err)
	}
	if p.Name() != "redis" {
		t.Errorf("unexpected probe name %q", p.Name())
	}
}
