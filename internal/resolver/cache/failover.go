package cache

import (
	"context"
	"log/slog"
	"time"

	"medadmit/pkg/platform/circuit"
)

// Failover serves from a primary cache and switches to a local fallback
// while the breaker is open. Writes always reach the fallback so it is warm
// when the primary goes away.
type Failover struct {
	primary  Cache
	fallback Cache
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewFailover(primary, fallback Cache, breaker *circuit.Breaker, logger *slog.Logger) *Failover {
	if breaker == nil {
		breaker = circuit.New("resolution-cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (f *Failover) Get(ctx context.Context, key Key) (Entry, bool, error) {
	entry, ok, err := f.primary.Get(ctx, key)
	if err != nil {
		f.recordFailure(ctx, err)
		return f.fallback.Get(ctx, key)
	}
	if !f.recordSuccess(ctx) {
		return f.fallback.Get(ctx, key)
	}
	return entry, ok, nil
}

func (f *Failover) Put(ctx context.Context, key Key, entry Entry, ttl time.Duration) error {
	if err := f.fallback.Put(ctx, key, entry, ttl); err != nil {
		return err
	}
	if err := f.primary.Put(ctx, key, entry, ttl); err != nil {
		f.recordFailure(ctx, err)
		return nil
	}
	f.recordSuccess(ctx)
	return nil
}

// State exposes the breaker position for health reporting.
func (f *Failover) State() circuit.State {
	return f.breaker.State()
}

func (f *Failover) recordFailure(ctx context.Context, err error) {
	_, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "resolution cache primary unavailable, using in-memory fallback",
			"breaker", f.breaker.Name(),
			"error", err,
		)
	}
}

func (f *Failover) recordSuccess(ctx context.Context) bool {
	usePrimary, change := f.breaker.RecordSuccess()
	if change.Closed {
		f.logger.InfoContext(ctx, "resolution cache primary recovered", "breaker", f.breaker.Name())
	}
	return usePrimary
}
