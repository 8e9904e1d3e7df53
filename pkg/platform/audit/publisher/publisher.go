// Package publisher buffers audit events in memory and flushes them to a sink
// from a background loop, so emitting never blocks a request.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "medadmit/pkg/platform/audit"
)

// Sink receives flushed batches.
type Sink interface {
	Write(ctx context.Context, events []audit.Event) error
	Close() error
}

// Publisher is non-blocking: Emit enqueues into a bounded ring buffer and a
// background goroutine drains it every flush interval or when a batch fills.
type Publisher struct {
	sink          Sink
	buffer        *RingBuffer
	logger        *slog.Logger
	metrics       *Metrics
	flushInterval time.Duration
	batchSize     int
	writeTimeout  time.Duration
	now           func() time.Time

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize bounds the number of pending events.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// New creates a publisher and starts its flush loop.
// Close must be called to drain pending events.
func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:          sink,
		buffer:        NewRingBuffer(10000),
		flushInterval: 2 * time.Second,
		batchSize:     100,
		writeTimeout:  5 * time.Second,
		now:           time.Now,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	go p.run()
	return p
}

// Emit enqueues an event. It never blocks on the sink; when the buffer is
// full the oldest pending event is dropped.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	select {
	case <-p.done:
		return errors.New("audit publisher closed")
	default:
	}

	if p.buffer.Enqueue(event.Normalize(p.now())) {
		p.metrics.AddDropped(1)
		p.logger.WarnContext(ctx, "audit buffer full, dropped oldest event")
	}
	p.metrics.IncEmitted()
	p.metrics.SetBuffered(p.buffer.Len())

	if p.buffer.Len() >= p.batchSize {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}

// Close stops the flush loop, drains what is left, and closes the sink.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		<-p.stopped
		err = p.sink.Close()
	})
	return err
}

func (p *Publisher) run() {
	defer close(p.stopped)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			p.drain()
			return
		case <-ticker.C:
			p.flush()
		case <-p.wake:
			p.flush()
		}
	}
}

func (p *Publisher) drain() {
	for p.buffer.Len() > 0 {
		if !p.flush() {
			return
		}
	}
}

// flush writes one batch. Failed batches are dropped and counted; the sink is
// expected to retry internally.
func (p *Publisher) flush() bool {
	batch := p.buffer.DequeueBatch(p.batchSize)
	if len(batch) == 0 {
		return true
	}
	defer func() { p.metrics.SetBuffered(p.buffer.Len()) }()

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	if err := p.sink.Write(ctx, batch); err != nil {
		p.metrics.IncFlushFailures()
		p.metrics.AddDropped(len(batch))
		p.logger.Error("failed to flush audit events",
			"events", len(batch),
			"error", err,
		)
		return false
	}
	p.metrics.AddFlushed(len(batch))
	return true
}
