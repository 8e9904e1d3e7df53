package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "medadmit/pkg/platform/audit"
	"medadmit/pkg/platform/audit/sink"
)

func exceeded(subject string) audit.Event {
	return audit.Event{
		Action:  string(audit.EventRateLimitExceeded),
		Subject: subject,
	}
}

func TestPublisher_FlushesOnInterval(t *testing.T) {
	mem := sink.NewMemory()
	pub := New(mem, WithFlushInterval(10*time.Millisecond))
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), exceeded("203.0.113.0")))

	require.Eventually(t, func() bool {
		return len(mem.Events()) == 1
	}, time.Second, 5*time.Millisecond)

	got := mem.Events()[0]
	assert.Equal(t, audit.CategorySecurity, got.Category)
	assert.Equal(t, audit.SeverityInfo, got.Severity)
	assert.Equal(t, "203.0.113.0", got.Subject)
}

func TestPublisher_FlushesWhenBatchFills(t *testing.T) {
	mem := sink.NewMemory()
	pub := New(mem, WithFlushInterval(time.Hour), WithBatchSize(3))
	defer pub.Close()

	for range 3 {
		require.NoError(t, pub.Emit(context.Background(), exceeded("198.51.100.0")))
	}

	require.Eventually(t, func() bool {
		return len(mem.Events()) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestPublisher_DrainsOnClose(t *testing.T) {
	mem := sink.NewMemory()
	pub := New(mem, WithFlushInterval(time.Hour), WithBatchSize(4))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), exceeded("192.0.2.0")))
	}
	require.NoError(t, pub.Close())

	assert.Len(t, mem.Events(), 10, "all events should be drained on close")
	assert.True(t, mem.Closed())
	assert.Zero(t, pub.Pending())
}

func TestPublisher_EmitAfterCloseFails(t *testing.T) {
	pub := New(sink.NewMemory())
	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close(), "close is idempotent")

	assert.Error(t, pub.Emit(context.Background(), exceeded("192.0.2.0")))
}

func TestPublisher_BufferFullDropsOldest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer(reg)
	mem := sink.NewMemory()
	pub := New(mem, WithFlushInterval(time.Hour), WithBatchSize(100), WithBufferSize(2), WithMetrics(m))

	for _, subject := range []string{"a", "b", "c"} {
		require.NoError(t, pub.Emit(context.Background(), exceeded(subject)))
	}
	require.NoError(t, pub.Close())

	events := mem.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Subject)
	assert.Equal(t, "c", events[1].Subject)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dropped))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Emitted))
}

func TestPublisher_SinkFailureCountsDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer(reg)
	mem := sink.NewMemory()
	mem.FailWith(errors.New("broker unreachable"))
	pub := New(mem, WithFlushInterval(5*time.Millisecond), WithMetrics(m))
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), exceeded("a")))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.FlushFailures) >= 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, mem.Events())

	mem.FailWith(nil)
	require.NoError(t, pub.Emit(context.Background(), exceeded("b")))
	require.Eventually(t, func() bool {
		return len(mem.Events()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	mem := sink.NewMemory()
	pub := New(mem, WithClock(func() time.Time { return fixed }))

	require.NoError(t, pub.Emit(context.Background(), exceeded("a")))
	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	preset := exceeded("b")
	preset.Timestamp = custom
	require.NoError(t, pub.Emit(context.Background(), preset))
	require.NoError(t, pub.Close())

	events := mem.Events()
	require.Len(t, events, 2)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, custom, events[1].Timestamp, "existing timestamp is preserved")
}

func TestPublisher_ConcurrentEmit(t *testing.T) {
	mem := sink.NewMemory()
	pub := New(mem, WithFlushInterval(time.Millisecond), WithBatchSize(7))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), exceeded("x"))
		}()
	}
	wg.Wait()
	require.NoError(t, pub.Close())

	assert.Len(t, mem.Events(), 50)
}

func TestRingBuffer(t *testing.T) {
	b := NewRingBuffer(3)
	for _, s := range []string{"1", "2", "3"} {
		assert.False(t, b.Enqueue(exceeded(s)))
	}
	assert.True(t, b.Enqueue(exceeded("4")), "full buffer drops oldest")
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(1), b.Dropped())

	first := b.DequeueBatch(2)
	require.Len(t, first, 2)
	assert.Equal(t, "2", first[0].Subject)
	assert.Equal(t, "3", first[1].Subject)

	rest := b.DequeueBatch(10)
	require.Len(t, rest, 1)
	assert.Equal(t, "4", rest[0].Subject)
	assert.Nil(t, b.DequeueBatch(1))
}
