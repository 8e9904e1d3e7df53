package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"medadmit/internal/resolver/models"
	"medadmit/pkg/platform/circuit"
)

var (
	collegeRecord = &models.Record{ID: "c1", Type: models.EntityCollege, Name: "MADRAS MEDICAL COLLEGE"}
	keyMMC        = Key{Type: models.EntityCollege, Normalized: "madras medical college"}
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestEntryApply(t *testing.T) {
	exact := Entry{Result: models.Matched(models.MethodLinkTable, collegeRecord, 1)}
	fuzzy := Entry{Result: models.Matched(models.MethodFuzzy, collegeRecord, 0.8)}
	miss := Entry{Result: models.NotFound(), Threshold: 0.7}
	keyMiss := Entry{Result: models.NotFound()}

	tests := []struct {
		name       string
		entry      Entry
		threshold  float64
		wantLookup Lookup
		wantMethod models.Method
	}{
		{"exact ignores threshold", exact, 1, LookupHit, models.MethodLinkTable},
		{"fuzzy above threshold", fuzzy, 0.7, LookupHit, models.MethodFuzzy},
		{"fuzzy at threshold", fuzzy, 0.8, LookupHit, models.MethodFuzzy},
		{"fuzzy below threshold becomes not found", fuzzy, 0.9, LookupHit, models.MethodNotFound},
		{"not found reused at stricter threshold", miss, 0.9, LookupHit, models.MethodNotFound},
		{"not found reused at same threshold", miss, 0.7, LookupHit, models.MethodNotFound},
		{"not found is a miss at looser threshold", miss, 0.5, LookupMiss, ""},
		{"threshold-free not found always holds", keyMiss, 0, LookupHit, models.MethodNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, lookup := tt.entry.Apply(tt.threshold)
			assert.Equal(t, tt.wantLookup, lookup)
			if lookup == LookupHit {
				assert.Equal(t, tt.wantMethod, r.Method)
			}
		})
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("hit until expiry", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		m := NewMemory(10, WithClock(clock.Now))
		require.NoError(t, m.Put(ctx, keyMMC, Entry{Result: models.Matched(models.MethodDirect, collegeRecord, 1)}, time.Minute))

		e, ok, err := m.Get(ctx, keyMMC)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, clock.t.Add(time.Minute), e.ExpiresAt)

		clock.Advance(time.Minute)
		_, ok, err = m.Get(ctx, keyMMC)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are scoped by type", func(t *testing.T) {
		m := NewMemory(10)
		require.NoError(t, m.Put(ctx, keyMMC, Entry{Result: models.NotFound()}, time.Minute))
		_, ok, _ := m.Get(ctx, Key{Type: models.EntityCourse, Normalized: keyMMC.Normalized})
		assert.False(t, ok)
	})

	t.Run("overwrite replaces entry", func(t *testing.T) {
		m := NewMemory(10)
		require.NoError(t, m.Put(ctx, keyMMC, Entry{Result: models.NotFound()}, time.Minute))
		require.NoError(t, m.Put(ctx, keyMMC, Entry{Result: models.Matched(models.MethodFuzzy, collegeRecord, 0.9)}, time.Minute))
		e, ok, _ := m.Get(ctx, keyMMC)
		require.True(t, ok)
		assert.Equal(t, models.MethodFuzzy, e.Result.Method)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("evicts oldest insert at capacity", func(t *testing.T) {
		m := NewMemory(2)
		a := Key{Type: models.EntityState, Normalized: "a"}
		b := Key{Type: models.EntityState, Normalized: "b"}
		c := Key{Type: models.EntityState, Normalized: "c"}
		for _, k := range []Key{a, b, c} {
			require.NoError(t, m.Put(ctx, k, Entry{Result: models.NotFound()}, time.Minute))
		}
		_, okA, _ := m.Get(ctx, a)
		_, okC, _ := m.Get(ctx, c)
		assert.False(t, okA)
		assert.True(t, okC)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("drops expired entries before evicting live ones", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		m := NewMemory(2, WithClock(clock.Now))
		live := Key{Type: models.EntityState, Normalized: "live"}
		short := Key{Type: models.EntityState, Normalized: "short"}
		require.NoError(t, m.Put(ctx, live, Entry{Result: models.NotFound()}, time.Hour))
		require.NoError(t, m.Put(ctx, short, Entry{Result: models.NotFound()}, time.Second))
		clock.Advance(2 * time.Second)

		require.NoError(t, m.Put(ctx, keyMMC, Entry{Result: models.NotFound()}, time.Hour))
		_, ok, _ := m.Get(ctx, live)
		assert.True(t, ok)
	})

	t.Run("non-positive ttl is not stored", func(t *testing.T) {
		m := NewMemory(2)
		require.NoError(t, m.Put(ctx, keyMMC, Entry{Result: models.NotFound()}, 0))
		assert.Zero(t, m.Len())
	})
}

type RedisCacheSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	cache  *Redis
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.cache = NewRedis(s.client)
}

func (s *RedisCacheSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *RedisCacheSuite) TestRoundTripWithTTL() {
	ctx := context.Background()
	entry := Entry{Result: models.Matched(models.MethodFuzzy, collegeRecord, 0.8123)}
	s.Require().NoError(s.cache.Put(ctx, keyMMC, entry, 10*time.Minute))

	got, ok, err := s.cache.Get(ctx, keyMMC)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.True(entry.Result.Equal(got.Result))

	s.Equal(10*time.Minute, s.mr.TTL(RedisKey(keyMMC)))
	s.mr.FastForward(10 * time.Minute)
	_, ok, err = s.cache.Get(ctx, keyMMC)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisCacheSuite) TestKeyIsHashed() {
	key := RedisKey(Key{Type: models.EntityCollege, Normalized: "some very long caller supplied text"})
	s.Regexp(`^resolve:v1:college:[0-9a-f]{64}$`, key)
}

func (s *RedisCacheSuite) TestCorruptEntryIsAMiss() {
	ctx := context.Background()
	s.Require().NoError(s.mr.Set(RedisKey(keyMMC), "{not json"))
	_, ok, err := s.cache.Get(ctx, keyMMC)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisCacheSuite) TestFailoverUsesFallbackWhenPrimaryDown() {
	ctx := context.Background()
	fallback := NewMemory(10)
	breaker := circuit.New("test-cache", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	f := NewFailover(s.cache, fallback, breaker, nil)

	entry := Entry{Result: models.Matched(models.MethodDirect, collegeRecord, 1)}
	s.Require().NoError(f.Put(ctx, keyMMC, entry, time.Minute))

	s.mr.Close()

	for range 2 {
		got, ok, err := f.Get(ctx, keyMMC)
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal(models.MethodDirect, got.Result.Method)
	}
	s.Equal(circuit.StateOpen, f.State())

	s.Require().NoError(f.Put(ctx, Key{Type: models.EntityState, Normalized: "kl"}, entry, time.Minute))
	_, ok, _ := fallback.Get(ctx, Key{Type: models.EntityState, Normalized: "kl"})
	s.True(ok)
}
