//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medadmit/internal/ratelimit/store/bucket"
	"medadmit/pkg/testutil/containers"
)

// TestRedisBucketStore_ConcurrentReplicas checks that two store instances
// sharing one Redis enforce one combined window.
func TestRedisBucketStore_ConcurrentReplicas(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()
	require.NoError(t, rc.Client.FlushDB(ctx).Err())

	replicas := []*bucket.RedisBucketStore{bucket.NewRedis(rc.Client), bucket.NewRedis(rc.Client)}
	const limit = 10
	var wg sync.WaitGroup
	var allowed atomic.Int32

	for i := range 50 {
		store := replicas[i%2]
		wg.Go(func() {
			res, err := store.Allow(ctx, "ratelimit:ip:203.0.113.7:resolve", limit, time.Minute)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		})
	}
	wg.Wait()
	require.Equal(t, int32(limit), allowed.Load())

	ttl, err := rc.Client.PTTL(ctx, "ratelimit:ip:203.0.113.7:resolve").Result()
	require.NoError(t, err)
	require.Positive(t, ttl)
}
