package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"medadmit/pkg/platform/sentinel"
)

const keyPrefix = "resolve:v1:"

// Redis stores entries as JSON under a hashed key so arbitrary caller input
// never reaches the keyspace verbatim.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// RedisKey returns resolve:v1:<type>:<blake2b-256 of the normalized id>.
func RedisKey(key Key) string {
	sum := blake2b.Sum256([]byte(key.Normalized))
	return keyPrefix + string(key.Type) + ":" + hex.EncodeToString(sum[:])
}

func (r *Redis) Get(ctx context.Context, key Key) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, RedisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("%w: redis get: %v", sentinel.ErrUnavailable, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Unreadable entries are treated as absent and overwritten later.
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (r *Redis) Put(ctx context.Context, key Key, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	entry.ExpiresAt = time.Now().Add(ttl)
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, RedisKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}
