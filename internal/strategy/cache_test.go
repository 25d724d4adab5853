// AngelaMos | 2026
// cache_test.go

package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvix/planvix-api/internal/config"
)

type scriptedRedis struct {
	getResult string
	getErr    error
	setErr    error

	setKey   string
	setValue []byte
	setTTL   time.Duration
	delKeys  []string
}

func (s *scriptedRedis) Get(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult(s.getResult, s.getErr)
}

func (s *scriptedRedis) Set(
	_ context.Context,
	key string,
	value interface{},
	expiration time.Duration,
) *redis.StatusCmd {
	s.setKey = key
	s.setValue = value.([]byte)
	s.setTTL = expiration
	return redis.NewStatusResult("OK", s.setErr)
}

func (s *scriptedRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	s.delKeys = append(s.delKeys, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func newTestCache(client redisCmdable) *Cache {
	return NewCache(client, config.CacheConfig{
		TTL:       24 * time.Hour,
		KeyPrefix: "strategy:",
	}, slog.Default())
}

func TestCacheGetHit(t *testing.T) {
	raw, err := json.Marshal(sampleDocument())
	require.NoError(t, err)

	cache := newTestCache(&scriptedRedis{getResult: string(raw)})

	doc, ok := cache.Get(context.Background(), "abc")
	require.True(t, ok)
	assert.Equal(t, 1800, doc.TokenUsage)
	assert.Equal(t, "Teardowns", doc.Pillars[0].PillarName)
}

func TestCacheGetMiss(t *testing.T) {
	cache := newTestCache(&scriptedRedis{getErr: redis.Nil})

	doc, ok := cache.Get(context.Background(), "abc")
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestCacheGetAbsorbsBackendFailure(t *testing.T) {
	cache := newTestCache(&scriptedRedis{
		getErr: errors.New("connection refused"),
	})

	_, ok := cache.Get(context.Background(), "abc")
	assert.False(t, ok, "a broken cache degrades to a miss")
}

func TestCacheGetEvictsCorruptEntry(t *testing.T) {
	client := &scriptedRedis{getResult: "{not json"}
	cache := newTestCache(client)

	_, ok := cache.Get(context.Background(), "abc")
	assert.False(t, ok)
	assert.Equal(t, []string{"strategy:abc"}, client.delKeys)
}

func TestCachePutAppliesPrefixAndTTL(t *testing.T) {
	client := &scriptedRedis{}
	cache := newTestCache(client)

	cache.Put(context.Background(), "abc", sampleDocument())

	assert.Equal(t, "strategy:abc", client.setKey)
	assert.Equal(t, 24*time.Hour, client.setTTL)

	var stored Document
	require.NoError(t, json.Unmarshal(client.setValue, &stored))
	assert.Equal(t, 1800, stored.TokenUsage)
}

func TestCachePutAbsorbsBackendFailure(t *testing.T) {
	client := &scriptedRedis{setErr: errors.New("connection refused")}
	cache := newTestCache(client)

	// Must not panic or surface the error.
	cache.Put(context.Background(), "abc", sampleDocument())
}
