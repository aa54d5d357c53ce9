package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestCacheHelper_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	h := NewCacheHelper(client, "user:")

	require.NoError(t, h.Set(ctx, "id:1", profile{ID: "1", Name: "Mia"}, time.Minute))
	assert.True(t, mr.Exists("user:id:1"))

	var got profile
	require.NoError(t, h.Get(ctx, "id:1", &got))
	assert.Equal(t, "Mia", got.Name)

	require.NoError(t, h.Delete(ctx, "id:1"))
	assert.ErrorIs(t, h.Get(ctx, "id:1", &got), ErrCacheNotFound)
}

func TestCacheHelper_NilClientDegrades(t *testing.T) {
	ctx := context.Background()
	h := NewCacheHelper(nil, "user:")

	assert.NoError(t, h.Set(ctx, "k", "v", time.Minute))
	assert.ErrorIs(t, h.Get(ctx, "k", new(string)), ErrCacheNotAvailable)
	assert.NoError(t, h.InvalidatePattern(ctx, "*"))

	calls := 0
	var got profile
	err := h.CacheOrExecute(ctx, "k", &got, time.Minute, func() (interface{}, error) {
		calls++
		return profile{ID: "7"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
	assert.Equal(t, 1, calls)
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	h := NewCacheHelper(client, "user:")

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return profile{ID: "1", Name: "Ali"}, nil
	}

	var first, second profile
	require.NoError(t, h.CacheOrExecute(ctx, "id:1", &first, time.Minute, fetch))
	require.NoError(t, h.CacheOrExecute(ctx, "id:1", &second, time.Minute, fetch))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	boom := errors.New("directory down")
	err := h.CacheOrExecute(ctx, "id:2", &first, time.Minute, func() (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	h := NewCacheHelper(client, "user:")

	for _, k := range []string{"list:a", "list:b", "id:1"} {
		require.NoError(t, h.SetString(ctx, k, "x", time.Minute))
	}
	require.NoError(t, h.InvalidatePattern(ctx, "list:*"))

	assert.False(t, mr.Exists("user:list:a"))
	assert.False(t, mr.Exists("user:list:b"))
	assert.True(t, mr.Exists("user:id:1"))
}

func TestSequence_Next(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	seq := NewCacheManager(client).Sequence("uid")

	v, err := seq.Next(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), v)

	v, err = seq.Next(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), v)

	// counter lost behind the database
	mr.FlushAll()
	v, err = seq.Next(ctx, 1010)
	require.NoError(t, err)
	assert.Equal(t, int64(1010), v)

	require.NoError(t, client.Set(ctx, "seq:uid", 3, 0).Err())
	v, err = seq.Next(ctx, 1011)
	require.NoError(t, err)
	assert.Equal(t, int64(1011), v)
}

func TestSequence_ConcurrentCallersGetDistinctValues(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	seq := NewSequence(client, "seq:uid")

	const n = 50
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(ctx, 1001)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestSequence_Unavailable(t *testing.T) {
	_, err := NewSequence(nil, "seq:uid").Next(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
}
