//go:build integration

package redislock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker_MutualExclusion(t *testing.T) {
	client := newClient(t)
	// dos "instancias" sobre el mismo Redis
	a := New(client, WithBackoff(5*time.Millisecond))
	b := New(client, WithBackoff(5*time.Millisecond))

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		l := a
		if i%2 == 1 {
			l = b
		}
		go func(l *Locker) {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "pair:child-1|elder-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}(l)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestLocker_ContextDeadline(t *testing.T) {
	client := newClient(t)
	l := New(client)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_UnlockKeepsForeignToken(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	l := New(client, WithTTL(50*time.Millisecond))

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// expiró y otro proceso tomó la clave
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, client.Set(ctx, keyPrefix+"k", "other", time.Minute).Err())

	unlock()
	got, err := client.Get(ctx, keyPrefix+"k").Result()
	require.NoError(t, err)
	assert.Equal(t, "other", got)
}
