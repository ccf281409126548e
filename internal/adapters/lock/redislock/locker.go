// Package redislock implementa keylock.Locker sobre Redis para varias instancias
// del servicio compartiendo el mismo par requester/target.
package redislock

import (
	"context"
	"fmt"
	"time"

	"caregiver-access/internal/platform/keylock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "caregiver-access:lock:"
	defaultTTL     = 10 * time.Second
	defaultBackoff = 25 * time.Millisecond
)

// borra solo si el token sigue siendo nuestro
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	client  *redis.Client
	ttl     time.Duration
	backoff time.Duration
}

type Option func(*Locker)

// WithTTL acota cuánto vive un lock si el proceso muere sin liberarlo.
func WithTTL(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.backoff = d
		}
	}
}

func New(client *redis.Client, opts ...Option) *Locker {
	l := &Locker{client: client, ttl: defaultTTL, backoff: defaultBackoff}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Connect parsea la URL y verifica la conexión con un PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Lock reintenta SET NX hasta conseguir la clave o hasta que venza el contexto.
func (l *Locker) Lock(ctx context.Context, key string) (keylock.Unlock, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.backoff)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// el ctx de la operación puede estar vencido; liberamos igual
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err()
	}, nil
}

var _ keylock.Locker = (*Locker)(nil)
