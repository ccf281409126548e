// Package keylock serializa operaciones por clave (p.ej. el par requester/target).
package keylock

import (
	"context"
	"hash/fnv"
	"strings"
)

// Unlock libera la clave tomada por Lock. Es seguro llamarlo una sola vez.
type Unlock func()

// Locker toma un lock exclusivo por clave respetando la cancelación del contexto.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// PairKey arma la clave canónica para un par caregiver/elder.
func PairKey(requesterID, targetID string) string {
	return "pair:" + strings.TrimSpace(requesterID) + "|" + strings.TrimSpace(targetID)
}

const defaultShards = 128

// Sharded reparte las claves entre N semáforos. Claves distintas pueden compartir
// shard (y esperar de más) pero una misma clave nunca corre en paralelo.
type Sharded struct {
	shards []chan struct{}
}

func NewSharded(n int) *Sharded {
	if n <= 0 {
		n = defaultShards
	}
	shards := make([]chan struct{}, n)
	for i := range shards {
		shards[i] = make(chan struct{}, 1)
	}
	return &Sharded{shards: shards}
}

func (s *Sharded) Lock(ctx context.Context, key string) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shards[s.shardOf(key)]
	select {
	case sh <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		<-sh
	}, nil
}

func (s *Sharded) shardOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.shards)))
}
