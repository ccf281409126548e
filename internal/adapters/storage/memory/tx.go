package memory

import "context"

// Transactor en memoria: cada repo ya es atómico por operación y la facade
// serializa por par, así que alcanza con ejecutar fn.
type Transactor struct{}

func NewTransactor() Transactor { return Transactor{} }

func (Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
