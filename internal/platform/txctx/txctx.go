package txctx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// WithTx guarda la transacción en el contexto para que los repos la reutilicen.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}
