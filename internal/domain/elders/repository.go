package elders

import "context"

// Repository resuelve cuentas de adultos mayores. Las implementaciones devuelven
// apperrors.ErrNotFound cuando no existe la cuenta.
type Repository interface {
	GetByID(ctx context.Context, id string) (Elder, error)
	GetByIdentifier(ctx context.Context, identifier string) (Elder, error)
}

// Writer lo implementan los repos que admiten alta/actualización (memory, postgres).
type Writer interface {
	Upsert(ctx context.Context, e Elder) error
}
