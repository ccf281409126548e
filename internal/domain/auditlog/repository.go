package auditlog

import "context"

// Repository es append-only. Nunca se borran entradas; lo único mutable es el
// estado, y solo desde pending.
type Repository interface {
	// Append falla con apperrors.ErrConflict si el Sequence ya existe.
	Append(ctx context.Context, e Entry) error
	// Last devuelve la entrada de mayor Sequence; ok=false si el log está vacío.
	Last(ctx context.Context) (Entry, bool, error)
	// List en orden de Sequence ascendente.
	List(ctx context.Context, f Filter) ([]Entry, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Entry, error)
	// SetStatus solo transiciona desde pending; otro estado => apperrors.ErrConflict.
	SetStatus(ctx context.Context, id string, status Status) error
}
