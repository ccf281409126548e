package accessrequests

import (
	"context"
	"time"
)

// Transition es el cambio que aplica UpdateIfPending.
type Transition struct {
	Status      Status
	RespondedAt time.Time
	RespondedBy string
	Notes       string
}

type Repository interface {
	Create(ctx context.Context, r AccessRequest) error
	GetByID(ctx context.Context, id string) (AccessRequest, error)

	// ListPendingByTarget devuelve las pendientes ordenadas por RequestedAt asc (desempate por ID).
	ListPendingByTarget(ctx context.Context, targetID string) ([]AccessRequest, error)
	// ListByRequester devuelve todas las del cuidador, más recientes primero.
	ListByRequester(ctx context.Context, requesterID string) ([]AccessRequest, error)

	// UpdateIfPending aplica la transición solo si la solicitud sigue pending
	// (check-and-set atómico). Devuelve apperrors.ErrConflict si ya no lo está.
	UpdateIfPending(ctx context.Context, id string, t Transition) (AccessRequest, error)
}
