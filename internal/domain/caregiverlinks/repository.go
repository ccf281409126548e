package caregiverlinks

import (
	"context"
	"time"
)

// Reader alcanza para el evaluador de permisos.
type Reader interface {
	GetByID(ctx context.Context, id string) (CaregiverLink, error)
	// GetActive devuelve el único vínculo activo del par o apperrors.ErrNotFound.
	GetActive(ctx context.Context, requesterID, targetID string) (CaregiverLink, error)
}

type Repository interface {
	Reader

	// Create falla con apperrors.ErrConflict si el par ya tiene un vínculo activo.
	Create(ctx context.Context, l CaregiverLink) error

	// Ordenados por LinkedAt asc.
	ListActiveByRequester(ctx context.Context, requesterID string) ([]CaregiverLink, error)
	ListActiveByTarget(ctx context.Context, targetID string) ([]CaregiverLink, error)

	// DeactivateIfActive es el check-and-set de revocación: ErrConflict si ya estaba inactivo.
	DeactivateIfActive(ctx context.Context, id string, revokedAt time.Time, revokedBy string) (CaregiverLink, error)

	Touch(ctx context.Context, id string, at time.Time) error
}
