package memory

import (
	"context"
	"sync"
	"time"

	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/apperrors"
)

type ElderRepo struct {
	mu           sync.RWMutex
	byID         map[string]elders.Elder
	byIdentifier map[string]string
}

func NewEldersRepo() *ElderRepo {
	return &ElderRepo{
		byID:         make(map[string]elders.Elder),
		byIdentifier: make(map[string]string),
	}
}

// Upsert se usa para sembrar el directorio desde config.
func (r *ElderRepo) Upsert(ctx context.Context, e elders.Elder) error {
	if e.ID == "" {
		return apperrors.Validationf("elder id required")
	}
	identifier, err := elders.NormalizeIdentifier(e.Identifier)
	if err != nil {
		return err
	}
	e.Identifier = identifier

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byIdentifier[identifier]; ok && owner != e.ID {
		return apperrors.Conflictf("identifier already registered to another elder")
	}
	now := time.Now().UTC()
	if prev, ok := r.byID[e.ID]; ok {
		delete(r.byIdentifier, prev.Identifier)
		e.CreatedAt = prev.CreatedAt
	} else if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	r.byID[e.ID] = e
	r.byIdentifier[identifier] = e.ID
	return nil
}

func (r *ElderRepo) GetByID(ctx context.Context, id string) (elders.Elder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return elders.Elder{}, apperrors.NotFoundf("elder %s", id)
	}
	return e, nil
}

func (r *ElderRepo) GetByIdentifier(ctx context.Context, identifier string) (elders.Elder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIdentifier[identifier]
	if !ok {
		return elders.Elder{}, apperrors.NotFoundf("no elder registered with that identifier")
	}
	return r.byID[id], nil
}
