package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/platform/apperrors"
)

type linkRepo struct {
	mu   sync.RWMutex
	byID map[string]caregiverlinks.CaregiverLink
	// active indexa el vínculo activo por par requester|target
	active map[string]string
}

func NewCaregiverLinksRepo() caregiverlinks.Repository {
	return &linkRepo{
		byID:   make(map[string]caregiverlinks.CaregiverLink),
		active: make(map[string]string),
	}
}

func pairKey(requesterID, targetID string) string {
	return requesterID + "|" + targetID
}

func (r *linkRepo) Create(ctx context.Context, l caregiverlinks.CaregiverLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		return apperrors.Validationf("link id required")
	}
	if _, exists := r.byID[l.ID]; exists {
		return apperrors.Conflictf("link %s already exists", l.ID)
	}
	key := pairKey(l.RequesterID, l.TargetID)
	if l.IsActive {
		if other, ok := r.active[key]; ok {
			return apperrors.Conflictf("active link %s already exists for this caregiver", other)
		}
		r.active[key] = l.ID
	}
	r.byID[l.ID] = cloneLink(l)
	return nil
}

func (r *linkRepo) GetByID(ctx context.Context, id string) (caregiverlinks.CaregiverLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return caregiverlinks.CaregiverLink{}, apperrors.NotFoundf("link %s", id)
	}
	return cloneLink(l), nil
}

func (r *linkRepo) GetActive(ctx context.Context, requesterID, targetID string) (caregiverlinks.CaregiverLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.active[pairKey(requesterID, targetID)]
	if !ok {
		return caregiverlinks.CaregiverLink{}, apperrors.NotFoundf("no active link for %s -> %s", requesterID, targetID)
	}
	return cloneLink(r.byID[id]), nil
}

func (r *linkRepo) ListActiveByRequester(ctx context.Context, requesterID string) ([]caregiverlinks.CaregiverLink, error) {
	return r.listActive(func(l caregiverlinks.CaregiverLink) bool { return l.RequesterID == requesterID }), nil
}

func (r *linkRepo) ListActiveByTarget(ctx context.Context, targetID string) ([]caregiverlinks.CaregiverLink, error) {
	return r.listActive(func(l caregiverlinks.CaregiverLink) bool { return l.TargetID == targetID }), nil
}

func (r *linkRepo) listActive(match func(caregiverlinks.CaregiverLink) bool) []caregiverlinks.CaregiverLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]caregiverlinks.CaregiverLink, 0)
	for _, id := range r.active {
		l := r.byID[id]
		if match(l) {
			out = append(out, cloneLink(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LinkedAt.Equal(out[j].LinkedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LinkedAt.Before(out[j].LinkedAt)
	})
	return out
}

func (r *linkRepo) DeactivateIfActive(ctx context.Context, id string, revokedAt time.Time, revokedBy string) (caregiverlinks.CaregiverLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return caregiverlinks.CaregiverLink{}, apperrors.NotFoundf("link %s", id)
	}
	if !l.IsActive {
		return caregiverlinks.CaregiverLink{}, apperrors.Conflictf("link %s already revoked", id)
	}

	l.IsActive = false
	l.RevokedAt = &revokedAt
	l.RevokedBy = revokedBy
	r.byID[id] = l
	delete(r.active, pairKey(l.RequesterID, l.TargetID))
	return cloneLink(l), nil
}

func (r *linkRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return apperrors.NotFoundf("link %s", id)
	}
	l.LastAccessedAt = &at
	r.byID[id] = l
	return nil
}

// cloneLink evita que el llamador modifique los permisos guardados.
func cloneLink(l caregiverlinks.CaregiverLink) caregiverlinks.CaregiverLink {
	if l.Permissions != nil {
		perms := make([]caregiverlinks.Permission, len(l.Permissions))
		copy(perms, l.Permissions)
		l.Permissions = perms
	}
	return l
}
