package memory

import (
	"context"
	"sort"
	"sync"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/platform/apperrors"
)

type requestRepo struct {
	mu   sync.RWMutex
	byID map[string]accessrequests.AccessRequest
}

func NewAccessRequestsRepo() accessrequests.Repository {
	return &requestRepo{
		byID: make(map[string]accessrequests.AccessRequest),
	}
}

func (r *requestRepo) Create(ctx context.Context, req accessrequests.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		return apperrors.Validationf("request id required")
	}
	if _, exists := r.byID[req.ID]; exists {
		return apperrors.Conflictf("request %s already exists", req.ID)
	}
	r.byID[req.ID] = req
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (accessrequests.AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return accessrequests.AccessRequest{}, apperrors.NotFoundf("request %s", id)
	}
	return req, nil
}

func (r *requestRepo) ListPendingByTarget(ctx context.Context, targetID string) ([]accessrequests.AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessrequests.AccessRequest, 0)
	for _, req := range r.byID {
		if req.TargetID == targetID && req.Status == accessrequests.StatusPending {
			out = append(out, req)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out, nil
}

func (r *requestRepo) ListByRequester(ctx context.Context, requesterID string) ([]accessrequests.AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessrequests.AccessRequest, 0)
	for _, req := range r.byID {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}

	// más recientes primero
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out, nil
}

func (r *requestRepo) UpdateIfPending(ctx context.Context, id string, t accessrequests.Transition) (accessrequests.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return accessrequests.AccessRequest{}, apperrors.NotFoundf("request %s", id)
	}
	if req.Status != accessrequests.StatusPending {
		return accessrequests.AccessRequest{}, apperrors.Conflictf("request %s already %s", id, req.Status)
	}

	at := t.RespondedAt
	req.Status = t.Status
	req.RespondedAt = &at
	req.RespondedBy = t.RespondedBy
	req.Notes = t.Notes
	r.byID[id] = req
	return req, nil
}
