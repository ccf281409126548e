package memory

import (
	"context"
	"sync"

	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/platform/apperrors"
)

// auditRepo guarda las entradas en orden de Sequence; append-only.
type auditRepo struct {
	mu      sync.RWMutex
	entries []auditlog.Entry
	index   map[string]int
}

func NewAuditLogRepo() auditlog.Repository {
	return &auditRepo{index: make(map[string]int)}
}

func (r *auditRepo) Append(ctx context.Context, e auditlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return apperrors.Validationf("audit entry id required")
	}
	if _, exists := r.index[e.ID]; exists {
		return apperrors.Conflictf("audit entry %s already exists", e.ID)
	}
	if n := len(r.entries); n > 0 && e.Sequence <= r.entries[n-1].Sequence {
		return apperrors.Conflictf("audit sequence %d already used", e.Sequence)
	}

	r.index[e.ID] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRepo) Last(ctx context.Context) (auditlog.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return auditlog.Entry{}, false, nil
	}
	return r.entries[len(r.entries)-1], true, nil
}

func (r *auditRepo) List(ctx context.Context, f auditlog.Filter) ([]auditlog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]auditlog.Entry, 0)
	for _, e := range r.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.SubjectID != "" && e.SubjectID != f.SubjectID {
			continue
		}
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *auditRepo) ListByStatus(ctx context.Context, status auditlog.Status, limit int) ([]auditlog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]auditlog.Entry, 0)
	for _, e := range r.entries {
		if e.Status != status {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *auditRepo) SetStatus(ctx context.Context, id string, status auditlog.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return apperrors.NotFoundf("audit entry %s", id)
	}
	if r.entries[i].Status != auditlog.StatusPending {
		return apperrors.Conflictf("audit entry %s is already %s", id, r.entries[i].Status)
	}
	r.entries[i].Status = status
	return nil
}
