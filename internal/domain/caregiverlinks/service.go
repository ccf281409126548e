package caregiverlinks

import (
	"context"
	"errors"
	"strings"
	"time"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/platform/apperrors"

	"github.com/google/uuid"
)

type Registry struct {
	repo     Repository
	defaults []Permission
	now      func() time.Time
	newID    func() string
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithDefaultPermissions reemplaza la política por defecto (p.ej. desde config).
func WithDefaultPermissions(perms []Permission) Option {
	return func(r *Registry) {
		if len(perms) > 0 {
			r.defaults = append([]Permission(nil), perms...)
		}
	}
}

func NewRegistry(repo Repository, opts ...Option) *Registry {
	r := &Registry{
		repo:     repo,
		defaults: DefaultPermissions(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateOrActivate crea siempre un registro nuevo a partir de una solicitud aprobada.
// Un vínculo revocado nunca se reactiva; si el par ya tiene uno activo devuelve ErrConflict.
func (s *Registry) CreateOrActivate(ctx context.Context, req accessrequests.AccessRequest) (CaregiverLink, error) {
	if req.Status != accessrequests.StatusApproved {
		return CaregiverLink{}, apperrors.Conflictf("request %s is %s, not approved", req.ID, req.Status)
	}
	if strings.TrimSpace(req.RequesterID) == "" || strings.TrimSpace(req.TargetID) == "" {
		return CaregiverLink{}, apperrors.Validationf("request %s has no requester/target", req.ID)
	}

	if err := s.AssertNoActiveLink(ctx, req.RequesterID, req.TargetID); err != nil {
		return CaregiverLink{}, err
	}

	perms := make([]Permission, len(s.defaults))
	copy(perms, s.defaults)

	l := CaregiverLink{
		ID:               s.newID(),
		RequestID:        req.ID,
		RequesterID:      req.RequesterID,
		RequesterName:    req.RequesterName,
		TargetID:         req.TargetID,
		TargetName:       req.TargetName,
		TargetIdentifier: req.TargetIdentifier,
		Relationship:     req.Relationship,
		Permissions:      perms,
		IsActive:         true,
		LinkedAt:         s.now().UTC(),
	}

	// El repo vuelve a chequear el par (índice parcial en postgres, mutex en memoria).
	if err := s.repo.Create(ctx, l); err != nil {
		return CaregiverLink{}, err
	}
	return l, nil
}

// AssertNoActiveLink devuelve ErrConflict si el par ya tiene vínculo activo.
func (s *Registry) AssertNoActiveLink(ctx context.Context, requesterID, targetID string) error {
	existing, err := s.repo.GetActive(ctx, requesterID, targetID)
	switch {
	case err == nil:
		return apperrors.Conflictf("active link %s already exists for this caregiver", existing.ID)
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return err
	}
}

// ActivateFor adapta CreateOrActivate a accessrequests.LinkActivator.
func (s *Registry) ActivateFor(ctx context.Context, req accessrequests.AccessRequest) (string, error) {
	l, err := s.CreateOrActivate(ctx, req)
	if err != nil {
		return "", err
	}
	return l.ID, nil
}

func (s *Registry) Get(ctx context.Context, id string) (CaregiverLink, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return CaregiverLink{}, apperrors.Validationf("link id required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Registry) ListActive(ctx context.Context, requesterID string) ([]CaregiverLink, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, apperrors.Validationf("requester id required")
	}
	return s.repo.ListActiveByRequester(ctx, requesterID)
}

func (s *Registry) ListActiveForTarget(ctx context.Context, targetID string) ([]CaregiverLink, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, apperrors.Validationf("target id required")
	}
	return s.repo.ListActiveByTarget(ctx, targetID)
}

// Revoke desactiva el vínculo de forma irreversible. Revocar dos veces es ErrConflict.
func (s *Registry) Revoke(ctx context.Context, linkID, responderID string) (CaregiverLink, error) {
	linkID = strings.TrimSpace(linkID)
	responderID = strings.TrimSpace(responderID)
	if linkID == "" {
		return CaregiverLink{}, apperrors.Validationf("link id required")
	}
	if responderID == "" {
		return CaregiverLink{}, apperrors.Validationf("responder id required")
	}

	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return CaregiverLink{}, err
	}
	if l.TargetID != responderID {
		return CaregiverLink{}, apperrors.Forbiddenf("only the target can revoke link %s", l.ID)
	}
	if !l.IsActive {
		return CaregiverLink{}, apperrors.Conflictf("link %s already revoked", l.ID)
	}

	return s.repo.DeactivateIfActive(ctx, l.ID, s.now().UTC(), responderID)
}

// Touch marca el último acceso delegado.
func (s *Registry) Touch(ctx context.Context, linkID string) error {
	return s.repo.Touch(ctx, linkID, s.now().UTC())
}
