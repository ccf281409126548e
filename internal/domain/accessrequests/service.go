package accessrequests

import (
	"context"
	"strings"
	"time"

	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/apperrors"

	"github.com/google/uuid"
)

// ElderResolver traduce el documento del titular a su cuenta registrada.
type ElderResolver interface {
	ResolveIdentifier(ctx context.Context, identifier string) (elders.Elder, error)
}

// LinkActivator lo implementa el registro de vínculos. Se inyecta en Respond para
// no importar caregiverlinks desde acá (rompe ciclos).
type LinkActivator interface {
	AssertNoActiveLink(ctx context.Context, requesterID, targetID string) error
	ActivateFor(ctx context.Context, r AccessRequest) (string, error)
}

type Registry struct {
	repo   Repository
	elders ElderResolver
	now    func() time.Time
	newID  func() string
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

func NewRegistry(repo Repository, resolver ElderResolver, opts ...Option) *Registry {
	r := &Registry{
		repo:   repo,
		elders: resolver,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type CreateInput struct {
	TargetIdentifier string
	TargetName       string
	Relationship     string
	RequesterID      string
	RequesterName    string
}

func (s *Registry) Create(ctx context.Context, in CreateInput) (AccessRequest, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	requesterName := strings.TrimSpace(in.RequesterName)
	targetName := strings.TrimSpace(in.TargetName)

	if requesterID == "" {
		return AccessRequest{}, apperrors.Validationf("requester id required")
	}
	if requesterName == "" {
		return AccessRequest{}, apperrors.Validationf("requester name required")
	}

	rel, err := ParseRelationship(in.Relationship)
	if err != nil {
		return AccessRequest{}, err
	}

	// Valida formato y resuelve la cuenta; ErrValidation o ErrNotFound según el caso.
	elder, err := s.elders.ResolveIdentifier(ctx, in.TargetIdentifier)
	if err != nil {
		return AccessRequest{}, err
	}
	if elder.ID == requesterID {
		return AccessRequest{}, apperrors.Validationf("requester cannot request access to their own account")
	}
	if targetName == "" {
		targetName = elder.Name
	}

	req := AccessRequest{
		ID:               s.newID(),
		RequesterID:      requesterID,
		RequesterName:    requesterName,
		TargetID:         elder.ID,
		TargetName:       targetName,
		TargetIdentifier: elder.Identifier,
		Relationship:     rel,
		Status:           StatusPending,
		RequestedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return AccessRequest{}, err
	}
	return req, nil
}

func (s *Registry) Get(ctx context.Context, id string) (AccessRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AccessRequest{}, apperrors.Validationf("request id required")
	}
	return s.repo.GetByID(ctx, id)
}

// ListPending: oldest first. Pendientes duplicadas del mismo par se devuelven todas.
func (s *Registry) ListPending(ctx context.Context, targetID string) ([]AccessRequest, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, apperrors.Validationf("target id required")
	}
	return s.repo.ListPendingByTarget(ctx, targetID)
}

func (s *Registry) ListByRequester(ctx context.Context, requesterID string) ([]AccessRequest, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, apperrors.Validationf("requester id required")
	}
	return s.repo.ListByRequester(ctx, requesterID)
}

type RespondInput struct {
	RequestID   string
	Decision    string
	ResponderID string
	Notes       string
}

// Respond transiciona pending -> approved|rejected una sola vez. En aprobación
// crea el vínculo vía links y devuelve su id.
func (s *Registry) Respond(ctx context.Context, in RespondInput, links LinkActivator) (AccessRequest, string, error) {
	decision, err := ParseDecision(in.Decision)
	if err != nil {
		return AccessRequest{}, "", err
	}

	requestID := strings.TrimSpace(in.RequestID)
	responderID := strings.TrimSpace(in.ResponderID)
	if requestID == "" {
		return AccessRequest{}, "", apperrors.Validationf("request id required")
	}
	if responderID == "" {
		return AccessRequest{}, "", apperrors.Validationf("responder id required")
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return AccessRequest{}, "", err
	}

	// Solo el titular decide.
	if req.TargetID != responderID {
		return AccessRequest{}, "", apperrors.Forbiddenf("only the target can respond to request %s", req.ID)
	}
	if !req.IsPending() {
		return AccessRequest{}, "", apperrors.Conflictf("request %s already %s", req.ID, req.Status)
	}

	if decision == DecisionApproved {
		if links == nil {
			return AccessRequest{}, "", apperrors.Unavailablef("link registry not configured")
		}
		// Si ya hay un vínculo activo la solicitud queda pending: el titular
		// puede rechazarla o revocar el vínculo actual primero.
		if err := links.AssertNoActiveLink(ctx, req.RequesterID, req.TargetID); err != nil {
			return AccessRequest{}, "", err
		}
	}

	updated, err := s.repo.UpdateIfPending(ctx, req.ID, Transition{
		Status:      Status(decision),
		RespondedAt: s.now().UTC(),
		RespondedBy: responderID,
		Notes:       strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return AccessRequest{}, "", err
	}

	if decision != DecisionApproved {
		return updated, "", nil
	}

	linkID, err := links.ActivateFor(ctx, updated)
	if err != nil {
		return AccessRequest{}, "", err
	}
	return updated, linkID, nil
}

func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionApproved:
		return DecisionApproved, nil
	case DecisionRejected:
		return DecisionRejected, nil
	default:
		return "", apperrors.Validationf("decision must be approved or rejected, got %q", raw)
	}
}

var relationships = []Relationship{
	RelationshipSon,
	RelationshipDaughter,
	RelationshipSpouse,
	RelationshipSibling,
	RelationshipGrandchild,
	RelationshipGuardian,
	RelationshipOther,
}

// ParseRelationship acepta cualquier capitalización y devuelve la forma canónica.
func ParseRelationship(raw string) (Relationship, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", apperrors.Validationf("relationship required")
	}
	for _, r := range relationships {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", apperrors.Validationf("unknown relationship %q", raw)
}
