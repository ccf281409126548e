// Package accesscontrol es el único punto de entrada al flujo de acceso de cuidadores:
// coordina solicitudes, vínculos, permisos y auditoría.
package accesscontrol

import (
	"context"
	"errors"
	"strings"
	"time"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/apperrors"
	"caregiver-access/internal/platform/keylock"
	"caregiver-access/internal/platform/logger"
	"caregiver-access/internal/platform/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transactor ejecuta fn dentro de una transacción del store (no-op en memoria).
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Requests  *accessrequests.Registry
	Links     *caregiverlinks.Registry
	Evaluator *caregiverlinks.Evaluator
	Elders    *elders.Directory
	Audit     *auditlog.Log

	Locker keylock.Locker
	Tx     Transactor

	Logger  logger.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	// OperationTimeout acota cada operación; 0 = sin límite propio.
	OperationTimeout time.Duration
}

type Service struct {
	requests  *accessrequests.Registry
	links     *caregiverlinks.Registry
	evaluator *caregiverlinks.Evaluator
	elders    *elders.Directory
	audit     *auditlog.Log

	locker keylock.Locker
	tx     Transactor

	log     logger.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	timeout time.Duration
}

func New(d Deps) *Service {
	s := &Service{
		requests:  d.Requests,
		links:     d.Links,
		evaluator: d.Evaluator,
		elders:    d.Elders,
		audit:     d.Audit,
		locker:    d.Locker,
		tx:        d.Tx,
		log:       d.Logger,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
		timeout:   d.OperationTimeout,
	}
	if s.locker == nil {
		s.locker = keylock.NewSharded(0)
	}
	if s.tx == nil {
		s.tx = noTx{}
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("caregiver-access/accesscontrol")
	}
	s.log = s.log.With(map[string]any{"component": "accesscontrol"})
	return s
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// -------------------------
// Operaciones
// -------------------------

func (s *Service) CreateRequest(ctx context.Context, in accessrequests.CreateInput) (req accessrequests.AccessRequest, err error) {
	ctx, done := s.begin(ctx, "create_request", attribute.String("requester_id", in.RequesterID))
	defer func() { err = done(err) }()

	req, err = s.requests.Create(ctx, in)
	if err != nil {
		return accessrequests.AccessRequest{}, err
	}

	s.appendAudit(ctx, auditlog.ActionRequestCreated, req.RequesterID, req.ID, requestSnapshot(req))
	return req, nil
}

func (s *Service) ListPending(ctx context.Context, targetID string) (items []accessrequests.AccessRequest, err error) {
	ctx, done := s.begin(ctx, "list_pending", attribute.String("target_id", targetID))
	defer func() { err = done(err) }()

	return s.requests.ListPending(ctx, targetID)
}

type RespondResult struct {
	Request accessrequests.AccessRequest
	// Link solo viene en aprobaciones.
	Link *caregiverlinks.CaregiverLink
}

// Respond aplica la decisión del titular. La verificación pending y la creación del
// vínculo corren bajo el lock del par y dentro de una transacción; la auditoría se
// agrega después y sus fallos no anulan la respuesta.
func (s *Service) Respond(ctx context.Context, in accessrequests.RespondInput) (res RespondResult, err error) {
	ctx, done := s.begin(ctx, "respond", attribute.String("request_id", in.RequestID), attribute.String("decision", in.Decision))
	defer func() { err = done(err) }()

	if _, err := accessrequests.ParseDecision(in.Decision); err != nil {
		return RespondResult{}, err
	}

	current, err := s.requests.Get(ctx, in.RequestID)
	if err != nil {
		return RespondResult{}, err
	}

	unlock, err := s.lockPair(ctx, current.RequesterID, current.TargetID)
	if err != nil {
		return RespondResult{}, err
	}
	defer unlock()

	var (
		updated accessrequests.AccessRequest
		link    *caregiverlinks.CaregiverLink
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var linkID string
		var err error
		updated, linkID, err = s.requests.Respond(ctx, in, s.links)
		if err != nil {
			return err
		}
		if linkID == "" {
			return nil
		}
		l, err := s.links.Get(ctx, linkID)
		if err != nil {
			return err
		}
		link = &l
		return nil
	})
	if err != nil {
		return RespondResult{}, err
	}

	s.appendAudit(ctx, auditlog.ActionRequestResponded, updated.RespondedBy, updated.ID, requestSnapshot(updated))
	if link != nil {
		s.appendAudit(ctx, auditlog.ActionAccessGranted, updated.RespondedBy, link.ID, linkSnapshot(*link))
	}

	return RespondResult{Request: updated, Link: link}, nil
}

func (s *Service) ListActive(ctx context.Context, requesterID string) (items []caregiverlinks.CaregiverLink, err error) {
	ctx, done := s.begin(ctx, "list_active", attribute.String("requester_id", requesterID))
	defer func() { err = done(err) }()

	return s.links.ListActive(ctx, requesterID)
}

// Revoke desactiva el vínculo. Revocar un vínculo ya inactivo es ErrConflict.
func (s *Service) Revoke(ctx context.Context, linkID, responderID string) (ok bool, err error) {
	ctx, done := s.begin(ctx, "revoke", attribute.String("link_id", linkID))
	defer func() { err = done(err) }()

	current, err := s.links.Get(ctx, linkID)
	if err != nil {
		return false, err
	}

	unlock, err := s.lockPair(ctx, current.RequesterID, current.TargetID)
	if err != nil {
		return false, err
	}
	defer unlock()

	var revoked caregiverlinks.CaregiverLink
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = s.links.Revoke(ctx, linkID, responderID)
		return err
	})
	if err != nil {
		return false, err
	}

	s.appendAudit(ctx, auditlog.ActionAccessRevoked, revoked.RevokedBy, revoked.ID, linkSnapshot(revoked))
	return true, nil
}

// HasPermission es lectura pura: no audita ni toca LastAccessedAt.
func (s *Service) HasPermission(ctx context.Context, requesterID, targetID, resource, action string) (ok bool, err error) {
	ctx, done := s.begin(ctx, "has_permission",
		attribute.String("requester_id", requesterID),
		attribute.String("target_id", targetID),
		attribute.String("permission", resource+":"+action),
	)
	defer func() { err = done(err) }()

	return s.evaluator.HasPermission(ctx, requesterID, targetID, resource, action)
}

// ParentProfile devuelve el perfil del titular si el cuidador tiene basic_info:read.
func (s *Service) ParentProfile(ctx context.Context, requesterID, targetID string) (p elders.Profile, err error) {
	ctx, done := s.begin(ctx, "parent_profile", attribute.String("requester_id", requesterID), attribute.String("target_id", targetID))
	defer func() { err = done(err) }()

	link, ok, err := s.evaluator.ActiveLink(ctx, requesterID, targetID)
	if err != nil {
		return elders.Profile{}, err
	}
	if !ok || !link.Grants(caregiverlinks.ResourceBasicInfo, caregiverlinks.ActionRead) {
		return elders.Profile{}, apperrors.Forbiddenf("no basic_info:read permission for this account")
	}

	p, err = s.elders.GetProfile(ctx, strings.TrimSpace(targetID))
	if err != nil {
		return elders.Profile{}, err
	}

	if err := s.links.Touch(ctx, link.ID); err != nil {
		s.log.Warn("link touch failed", map[string]any{"link_id": link.ID, "error": err})
	}
	return p, nil
}

func (s *Service) ListRequestsByRequester(ctx context.Context, requesterID string) (items []accessrequests.AccessRequest, err error) {
	ctx, done := s.begin(ctx, "list_outgoing", attribute.String("requester_id", requesterID))
	defer func() { err = done(err) }()

	return s.requests.ListByRequester(ctx, requesterID)
}

func (s *Service) ListLinksForTarget(ctx context.Context, targetID string) (items []caregiverlinks.CaregiverLink, err error) {
	ctx, done := s.begin(ctx, "list_links_for_target", attribute.String("target_id", targetID))
	defer func() { err = done(err) }()

	return s.links.ListActiveForTarget(ctx, targetID)
}

func (s *Service) ListAudit(ctx context.Context, f auditlog.Filter) (items []auditlog.Entry, err error) {
	ctx, done := s.begin(ctx, "list_audit")
	defer func() { err = done(err) }()

	return s.audit.List(ctx, f)
}

// -------------------------
// helpers
// -------------------------

// begin abre span, aplica el timeout y devuelve el cierre que clasifica el error.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error) error) {
	started := time.Now()

	var cancel context.CancelFunc = func() {}
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	ctx, span := s.tracer.Start(ctx, "accesscontrol."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) error {
		defer cancel()
		defer span.End()

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = apperrors.Unavailable(err)
		}

		outcome := "ok"
		if err != nil {
			outcome = apperrors.Kind(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		s.metrics.Observe(op, outcome, started)

		if outcome == apperrors.KindInternal || outcome == apperrors.KindUnavailable {
			s.log.Error(op+" failed", map[string]any{"error": err})
		}
		return err
	}
}

func (s *Service) lockPair(ctx context.Context, requesterID, targetID string) (keylock.Unlock, error) {
	unlock, err := s.locker.Lock(ctx, keylock.PairKey(requesterID, targetID))
	if err != nil {
		return nil, apperrors.Unavailable(err)
	}
	return unlock, nil
}

// appendAudit es best-effort: la mutación ya quedó aplicada.
func (s *Service) appendAudit(ctx context.Context, action auditlog.Action, actorID, subjectID string, payload any) {
	if s.audit == nil {
		return
	}
	// la operación ya terminó: el timeout del llamador no debe cortar el append
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	e, err := s.audit.Append(ctx, auditlog.Record{
		Action:    action,
		ActorID:   actorID,
		SubjectID: subjectID,
		Payload:   payload,
	})
	if err != nil {
		s.metrics.IncAuditAppendFailure()
		s.log.Error("audit append failed", map[string]any{
			"action":     string(action),
			"subject_id": subjectID,
			"error":      err,
		})
		return
	}
	s.log.Debug("audit appended", map[string]any{"action": string(action), "tx_id": e.ID, "seq": e.Sequence})
}
