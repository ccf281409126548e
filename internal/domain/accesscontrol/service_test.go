package accesscontrol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"caregiver-access/internal/adapters/storage/memory"
	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/apperrors"
	"caregiver-access/internal/platform/keylock"
	"caregiver-access/internal/platform/logger"
	"caregiver-access/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	audit    auditlog.Repository
	links    caregiverlinks.Repository
	requests accessrequests.Repository
	metrics  *metrics.Metrics
}

type fixtureOpt func(*Deps, *fixture)

func withAuditRepo(repo auditlog.Repository) fixtureOpt {
	return func(d *Deps, f *fixture) {
		f.audit = repo
		d.Audit = auditlog.NewLog(repo)
	}
}

func withLocker(l keylock.Locker) fixtureOpt {
	return func(d *Deps, _ *fixture) { d.Locker = l }
}

func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()

	dob := time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC)
	elderRepo := memory.NewEldersRepo()
	require.NoError(t, elderRepo.Upsert(context.Background(), elders.Elder{
		ID:          "elder-1",
		Name:        "Madam Lee",
		Identifier:  "850101-01-1234",
		DateOfBirth: &dob,
		Phone:       "012-3456789",
	}))
	require.NoError(t, elderRepo.Upsert(context.Background(), elders.Elder{
		ID:         "elder-2",
		Name:       "Mr Tan",
		Identifier: "400505-10-5555",
	}))

	f := &fixture{
		audit:    memory.NewAuditLogRepo(),
		links:    memory.NewCaregiverLinksRepo(),
		requests: memory.NewAccessRequestsRepo(),
		metrics:  metrics.New(),
	}
	dir := elders.NewDirectory(elderRepo)
	linkRegistry := caregiverlinks.NewRegistry(f.links)

	d := Deps{
		Requests:         accessrequests.NewRegistry(f.requests, dir),
		Links:            linkRegistry,
		Evaluator:        caregiverlinks.NewEvaluator(f.links),
		Elders:           dir,
		Audit:            auditlog.NewLog(f.audit),
		Tx:               memory.NewTransactor(),
		Logger:           logger.NewNop(),
		Metrics:          f.metrics,
		OperationTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&d, f)
	}
	f.svc = New(d)
	return f
}

func (f *fixture) create(t *testing.T, requesterID string) accessrequests.AccessRequest {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), accessrequests.CreateInput{
		TargetIdentifier: "850101-01-1234",
		TargetName:       "Madam Lee",
		Relationship:     "Daughter",
		RequesterID:      requesterID,
		RequesterName:    "Alice",
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) auditActions(t *testing.T) []auditlog.Action {
	t.Helper()
	entries, err := f.audit.List(context.Background(), auditlog.Filter{})
	require.NoError(t, err)
	out := make([]auditlog.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestScenario_ApproveGrantsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.create(t, "child-9")

	pending, err := f.svc.ListPending(ctx, "elder-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, accessrequests.StatusPending, pending[0].Status)

	res, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)
	require.NotNil(t, res.Link)
	assert.Equal(t, accessrequests.StatusApproved, res.Request.Status)

	pending, err = f.svc.ListPending(ctx, "elder-1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	active, err := f.svc.ListActive(ctx, "child-9")
	require.NoError(t, err)
	require.Len(t, active, 1)

	// los campos de la solicitud viajan al vínculo sin cambios
	assert.Equal(t, req.Relationship, active[0].Relationship)
	assert.Equal(t, req.TargetIdentifier, active[0].TargetIdentifier)
	assert.Equal(t, accessrequests.RelationshipDaughter, active[0].Relationship)
	assert.Equal(t, "850101-01-1234", active[0].TargetIdentifier)

	ok, err := f.svc.HasPermission(ctx, "child-9", "elder-1", "appointments", "manage")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []auditlog.Action{
		auditlog.ActionRequestCreated,
		auditlog.ActionRequestResponded,
		auditlog.ActionAccessGranted,
	}, f.auditActions(t))
}

func TestScenario_RejectKeepsNotesAndCreatesNoLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.create(t, "child-9")

	res, err := f.svc.Respond(ctx, accessrequests.RespondInput{
		RequestID:   req.ID,
		Decision:    "rejected",
		ResponderID: "elder-1",
		Notes:       "not ready",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Link)
	assert.Equal(t, "not ready", res.Request.Notes)

	active, err := f.svc.ListActive(ctx, "child-9")
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Equal(t, []auditlog.Action{
		auditlog.ActionRequestCreated,
		auditlog.ActionRequestResponded,
	}, f.auditActions(t))
}

func TestRespond_UnauthorizedCallerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "child-9")

	_, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "child-9"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	pending, err := f.svc.ListPending(ctx, "elder-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, accessrequests.StatusPending, pending[0].Status)

	// sin mutación no hay auditoría
	assert.Equal(t, []auditlog.Action{auditlog.ActionRequestCreated}, f.auditActions(t))
}

func TestRespond_SecondCallConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "child-9")

	_, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "maybe", ResponderID: "elder-1"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRespond_ConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	req := f.create(t, "child-9")

	const n = 8
	var okCount, conflictCount int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := "approved"
			if i%2 == 1 {
				decision = "rejected"
			}
			_, err := f.svc.Respond(context.Background(), accessrequests.RespondInput{RequestID: req.ID, Decision: decision, ResponderID: "elder-1"})
			switch {
			case err == nil:
				atomic.AddInt32(&okCount, 1)
			case errors.Is(err, apperrors.ErrConflict):
				atomic.AddInt32(&conflictCount, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), okCount)
	assert.Equal(t, int32(n-1), conflictCount)

	responded, err := f.audit.List(context.Background(), auditlog.Filter{Action: auditlog.ActionRequestResponded})
	require.NoError(t, err)
	assert.Len(t, responded, 1)
}

func TestRespond_ConcurrentApprovalsKeepOneActiveLink(t *testing.T) {
	f := newFixture(t)

	const n = 6
	reqs := make([]accessrequests.AccessRequest, n)
	for i := range reqs {
		reqs[i] = f.create(t, "child-9")
	}

	var approved int32
	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Respond(context.Background(), accessrequests.RespondInput{RequestID: id, Decision: "approved", ResponderID: "elder-1"})
			if err == nil {
				atomic.AddInt32(&approved, 1)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		}(req.ID)
	}
	wg.Wait()

	assert.Equal(t, int32(1), approved)
	active, err := f.svc.ListActive(context.Background(), "child-9")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// las perdedoras siguen pending: el titular puede rechazarlas
	pending, err := f.svc.ListPending(context.Background(), "elder-1")
	require.NoError(t, err)
	assert.Len(t, pending, n-1)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.create(t, "child-9")
	res, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)

	_, err = f.svc.Revoke(ctx, res.Link.ID, "child-9")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	ok, err := f.svc.Revoke(ctx, res.Link.ID, "elder-1")
	require.NoError(t, err)
	assert.True(t, ok)

	has, err := f.svc.HasPermission(ctx, "child-9", "elder-1", "appointments", "manage")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = f.svc.Revoke(ctx, res.Link.ID, "elder-1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	l, err := f.links.GetByID(ctx, res.Link.ID)
	require.NoError(t, err)
	assert.False(t, l.IsActive)

	_, err = f.svc.Revoke(ctx, "link-404", "elder-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	revoked, err := f.audit.List(ctx, auditlog.Filter{Action: auditlog.ActionAccessRevoked})
	require.NoError(t, err)
	assert.Len(t, revoked, 1)
}

func TestRevoke_ThenNewApprovalCreatesNewLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "child-9")
	res1, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: first.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)
	_, err = f.svc.Revoke(ctx, res1.Link.ID, "elder-1")
	require.NoError(t, err)

	second := f.create(t, "child-9")
	res2, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: second.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)
	assert.NotEqual(t, res1.Link.ID, res2.Link.ID)

	active, err := f.svc.ListActive(ctx, "child-9")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, res2.Link.ID, active[0].ID)
}

func TestAuditEntries_UniqueIDsPerMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.create(t, "child-9")
	res, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)
	_, err = f.svc.Revoke(ctx, res.Link.ID, "elder-1")
	require.NoError(t, err)

	entries, err := f.svc.ListAudit(ctx, auditlog.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	seen := map[string]bool{}
	for _, e := range entries {
		assert.False(t, seen[e.ID], "duplicate tx id %s", e.ID)
		seen[e.ID] = true
		assert.Equal(t, auditlog.StatusPending, e.Status, "confirmation is asynchronous")
	}
}

type failingAuditRepo struct{ auditlog.Repository }

func (failingAuditRepo) Last(ctx context.Context) (auditlog.Entry, bool, error) {
	return auditlog.Entry{}, false, apperrors.Unavailablef("audit store down")
}

func TestAuditFailure_DoesNotUndoMutation(t *testing.T) {
	f := newFixture(t, withAuditRepo(failingAuditRepo{memory.NewAuditLogRepo()}))
	ctx := context.Background()

	req := f.create(t, "child-9")
	res, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)
	require.NotNil(t, res.Link)

	ok, err := f.svc.HasPermission(ctx, "child-9", "elder-1", "basic_info", "read")
	require.NoError(t, err)
	assert.True(t, ok)

	// create + responded + granted
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.AuditAppendFailures))
}

func TestParentProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ParentProfile(ctx, "child-9", "elder-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	req := f.create(t, "child-9")
	res, err := f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)

	p, err := f.svc.ParentProfile(ctx, "child-9", "elder-1")
	require.NoError(t, err)
	assert.Equal(t, "Madam Lee", p.Name)
	assert.Equal(t, "850101-**-**34", p.MaskedIdentifier)

	l, err := f.links.GetByID(ctx, res.Link.ID)
	require.NoError(t, err)
	assert.NotNil(t, l.LastAccessedAt)

	// HasPermission no toca el vínculo
	before := *l.LastAccessedAt
	_, err = f.svc.HasPermission(ctx, "child-9", "elder-1", "basic_info", "read")
	require.NoError(t, err)
	l, _ = f.links.GetByID(ctx, res.Link.ID)
	assert.Equal(t, before, *l.LastAccessedAt)
}

func TestCreateRequest_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRequest(ctx, accessrequests.CreateInput{
		TargetIdentifier: "991231-99-0000",
		Relationship:     "Son",
		RequesterID:      "child-9",
		RequesterName:    "Bob",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.CreateRequest(ctx, accessrequests.CreateInput{
		TargetIdentifier: "850101-01-1234",
		Relationship:     "Cousin",
		RequesterID:      "child-9",
		RequesterName:    "Bob",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Empty(t, f.auditActions(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Operations.WithLabelValues("create_request", "not_found")))
}

type blockingLocker struct{}

func (blockingLocker) Lock(ctx context.Context, key string) (keylock.Unlock, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRespond_LockTimeoutIsUnavailable(t *testing.T) {
	f := newFixture(t, withLocker(blockingLocker{}))
	f.svc.timeout = 50 * time.Millisecond
	req := f.create(t, "child-9")

	_, err := f.svc.Respond(context.Background(), accessrequests.RespondInput{RequestID: req.ID, Decision: "approved", ResponderID: "elder-1"})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	got, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, accessrequests.StatusPending, got.Status)
}

func TestListHelpers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		f.create(t, fmt.Sprintf("child-%d", i))
	}
	pending, err := f.svc.ListPending(ctx, "elder-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var fromChild0 string
	for _, p := range pending {
		if p.RequesterID == "child-0" {
			fromChild0 = p.ID
		}
	}
	_, err = f.svc.Respond(ctx, accessrequests.RespondInput{RequestID: fromChild0, Decision: "approved", ResponderID: "elder-1"})
	require.NoError(t, err)

	outgoing, err := f.svc.ListRequestsByRequester(ctx, "child-0")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, accessrequests.StatusApproved, outgoing[0].Status)

	holders, err := f.svc.ListLinksForTarget(ctx, "elder-1")
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, "child-0", holders[0].RequesterID)
}
