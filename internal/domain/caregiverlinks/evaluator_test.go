package caregiverlinks

import (
	"context"
	"errors"
	"testing"

	"caregiver-access/internal/platform/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_HasPermission(t *testing.T) {
	reg, repo := newTestRegistry()
	ev := NewEvaluator(repo)
	ctx := context.Background()

	ok, err := ev.HasPermission(ctx, "child-9", "elder-1", "appointments", "manage")
	require.NoError(t, err)
	assert.False(t, ok, "no link yet")

	l, err := reg.CreateOrActivate(ctx, approvedRequest("req-1"))
	require.NoError(t, err)

	ok, err = ev.HasPermission(ctx, "child-9", "elder-1", "appointments", "manage")
	require.NoError(t, err)
	assert.True(t, ok)

	// acción no concedida sobre un recurso existente
	ok, err = ev.HasPermission(ctx, "child-9", "elder-1", "appointments", "write")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ev.HasPermission(ctx, "child-9", "elder-1", "billing", "read")
	require.NoError(t, err)
	assert.False(t, ok)

	// otro par sin vínculo
	ok, err = ev.HasPermission(ctx, "child-9", "elder-2", "appointments", "manage")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = reg.Revoke(ctx, l.ID, "elder-1")
	require.NoError(t, err)

	ok, err = ev.HasPermission(ctx, "child-9", "elder-1", "appointments", "manage")
	require.NoError(t, err)
	assert.False(t, ok, "revoked link grants nothing")
}

func TestEvaluator_HonoursWithheldPermission(t *testing.T) {
	repo := newTestRepo()
	require.NoError(t, repo.Create(context.Background(), CaregiverLink{
		ID:          "link-1",
		RequesterID: "child-9",
		TargetID:    "elder-1",
		IsActive:    true,
		Permissions: []Permission{
			{Resource: ResourceMedicalRecords, Action: ActionRead, IsGranted: false},
		},
	}))

	ok, err := NewEvaluator(repo).HasPermission(context.Background(), "child-9", "elder-1", "medical_records", "read")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluator_SurfacesStoreErrors(t *testing.T) {
	repo := newTestRepo()
	repo.failWith = apperrors.Unavailablef("db down")

	_, err := NewEvaluator(repo).HasPermission(context.Background(), "child-9", "elder-1", "basic_info", "read")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestEvaluator_Validation(t *testing.T) {
	ev := NewEvaluator(newTestRepo())

	_, err := ev.HasPermission(context.Background(), "", "elder-1", "basic_info", "read")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ev.HasPermission(context.Background(), "child-9", "elder-1", " ", "read")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
