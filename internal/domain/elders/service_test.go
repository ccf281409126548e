package elders

import (
	"context"
	"errors"
	"testing"
	"time"

	"caregiver-access/internal/platform/apperrors"
)

type testRepo struct {
	byID map[string]Elder
}

func newTestRepo(items ...Elder) *testRepo {
	r := &testRepo{byID: map[string]Elder{}}
	for _, e := range items {
		r.byID[e.ID] = e
	}
	return r
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Elder, error) {
	e, ok := r.byID[id]
	if !ok {
		return Elder{}, apperrors.NotFoundf("elder %s", id)
	}
	return e, nil
}

func (r *testRepo) GetByIdentifier(ctx context.Context, identifier string) (Elder, error) {
	for _, e := range r.byID {
		if e.Identifier == identifier {
			return e, nil
		}
	}
	return Elder{}, apperrors.NotFoundf("elder with identifier %s", identifier)
}

func TestDirectory_ResolveIdentifier_NormalizesBeforeLookup(t *testing.T) {
	repo := newTestRepo(Elder{ID: "elder-1", Name: "Kim", Identifier: "450312-21-0042"})
	d := NewDirectory(repo)

	e, err := d.ResolveIdentifier(context.Background(), "450312210042")
	if err != nil {
		t.Fatalf("ResolveIdentifier returned error: %v", err)
	}
	if e.ID != "elder-1" {
		t.Fatalf("expected elder-1, got %q", e.ID)
	}
}

func TestDirectory_ResolveIdentifier_Unknown(t *testing.T) {
	d := NewDirectory(newTestRepo())

	_, err := d.ResolveIdentifier(context.Background(), "450312-21-0042")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDirectory_ResolveIdentifier_Malformed(t *testing.T) {
	d := NewDirectory(newTestRepo())

	_, err := d.ResolveIdentifier(context.Background(), "not-an-id")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDirectory_GetProfile_MasksAndComputesAge(t *testing.T) {
	dob := time.Date(1945, 3, 12, 0, 0, 0, 0, time.UTC)
	repo := newTestRepo(Elder{
		ID:          "elder-1",
		Name:        "Kim",
		Identifier:  "450312-21-0042",
		DateOfBirth: &dob,
		Phone:       "010-0000-0000",
	})
	d := NewDirectory(repo)
	d.now = func() time.Time { return time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC) }

	p, err := d.GetProfile(context.Background(), "elder-1")
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if p.MaskedIdentifier != "450312-**-**42" {
		t.Fatalf("unexpected mask %q", p.MaskedIdentifier)
	}
	// un día antes del cumpleaños 80
	if p.Age != 79 {
		t.Fatalf("expected age 79, got %d", p.Age)
	}
}

func TestDirectory_Get_EmptyID(t *testing.T) {
	d := NewDirectory(newTestRepo())
	if _, err := d.Get(context.Background(), " "); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
