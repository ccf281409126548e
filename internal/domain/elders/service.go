package elders

import (
	"context"
	"strings"
	"time"

	"caregiver-access/internal/platform/apperrors"
)

// Directory resuelve documento -> cuenta y arma la proyección de perfil.
type Directory struct {
	repo Repository
	now  func() time.Time
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{
		repo: repo,
		now:  time.Now,
	}
}

// ResolveIdentifier normaliza el documento y busca la cuenta registrada.
func (d *Directory) ResolveIdentifier(ctx context.Context, identifier string) (Elder, error) {
	normalized, err := NormalizeIdentifier(identifier)
	if err != nil {
		return Elder{}, err
	}
	e, err := d.repo.GetByIdentifier(ctx, normalized)
	if err != nil {
		return Elder{}, err
	}
	return e, nil
}

func (d *Directory) Get(ctx context.Context, id string) (Elder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Elder{}, apperrors.Validationf("elder id required")
	}
	return d.repo.GetByID(ctx, id)
}

// NameOf devuelve el nombre visible de la cuenta. Lo usan otros módulos sin
// importar el modelo completo.
func (d *Directory) NameOf(ctx context.Context, id string) (string, error) {
	e, err := d.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Name, nil
}

func (d *Directory) GetProfile(ctx context.Context, id string) (Profile, error) {
	e, err := d.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return ToProfile(e, d.now()), nil
}

func ToProfile(e Elder, now time.Time) Profile {
	p := Profile{
		ID:                e.ID,
		Name:              e.Name,
		MaskedIdentifier:  MaskIdentifier(e.Identifier),
		DateOfBirth:       e.DateOfBirth,
		Phone:             e.Phone,
		Address:           e.Address,
		EmergencyContact:  e.EmergencyContact,
		PreferredLanguage: e.PreferredLanguage,
	}
	if e.DateOfBirth != nil {
		p.Age = ageAt(*e.DateOfBirth, now)
	}
	return p
}

func ageAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
