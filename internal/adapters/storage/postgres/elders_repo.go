package postgres

import (
	"context"
	"database/sql"
	"errors"

	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/apperrors"
)

type EldersRepo struct {
	db *sql.DB
}

func NewEldersRepo(db *sql.DB) *EldersRepo {
	return &EldersRepo{db: db}
}

const elderColumns = `
	id, name, identifier, date_of_birth,
	phone, address, emergency_contact, preferred_language,
	created_at, updated_at`

func scanElder(s rowScanner) (elders.Elder, error) {
	var e elders.Elder
	var dob sql.NullTime

	if err := s.Scan(
		&e.ID,
		&e.Name,
		&e.Identifier,
		&dob,
		&e.Phone,
		&e.Address,
		&e.EmergencyContact,
		&e.PreferredLanguage,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return elders.Elder{}, err
	}
	e.DateOfBirth = fromNullTime(dob)
	return e, nil
}

func (r *EldersRepo) Upsert(ctx context.Context, e elders.Elder) error {
	identifier, err := elders.NormalizeIdentifier(e.Identifier)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO elders (
			id, name, identifier, date_of_birth,
			phone, address, emergency_contact, preferred_language
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			identifier = EXCLUDED.identifier,
			date_of_birth = EXCLUDED.date_of_birth,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			emergency_contact = EXCLUDED.emergency_contact,
			preferred_language = EXCLUDED.preferred_language,
			updated_at = now()
	`,
		e.ID,
		e.Name,
		identifier,
		toNullTime(e.DateOfBirth),
		e.Phone,
		e.Address,
		e.EmergencyContact,
		e.PreferredLanguage,
	)
	return mapErr(err)
}

func (r *EldersRepo) GetByID(ctx context.Context, id string) (elders.Elder, error) {
	return r.getOne(ctx, `SELECT `+elderColumns+` FROM elders WHERE id = $1`, id)
}

func (r *EldersRepo) GetByIdentifier(ctx context.Context, identifier string) (elders.Elder, error) {
	return r.getOne(ctx, `SELECT `+elderColumns+` FROM elders WHERE identifier = $1`, identifier)
}

func (r *EldersRepo) getOne(ctx context.Context, query string, arg string) (elders.Elder, error) {
	e, err := scanElder(conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return elders.Elder{}, apperrors.NotFoundf("elder not found")
		}
		return elders.Elder{}, mapErr(err)
	}
	return e, nil
}
