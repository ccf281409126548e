package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/domain/caregiverlinks"
	"caregiver-access/internal/platform/apperrors"
)

type CaregiverLinksRepo struct {
	db *sql.DB
}

func NewCaregiverLinksRepo(db *sql.DB) *CaregiverLinksRepo {
	return &CaregiverLinksRepo{db: db}
}

const linkColumns = `
	id, request_id,
	requester_id, requester_name,
	target_id, target_name, target_identifier,
	relationship, permissions, is_active,
	linked_at, last_accessed_at, revoked_at, revoked_by`

type permissionRow struct {
	Resource  string `json:"resource"`
	Action    string `json:"action"`
	IsGranted bool   `json:"is_granted"`
}

func encodePermissions(in []caregiverlinks.Permission) ([]byte, error) {
	rows := make([]permissionRow, 0, len(in))
	for _, p := range in {
		rows = append(rows, permissionRow{Resource: p.Resource, Action: string(p.Action), IsGranted: p.IsGranted})
	}
	return json.Marshal(rows)
}

func decodePermissions(raw []byte) ([]caregiverlinks.Permission, error) {
	var rows []permissionRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	out := make([]caregiverlinks.Permission, 0, len(rows))
	for _, p := range rows {
		out = append(out, caregiverlinks.Permission{Resource: p.Resource, Action: caregiverlinks.Action(p.Action), IsGranted: p.IsGranted})
	}
	return out, nil
}

func scanLink(s rowScanner) (caregiverlinks.CaregiverLink, error) {
	var l caregiverlinks.CaregiverLink
	var relationship string
	var perms []byte
	var lastAccessed, revokedAt sql.NullTime

	if err := s.Scan(
		&l.ID,
		&l.RequestID,
		&l.RequesterID,
		&l.RequesterName,
		&l.TargetID,
		&l.TargetName,
		&l.TargetIdentifier,
		&relationship,
		&perms,
		&l.IsActive,
		&l.LinkedAt,
		&lastAccessed,
		&revokedAt,
		&l.RevokedBy,
	); err != nil {
		return caregiverlinks.CaregiverLink{}, err
	}

	decoded, err := decodePermissions(perms)
	if err != nil {
		return caregiverlinks.CaregiverLink{}, err
	}
	l.Permissions = decoded
	l.Relationship = accessrequests.Relationship(relationship)
	l.LinkedAt = l.LinkedAt.UTC()
	l.LastAccessedAt = fromNullTime(lastAccessed)
	l.RevokedAt = fromNullTime(revokedAt)
	return l, nil
}

// Create: el índice único parcial (requester_id, target_id) WHERE is_active
// convierte un segundo activo en 23505 -> ErrConflict.
func (r *CaregiverLinksRepo) Create(ctx context.Context, l caregiverlinks.CaregiverLink) error {
	perms, err := encodePermissions(l.Permissions)
	if err != nil {
		return err
	}

	_, err = conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO caregiver_links (`+linkColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		l.ID,
		l.RequestID,
		l.RequesterID,
		l.RequesterName,
		l.TargetID,
		l.TargetName,
		l.TargetIdentifier,
		string(l.Relationship),
		perms,
		l.IsActive,
		l.LinkedAt.UTC(),
		toNullTime(l.LastAccessedAt),
		toNullTime(l.RevokedAt),
		l.RevokedBy,
	)
	return mapErr(err)
}

func (r *CaregiverLinksRepo) GetByID(ctx context.Context, id string) (caregiverlinks.CaregiverLink, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM caregiver_links
		WHERE id = $1
	`, id)

	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return caregiverlinks.CaregiverLink{}, apperrors.NotFoundf("link %s", id)
		}
		return caregiverlinks.CaregiverLink{}, mapErr(err)
	}
	return l, nil
}

func (r *CaregiverLinksRepo) GetActive(ctx context.Context, requesterID, targetID string) (caregiverlinks.CaregiverLink, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+linkColumns+`
		FROM caregiver_links
		WHERE requester_id = $1 AND target_id = $2 AND is_active
	`, requesterID, targetID)

	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return caregiverlinks.CaregiverLink{}, apperrors.NotFoundf("no active link for %s -> %s", requesterID, targetID)
		}
		return caregiverlinks.CaregiverLink{}, mapErr(err)
	}
	return l, nil
}

func (r *CaregiverLinksRepo) ListActiveByRequester(ctx context.Context, requesterID string) ([]caregiverlinks.CaregiverLink, error) {
	return r.list(ctx, `
		SELECT `+linkColumns+`
		FROM caregiver_links
		WHERE requester_id = $1 AND is_active
		ORDER BY linked_at ASC, id ASC
	`, requesterID)
}

func (r *CaregiverLinksRepo) ListActiveByTarget(ctx context.Context, targetID string) ([]caregiverlinks.CaregiverLink, error) {
	return r.list(ctx, `
		SELECT `+linkColumns+`
		FROM caregiver_links
		WHERE target_id = $1 AND is_active
		ORDER BY linked_at ASC, id ASC
	`, targetID)
}

func (r *CaregiverLinksRepo) list(ctx context.Context, query string, args ...any) ([]caregiverlinks.CaregiverLink, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]caregiverlinks.CaregiverLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, l)
	}
	return out, mapErr(rows.Err())
}

func (r *CaregiverLinksRepo) DeactivateIfActive(ctx context.Context, id string, revokedAt time.Time, revokedBy string) (caregiverlinks.CaregiverLink, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE caregiver_links
		SET
			is_active = false,
			revoked_at = $2,
			revoked_by = $3
		WHERE id = $1 AND is_active
		RETURNING `+linkColumns,
		id, revokedAt.UTC(), revokedBy,
	)

	l, err := scanLink(row)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return caregiverlinks.CaregiverLink{}, mapErr(err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return caregiverlinks.CaregiverLink{}, err
	}
	return caregiverlinks.CaregiverLink{}, apperrors.Conflictf("link %s already revoked", id)
}

func (r *CaregiverLinksRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE caregiver_links SET last_accessed_at = $2 WHERE id = $1
	`, id, at.UTC())
	if err != nil {
		return mapErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFoundf("link %s", id)
	}
	return nil
}
