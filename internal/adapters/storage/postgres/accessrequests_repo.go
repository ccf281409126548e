package postgres

import (
	"context"
	"database/sql"
	"errors"

	"caregiver-access/internal/domain/accessrequests"
	"caregiver-access/internal/platform/apperrors"
)

type AccessRequestsRepo struct {
	db *sql.DB
}

func NewAccessRequestsRepo(db *sql.DB) *AccessRequestsRepo {
	return &AccessRequestsRepo{db: db}
}

const requestColumns = `
	id, requester_id, requester_name,
	target_id, target_name, target_identifier,
	relationship, status,
	requested_at, responded_at, responded_by, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(s rowScanner) (accessrequests.AccessRequest, error) {
	var r accessrequests.AccessRequest
	var relationship, status string
	var respondedAt sql.NullTime

	if err := s.Scan(
		&r.ID,
		&r.RequesterID,
		&r.RequesterName,
		&r.TargetID,
		&r.TargetName,
		&r.TargetIdentifier,
		&relationship,
		&status,
		&r.RequestedAt,
		&respondedAt,
		&r.RespondedBy,
		&r.Notes,
	); err != nil {
		return accessrequests.AccessRequest{}, err
	}

	r.Relationship = accessrequests.Relationship(relationship)
	r.Status = accessrequests.Status(status)
	r.RequestedAt = r.RequestedAt.UTC()
	r.RespondedAt = fromNullTime(respondedAt)
	return r, nil
}

func (r *AccessRequestsRepo) Create(ctx context.Context, req accessrequests.AccessRequest) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO access_requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		req.ID,
		req.RequesterID,
		req.RequesterName,
		req.TargetID,
		req.TargetName,
		req.TargetIdentifier,
		string(req.Relationship),
		string(req.Status),
		req.RequestedAt.UTC(),
		toNullTime(req.RespondedAt),
		req.RespondedBy,
		req.Notes,
	)
	return mapErr(err)
}

func (r *AccessRequestsRepo) GetByID(ctx context.Context, id string) (accessrequests.AccessRequest, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE id = $1
	`, id)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accessrequests.AccessRequest{}, apperrors.NotFoundf("request %s", id)
		}
		return accessrequests.AccessRequest{}, mapErr(err)
	}
	return req, nil
}

func (r *AccessRequestsRepo) ListPendingByTarget(ctx context.Context, targetID string) ([]accessrequests.AccessRequest, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE target_id = $1 AND status = 'pending'
		ORDER BY requested_at ASC, id ASC
	`, targetID)
}

func (r *AccessRequestsRepo) ListByRequester(ctx context.Context, requesterID string) ([]accessrequests.AccessRequest, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE requester_id = $1
		ORDER BY requested_at DESC, id DESC
	`, requesterID)
}

func (r *AccessRequestsRepo) list(ctx context.Context, query string, args ...any) ([]accessrequests.AccessRequest, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]accessrequests.AccessRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, req)
	}
	return out, mapErr(rows.Err())
}

// UpdateIfPending: el WHERE status = 'pending' es el check-and-set.
func (r *AccessRequestsRepo) UpdateIfPending(ctx context.Context, id string, t accessrequests.Transition) (accessrequests.AccessRequest, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE access_requests
		SET
			status = $2,
			responded_at = $3,
			responded_by = $4,
			notes = $5
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		id,
		string(t.Status),
		t.RespondedAt.UTC(),
		t.RespondedBy,
		t.Notes,
	)

	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return accessrequests.AccessRequest{}, mapErr(err)
	}

	// no actualizó: o no existe o ya no está pending
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return accessrequests.AccessRequest{}, err
	}
	return accessrequests.AccessRequest{}, apperrors.Conflictf("request %s already %s", id, current.Status)
}
