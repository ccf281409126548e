package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"caregiver-access/internal/domain/auditlog"
	"caregiver-access/internal/platform/apperrors"
)

// AuditLogRepo guarda el payload como TEXT: JSONB reordena claves y rompería el digest.
type AuditLogRepo struct {
	db *sql.DB
}

func NewAuditLogRepo(db *sql.DB) *AuditLogRepo {
	return &AuditLogRepo{db: db}
}

const auditColumns = `id, seq, action, actor_id, subject_id, payload, ts, status, prev_digest, digest`

func scanEntry(s rowScanner) (auditlog.Entry, error) {
	var e auditlog.Entry
	var action, status, payload string

	if err := s.Scan(
		&e.ID,
		&e.Sequence,
		&action,
		&e.ActorID,
		&e.SubjectID,
		&payload,
		&e.Timestamp,
		&status,
		&e.PrevDigest,
		&e.Digest,
	); err != nil {
		return auditlog.Entry{}, err
	}

	e.Action = auditlog.Action(action)
	e.Status = auditlog.Status(status)
	e.Payload = []byte(payload)
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

// Append usa su propia conexión: la auditoría no participa de la transacción del dominio.
func (r *AuditLogRepo) Append(ctx context.Context, e auditlog.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (`+auditColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		e.ID,
		e.Sequence,
		string(e.Action),
		e.ActorID,
		e.SubjectID,
		string(e.Payload),
		e.Timestamp.UTC(),
		string(e.Status),
		e.PrevDigest,
		e.Digest,
	)
	return mapErr(err)
}

func (r *AuditLogRepo) Last(ctx context.Context) (auditlog.Entry, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_entries
		ORDER BY seq DESC
		LIMIT 1
	`)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auditlog.Entry{}, false, nil
		}
		return auditlog.Entry{}, false, mapErr(err)
	}
	return e, true, nil
}

func (r *AuditLogRepo) List(ctx context.Context, f auditlog.Filter) ([]auditlog.Entry, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + auditColumns + ` FROM audit_entries WHERE 1=1`)

	args := []any{}
	argN := 1

	if f.Action != "" {
		sb.WriteString(fmt.Sprintf(" AND action = $%d", argN))
		args = append(args, string(f.Action))
		argN++
	}
	if f.SubjectID != "" {
		sb.WriteString(fmt.Sprintf(" AND subject_id = $%d", argN))
		args = append(args, f.SubjectID)
		argN++
	}
	if f.ActorID != "" {
		sb.WriteString(fmt.Sprintf(" AND actor_id = $%d", argN))
		args = append(args, f.ActorID)
		argN++
	}

	sb.WriteString(" ORDER BY seq ASC")
	if f.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, f.Limit)
	}

	return r.query(ctx, sb.String(), args...)
}

func (r *AuditLogRepo) ListByStatus(ctx context.Context, status auditlog.Status, limit int) ([]auditlog.Entry, error) {
	if limit <= 0 {
		limit = 1000
	}
	return r.query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_entries
		WHERE status = $1
		ORDER BY seq ASC
		LIMIT $2
	`, string(status), limit)
}

func (r *AuditLogRepo) query(ctx context.Context, query string, args ...any) ([]auditlog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]auditlog.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (r *AuditLogRepo) SetStatus(ctx context.Context, id string, status auditlog.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE audit_entries SET status = $2 WHERE id = $1 AND status = 'pending'
	`, id, string(status))
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM audit_entries WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFoundf("audit entry %s", id)
	}
	if err != nil {
		return mapErr(err)
	}
	return apperrors.Conflictf("audit entry %s is already %s", id, current)
}
