package postgres

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS elders (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	identifier         TEXT NOT NULL UNIQUE,
	date_of_birth      DATE,
	phone              TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	emergency_contact  TEXT NOT NULL DEFAULT '',
	preferred_language TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS access_requests (
	id                TEXT PRIMARY KEY,
	requester_id      TEXT NOT NULL,
	requester_name    TEXT NOT NULL,
	target_id         TEXT NOT NULL,
	target_name       TEXT NOT NULL,
	target_identifier TEXT NOT NULL,
	relationship      TEXT NOT NULL,
	status            TEXT NOT NULL CHECK (status IN ('pending','approved','rejected','revoked')),
	requested_at      TIMESTAMPTZ NOT NULL,
	responded_at      TIMESTAMPTZ,
	responded_by      TEXT NOT NULL DEFAULT '',
	notes             TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS access_requests_target_pending_idx
	ON access_requests (target_id, requested_at) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS access_requests_requester_idx
	ON access_requests (requester_id, requested_at DESC);

CREATE TABLE IF NOT EXISTS caregiver_links (
	id                TEXT PRIMARY KEY,
	request_id        TEXT NOT NULL REFERENCES access_requests (id),
	requester_id      TEXT NOT NULL,
	requester_name    TEXT NOT NULL,
	target_id         TEXT NOT NULL,
	target_name       TEXT NOT NULL,
	target_identifier TEXT NOT NULL,
	relationship      TEXT NOT NULL,
	permissions       JSONB NOT NULL,
	is_active         BOOLEAN NOT NULL,
	linked_at         TIMESTAMPTZ NOT NULL,
	last_accessed_at  TIMESTAMPTZ,
	revoked_at        TIMESTAMPTZ,
	revoked_by        TEXT NOT NULL DEFAULT ''
);

-- a lo sumo un vínculo activo por par
CREATE UNIQUE INDEX IF NOT EXISTS caregiver_links_active_pair_uidx
	ON caregiver_links (requester_id, target_id) WHERE is_active;
CREATE INDEX IF NOT EXISTS caregiver_links_target_idx
	ON caregiver_links (target_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS audit_entries (
	id          TEXT PRIMARY KEY,
	seq         BIGINT NOT NULL UNIQUE,
	action      TEXT NOT NULL,
	actor_id    TEXT NOT NULL DEFAULT '',
	subject_id  TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('pending','confirmed','failed')),
	prev_digest TEXT NOT NULL DEFAULT '',
	digest      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS audit_entries_pending_idx
	ON audit_entries (seq) WHERE status = 'pending';
`

// Migrate crea las tablas si no existen. Idempotente.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return mapErr(err)
}
