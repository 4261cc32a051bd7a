// Package postgres owns the connection pool and schema for the gateway's
// durable stores.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool configures and returns a PostgreSQL connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Schema is the full DDL for the gateway. Applied idempotently at startup
// and by the integration test harness.
//
// Index notes:
//   - users: uniqueness on lower(email) and passport_number backs the
//     duplicate-registration checks.
//   - documents/applications: compound (user_id, status) and (type, status)
//     indexes back the review and audit access patterns.
//   - mint_records: the partial unique index on application_id where outcome
//     is succeeded or in_flight is the single-writer mint guard.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id              UUID PRIMARY KEY,
    email           TEXT NOT NULL,
    passport_number TEXT NOT NULL,
    full_name       TEXT NOT NULL,
    password_hash   TEXT NOT NULL,
    residency_type  TEXT NOT NULL,
    verified        BOOLEAN NOT NULL DEFAULT FALSE,
    wallet_address  TEXT,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS users_passport_key ON users (passport_number);

CREATE TABLE IF NOT EXISTS documents (
    id           UUID PRIMARY KEY,
    user_id      UUID NOT NULL REFERENCES users (id),
    type         TEXT NOT NULL,
    display_name TEXT NOT NULL,
    storage_path TEXT NOT NULL,
    url          TEXT NOT NULL,
    mime_type    TEXT NOT NULL,
    size_bytes   BIGINT NOT NULL,
    status       TEXT NOT NULL,
    expires_at   TIMESTAMPTZ,
    uploaded_at  TIMESTAMPTZ NOT NULL,
    reviewed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS documents_user_status_idx ON documents (user_id, status);
CREATE INDEX IF NOT EXISTS documents_type_status_idx ON documents (type, status);

CREATE TABLE IF NOT EXISTS applications (
    id           UUID PRIMARY KEY,
    user_id      UUID NOT NULL REFERENCES users (id),
    type         TEXT NOT NULL,
    status       TEXT NOT NULL,
    reviewer_id  TEXT,
    notes        TEXT,
    submitted_at TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_user_status_idx ON applications (user_id, status);
CREATE INDEX IF NOT EXISTS applications_type_status_idx ON applications (type, status);

CREATE TABLE IF NOT EXISTS application_documents (
    application_id UUID NOT NULL REFERENCES applications (id),
    document_id    UUID NOT NULL REFERENCES documents (id),
    position       INT NOT NULL,
    uploaded_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (application_id, document_id)
);

CREATE TABLE IF NOT EXISTS mint_records (
    id               UUID PRIMARY KEY,
    application_id   UUID NOT NULL REFERENCES applications (id),
    user_id          UUID NOT NULL REFERENCES users (id),
    wallet_address   TEXT NOT NULL,
    outcome          TEXT NOT NULL,
    token_id         TEXT,
    transaction_hash TEXT,
    contract_address TEXT,
    error_summary    TEXT,
    started_at       TIMESTAMPTZ NOT NULL,
    minted_at        TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS mint_records_single_writer_idx
    ON mint_records (application_id)
    WHERE outcome IN ('succeeded', 'in_flight');
CREATE INDEX IF NOT EXISTS mint_records_outcome_started_idx ON mint_records (outcome, started_at);
`

// EnsureSchema applies the DDL. Safe to run repeatedly.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
