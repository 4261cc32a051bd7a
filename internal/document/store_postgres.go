package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
)

// PostgresStore persists documents in PostgreSQL. The (user_id, status) and
// (type, status) compound indexes back the review access patterns.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, user_id, type, display_name, storage_path, url,
	mime_type, size_bytes, status, expires_at, uploaded_at, reviewed_at`

func (s *PostgresStore) Create(ctx context.Context, d *Document) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(d.ID), uuid.UUID(d.UserID), string(d.Type), d.DisplayName, d.StoragePath,
		d.URL, d.MIMEType, d.Size, string(d.Status), d.ExpiresAt, d.UploadedAt, d.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*Document, error) {
	row := s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(docID))
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find document: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Document, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE user_id = $1 ORDER BY uploaded_at`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return scanDocuments(rows)
}

func (s *PostgresStore) ListByUserAndStatus(ctx context.Context, userID id.UserID, status Status) ([]*Document, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE user_id = $1 AND status = $2 ORDER BY uploaded_at`,
		uuid.UUID(userID), string(status))
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	return scanDocuments(rows)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, docID id.DocumentID, from, to Status, reviewedAt time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents SET status = $3, reviewed_at = $4
		WHERE id = $1 AND status = $2`,
		uuid.UUID(docID), string(from), string(to), reviewedAt,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the document is missing or its status moved; disambiguate
		// for the caller.
		if _, findErr := s.FindByID(ctx, docID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("document %s not in status %s: %w", docID, from, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) ExpireElapsed(ctx context.Context, now time.Time) ([]*Document, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE documents SET status = $1
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at <= $3
		RETURNING `+documentColumns,
		string(StatusExpired), string(StatusPending), now,
	)
	if err != nil {
		return nil, fmt.Errorf("expire documents: %w", err)
	}
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]*Document, error) {
	defer rows.Close()
	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var rawID, rawUserID uuid.UUID
	var docType, status string
	err := row.Scan(&rawID, &rawUserID, &docType, &d.DisplayName, &d.StoragePath,
		&d.URL, &d.MIMEType, &d.Size, &status, &d.ExpiresAt, &d.UploadedAt, &d.ReviewedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DocumentID(rawID)
	d.UserID = id.UserID(rawUserID)
	d.Type = id.DocumentType(docType)
	d.Status = Status(status)
	return &d, nil
}
