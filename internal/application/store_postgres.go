package application

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

// PostgresStore persists applications in PostgreSQL. Status changes are
// single conditional UPDATEs; the embedded document list lives in
// application_documents ordered by position.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *Application) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO applications (id, user_id, type, status, reviewer_id, notes, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)`,
		uuid.UUID(a.ID), uuid.UUID(a.UserID), string(a.Type), string(a.Status),
		a.ReviewerID, a.Notes, a.SubmittedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*Application, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, type, status, COALESCE(reviewer_id, ''), COALESCE(notes, ''),
		       submitted_at, updated_at
		FROM applications WHERE id = $1`, uuid.UUID(appID))
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find application: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	if err := s.loadDocuments(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Application, error) {
	return s.list(ctx, `WHERE user_id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) ListByUserAndStatus(ctx context.Context, userID id.UserID, status Status) ([]*Application, error) {
	return s.list(ctx, `WHERE user_id = $1 AND status = $2`, uuid.UUID(userID), string(status))
}

func (s *PostgresStore) list(ctx context.Context, where string, args ...any) ([]*Application, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, status, COALESCE(reviewer_id, ''), COALESCE(notes, ''),
		       submitted_at, updated_at
		FROM applications `+where+` ORDER BY submitted_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, a := range out {
		if err := s.loadDocuments(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, appID id.ApplicationID, from, to Status, reviewerID, notes string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE applications
		SET status = $3,
		    reviewer_id = COALESCE(NULLIF($4, ''), reviewer_id),
		    notes = COALESCE(NULLIF($5, ''), notes),
		    updated_at = $6
		WHERE id = $1 AND status = $2`,
		uuid.UUID(appID), string(from), string(to), reviewerID, notes, at,
	)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, findErr := s.FindByID(ctx, appID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("application %s not in status %s: %w", appID, from, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) AttachDocument(ctx context.Context, appID id.ApplicationID, ref DocumentRef) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO application_documents (application_id, document_id, position, uploaded_at)
		VALUES ($1, $2,
		        (SELECT COALESCE(MAX(position), 0) + 1 FROM application_documents WHERE application_id = $1),
		        $3)
		ON CONFLICT (application_id, document_id) DO NOTHING`,
		uuid.UUID(appID), uuid.UUID(ref.DocumentID), ref.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("attach document: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadDocuments(ctx context.Context, a *Application) error {
	rows, err := s.db.Query(ctx, `
		SELECT document_id, uploaded_at FROM application_documents
		WHERE application_id = $1 ORDER BY position`, uuid.UUID(a.ID))
	if err != nil {
		return fmt.Errorf("load application documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawID uuid.UUID
		var ref DocumentRef
		if err := rows.Scan(&rawID, &ref.UploadedAt); err != nil {
			return fmt.Errorf("scan application document: %w", err)
		}
		ref.DocumentID = id.DocumentID(rawID)
		a.Documents = append(a.Documents, ref)
	}
	return rows.Err()
}

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	var rawID, rawUserID uuid.UUID
	var appType, status string
	err := row.Scan(&rawID, &rawUserID, &appType, &status, &a.ReviewerID, &a.Notes,
		&a.SubmittedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.ApplicationID(rawID)
	a.UserID = id.UserID(rawUserID)
	a.Type = id.ApplicationType(appType)
	a.Status = Status(status)
	return &a, nil
}
