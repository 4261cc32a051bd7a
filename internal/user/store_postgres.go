package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
	"residency/pkg/requestcontext"
)

// PostgresStore persists users in PostgreSQL. Uniqueness on lower(email) and
// passport_number is enforced by the schema's unique indexes.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, email, passport_number, full_name, password_hash,
		                   residency_type, verified, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		uuid.UUID(u.ID), u.Email, u.PassportNumber, u.FullName, u.PasswordHash,
		string(u.ResidencyType), u.Verified, u.WalletAddress, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, passport_number, full_name, password_hash,
		       residency_type, verified, COALESCE(wallet_address, ''), created_at, updated_at
		FROM users `+where, arg)

	var u User
	var rawID uuid.UUID
	var residency string
	err := row.Scan(&rawID, &u.Email, &u.PassportNumber, &u.FullName, &u.PasswordHash,
		&residency, &u.Verified, &u.WalletAddress, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.ResidencyType = id.ResidencyType(residency)
	return &u, nil
}

func (s *PostgresStore) UpdateWallet(ctx context.Context, userID id.UserID, wallet string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET wallet_address = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(userID), wallet, requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update wallet: %w", sentinel.ErrNotFound)
	}
	return nil
}

// isUniqueViolation reports whether err is Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
