package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
)

// PostgresStore persists mint records. The partial unique index on
// application_id (outcome succeeded or in_flight) makes CreateInFlight the
// atomic single-writer guard: exactly one insert wins no matter how many
// coordinators race.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, application_id, user_id, wallet_address, outcome,
	COALESCE(token_id, ''), COALESCE(transaction_hash, ''), COALESCE(contract_address, ''),
	COALESCE(error_summary, ''), started_at, minted_at`

func (s *PostgresStore) CreateInFlight(ctx context.Context, r *Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO mint_records (id, application_id, user_id, wallet_address, outcome, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(r.ID), uuid.UUID(r.ApplicationID), uuid.UUID(r.UserID),
		r.WalletAddress, string(OutcomeInFlight), r.StartedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("application %s already has an active mint: %w",
				r.ApplicationID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create mint record: %w", err)
	}
	r.Outcome = OutcomeInFlight
	return nil
}

func (s *PostgresStore) MarkSucceeded(ctx context.Context, recordID id.MintRecordID, tokenID, txHash, contract string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE mint_records
		SET outcome = $2, token_id = $3, transaction_hash = $4, contract_address = $5, minted_at = $6
		WHERE id = $1 AND outcome = $7`,
		uuid.UUID(recordID), string(OutcomeSucceeded), tokenID, txHash, contract, at, string(OutcomeInFlight),
	)
	if err != nil {
		return fmt.Errorf("mark mint succeeded: %w", err)
	}
	return s.checkResolved(ctx, tag, recordID)
}

func (s *PostgresStore) MarkFailed(ctx context.Context, recordID id.MintRecordID, summary string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE mint_records
		SET outcome = $2, error_summary = $3, minted_at = $4
		WHERE id = $1 AND outcome = $5`,
		uuid.UUID(recordID), string(OutcomeFailed), summary, at, string(OutcomeInFlight),
	)
	if err != nil {
		return fmt.Errorf("mark mint failed: %w", err)
	}
	return s.checkResolved(ctx, tag, recordID)
}

// checkResolved disambiguates a zero-row conditional update: missing record
// versus already resolved by a concurrent writer.
func (s *PostgresStore) checkResolved(ctx context.Context, tag pgconn.CommandTag, recordID id.MintRecordID) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, recordID); err != nil {
		return err
	}
	return fmt.Errorf("mint record %s is no longer in flight: %w", recordID, sentinel.ErrInvalidState)
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.MintRecordID) (*Record, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM mint_records WHERE id = $1`, uuid.UUID(recordID))
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find mint record: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find mint record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindByApplication(ctx context.Context, appID id.ApplicationID) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM mint_records
		WHERE application_id = $1 AND outcome IN ($2, $3)`,
		uuid.UUID(appID), string(OutcomeSucceeded), string(OutcomeInFlight))
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find active mint: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find active mint: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindSucceededByUser(ctx context.Context, userID id.UserID) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM mint_records
		WHERE user_id = $1 AND outcome = $2
		ORDER BY minted_at LIMIT 1`,
		uuid.UUID(userID), string(OutcomeSucceeded))
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find succeeded mint: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find succeeded mint: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListStaleInFlight(ctx context.Context, before time.Time) ([]*Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+recordColumns+` FROM mint_records
		WHERE outcome = $1 AND started_at < $2
		ORDER BY started_at`,
		string(OutcomeInFlight), before)
	if err != nil {
		return nil, fmt.Errorf("list stale mints: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mint record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var rawID, rawAppID, rawUserID uuid.UUID
	var outcome string
	err := row.Scan(&rawID, &rawAppID, &rawUserID, &r.WalletAddress, &outcome,
		&r.TokenID, &r.TransactionHash, &r.ContractAddress, &r.ErrorSummary,
		&r.StartedAt, &r.MintedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.MintRecordID(rawID)
	r.ApplicationID = id.ApplicationID(rawAppID)
	r.UserID = id.UserID(rawUserID)
	r.Outcome = Outcome(outcome)
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
