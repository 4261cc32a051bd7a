package mint

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"residency/internal/application"
	"residency/internal/events"
	"residency/internal/ledger"
	"residency/internal/platform/metrics"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/platform/sentinel"
	"residency/pkg/requestcontext"
)

// Wallets resolves the wallet a mint targets; implemented by the user service.
type Wallets interface {
	ResolveWallet(ctx context.Context, userID id.UserID, wallet string) (string, error)
}

// Applications supplies the approved application and finalizes it after a
// succeeded mint; implemented by the application service.
type Applications interface {
	OldestApproved(ctx context.Context, userID id.UserID) (*application.Application, error)
	Complete(ctx context.Context, appID id.ApplicationID) error
}

// Coordinator runs mint attempts. Serialization is the durable in_flight
// guard, nothing else: no in-process lock is held across the ledger call, so
// two replicas racing the same application still produce at most one mint.
type Coordinator struct {
	store   Store
	wallets Wallets
	apps    Applications
	chain   ledger.Client
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	timeout time.Duration
}

func NewCoordinator(store Store, wallets Wallets, apps Applications, chain ledger.Client,
	publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) *Coordinator {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Coordinator{
		store:   store,
		wallets: wallets,
		apps:    apps,
		chain:   chain,
		events:  publisher,
		metrics: m,
		logger:  logger,
		timeout: timeout,
	}
}

// Mint creates the residency credential for the user's approved application.
// Calling again after success returns the recorded result; calling while an
// attempt is in flight conflicts.
//
// The ledger call runs on a context detached from the caller, so a client
// disconnect cannot abort a mint that may already be irreversible. A timeout
// is an unknown outcome: the record stays in_flight and the reconciliation
// sweep resolves it against the ledger.
func (c *Coordinator) Mint(ctx context.Context, userID id.UserID, wallet string) (*Record, error) {
	// The approval check runs before wallet resolution, which binds the wallet
	// as a side effect: a request that fails its preconditions must not mutate
	// the user.
	app, err := c.apps.OldestApproved(ctx, userID)
	if err != nil {
		return nil, err
	}

	walletAddr, err := c.wallets.ResolveWallet(ctx, userID, wallet)
	if err != nil {
		return nil, err
	}

	r := &Record{
		ID:            id.NewMintRecordID(),
		ApplicationID: app.ID,
		UserID:        userID,
		WalletAddress: walletAddr,
		StartedAt:     requestcontext.Now(ctx),
	}
	if err := c.store.CreateInFlight(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return c.resolveExisting(ctx, app.ID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record mint attempt")
	}

	c.events.Emit(ctx, events.Event{Name: events.EventMintStarted, UserID: userID, ApplicationID: app.ID})

	// Everything past the guard runs detached from the caller's cancellation.
	opCtx := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(opCtx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.chain.Mint(callCtx, app.ID.String(), walletAddr)
	c.metrics.ObserveLedgerCall(time.Since(start).Seconds())

	if err != nil {
		if callCtx.Err() != nil {
			// Unknown outcome. The token may exist; only the sweep may decide.
			c.metrics.IncMintAttempt("unknown")
			c.logger.WarnContext(opCtx, "mint outcome unknown, left in flight",
				"mint_record_id", r.ID,
				"application_id", app.ID,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, dErrors.New(dErrors.CodeExternalService,
				"mint outcome unknown; reconciliation will resolve it")
		}
		return nil, c.recordFailure(opCtx, r, err)
	}

	now := time.Now().UTC()
	if err := c.store.MarkSucceeded(opCtx, r.ID, result.TokenID, result.TransactionHash, result.ContractAddress, now); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// The sweep beat us to it; the recorded outcome wins.
			return c.resolveExisting(opCtx, app.ID)
		}
		c.logger.ErrorContext(opCtx, "mint succeeded but outcome not recorded",
			"error", err,
			"mint_record_id", r.ID,
			"application_id", app.ID,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record mint outcome")
	}
	r.Outcome = OutcomeSucceeded
	r.TokenID = result.TokenID
	r.TransactionHash = result.TransactionHash
	r.ContractAddress = result.ContractAddress
	r.MintedAt = &now

	if err := c.apps.Complete(opCtx, app.ID); err != nil {
		// The mint stands; a repeat mint call retries completion through
		// resolveExisting.
		c.logger.ErrorContext(opCtx, "minted but application not completed",
			"error", err,
			"application_id", app.ID,
		)
	}

	c.metrics.IncMintAttempt("succeeded")
	c.events.Emit(opCtx, events.Event{
		Name: events.EventMintSucceeded, UserID: userID, ApplicationID: app.ID, Detail: result.TokenID,
	})
	return r, nil
}

// resolveExisting maps an already-guarded application to a response: a
// succeeded record is returned as-is, an in-flight one is a conflict.
func (c *Coordinator) resolveExisting(ctx context.Context, appID id.ApplicationID) (*Record, error) {
	existing, err := c.store.FindByApplication(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load existing mint")
	}
	if existing.Outcome == OutcomeSucceeded {
		if err := c.apps.Complete(ctx, existing.ApplicationID); err != nil {
			c.logger.WarnContext(ctx, "completion retry failed",
				"error", err,
				"application_id", existing.ApplicationID,
			)
		}
		return existing, nil
	}
	return nil, dErrors.New(dErrors.CodeConflict, "a mint for this application is already in progress")
}

func (c *Coordinator) recordFailure(ctx context.Context, r *Record, cause error) error {
	if err := c.store.MarkFailed(ctx, r.ID, cause.Error(), time.Now().UTC()); err != nil && !errors.Is(err, sentinel.ErrInvalidState) {
		c.logger.ErrorContext(ctx, "failed to record mint failure",
			"error", err,
			"mint_record_id", r.ID,
		)
	}
	c.metrics.IncMintAttempt("failed")
	c.events.Emit(ctx, events.Event{
		Name: events.EventMintFailed, UserID: r.UserID, ApplicationID: r.ApplicationID, Detail: cause.Error(),
	})
	return dErrors.Wrap(cause, dErrors.CodeExternalService, "ledger rejected the mint")
}
