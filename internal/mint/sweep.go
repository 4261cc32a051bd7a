package mint

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"residency/internal/events"
	"residency/internal/ledger"
	"residency/internal/platform/metrics"
	"residency/pkg/platform/sentinel"
)

var sweepTracer = otel.Tracer("residency/internal/mint")

const sweepConcurrency = 4

// Sweeper resolves mint attempts whose outcome was lost: records still
// in_flight after the grace period, typically because the process crashed or
// the ledger call timed out. The ledger is ground truth; the sweep asks it
// whether the wallet holds a token and records whichever answer it gives.
//
// Safe to run concurrently with live mints and with other sweep instances:
// resolution goes through the same conditional writes the coordinator uses.
type Sweeper struct {
	store   Store
	chain   ledger.Client
	apps    Applications
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	grace   time.Duration
}

func NewSweeper(store Store, chain ledger.Client, apps Applications,
	publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger, grace time.Duration) *Sweeper {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Sweeper{
		store:   store,
		chain:   chain,
		apps:    apps,
		events:  publisher,
		metrics: m,
		logger:  logger,
		grace:   grace,
	}
}

// Run sweeps on a fixed cadence until the context is canceled.
func (s *Sweeper) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "reconciliation sweep failed", "error", err)
			}
		}
	}
}

// Sweep resolves every stale in_flight record once. Records that cannot be
// resolved this pass stay in_flight for the next one.
func (s *Sweeper) Sweep(ctx context.Context) error {
	ctx, span := sweepTracer.Start(ctx, "mint.Sweep")
	defer span.End()

	stale, err := s.store.ListStaleInFlight(ctx, time.Now().UTC().Add(-s.grace))
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("stale_records", len(stale)))
	if len(stale) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, r := range stale {
		g.Go(func() error {
			s.resolve(gctx, r)
			return nil
		})
	}
	return g.Wait()
}

func (s *Sweeper) resolve(ctx context.Context, r *Record) {
	result, err := s.chain.OwnerToken(ctx, r.WalletAddress)
	switch {
	case errors.Is(err, ledger.ErrNoToken):
		s.markFailed(ctx, r)
	case err != nil:
		// Ledger unreachable; leave the record for the next pass.
		s.logger.WarnContext(ctx, "sweep could not query ledger",
			"error", err,
			"mint_record_id", r.ID,
		)
	default:
		s.markSucceeded(ctx, r, result)
	}
}

func (s *Sweeper) markSucceeded(ctx context.Context, r *Record, result ledger.MintResult) {
	err := s.store.MarkSucceeded(ctx, r.ID, result.TokenID, result.TransactionHash, result.ContractAddress, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.ErrorContext(ctx, "sweep failed to record success",
				"error", err,
				"mint_record_id", r.ID,
			)
		}
		return
	}
	if err := s.apps.Complete(ctx, r.ApplicationID); err != nil {
		s.logger.ErrorContext(ctx, "sweep minted but application not completed",
			"error", err,
			"application_id", r.ApplicationID,
		)
	}

	s.metrics.IncSweepResolution("succeeded")
	s.events.Emit(ctx, events.Event{
		Name: events.EventSweepResolved, UserID: r.UserID, ApplicationID: r.ApplicationID,
		Detail: string(OutcomeSucceeded),
	})
	s.logger.InfoContext(ctx, "sweep resolved mint as succeeded",
		"mint_record_id", r.ID,
		"application_id", r.ApplicationID,
		"token_id", result.TokenID,
	)
}

func (s *Sweeper) markFailed(ctx context.Context, r *Record) {
	err := s.store.MarkFailed(ctx, r.ID, "no token on ledger after grace period", time.Now().UTC())
	if err != nil {
		if !errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.ErrorContext(ctx, "sweep failed to record failure",
				"error", err,
				"mint_record_id", r.ID,
			)
		}
		return
	}

	s.metrics.IncSweepResolution("failed")
	s.events.Emit(ctx, events.Event{
		Name: events.EventSweepResolved, UserID: r.UserID, ApplicationID: r.ApplicationID,
		Detail: string(OutcomeFailed),
	})
	s.logger.InfoContext(ctx, "sweep resolved mint as failed",
		"mint_record_id", r.ID,
		"application_id", r.ApplicationID,
	)
}
