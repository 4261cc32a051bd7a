package document

import (
	"context"
	"log/slog"
	"time"

	"residency/internal/events"
	"residency/internal/files"
)

// GC expires elapsed documents and removes their artifacts. Expiry is
// independent of review status progression: a pending document past its
// expiresAt is collected even if a reviewer never looked at it.
type GC struct {
	store     Store
	artifacts files.Store
	events    events.Publisher
	logger    *slog.Logger
	interval  time.Duration
}

func NewGC(store Store, artifacts files.Store, publisher events.Publisher, logger *slog.Logger, interval time.Duration) *GC {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &GC{store: store, artifacts: artifacts, events: publisher, logger: logger, interval: interval}
}

// Run sweeps on the configured interval until ctx is canceled.
func (g *GC) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep(ctx)
		}
	}
}

// Sweep performs one expiry pass. Artifact deletion failures are logged and
// retried implicitly on the next pass (Delete is idempotent).
func (g *GC) Sweep(ctx context.Context) {
	expired, err := g.store.ExpireElapsed(ctx, time.Now().UTC())
	if err != nil {
		g.logger.ErrorContext(ctx, "document gc pass failed", "error", err)
		return
	}
	for _, doc := range expired {
		if err := g.artifacts.Delete(ctx, doc.StoragePath); err != nil {
			g.logger.WarnContext(ctx, "delete expired artifact",
				"document_id", doc.ID.String(),
				"error", err,
			)
		}
		g.events.Emit(ctx, events.Event{Name: events.EventDocumentExpired, UserID: doc.UserID, DocumentID: doc.ID})
	}
	if len(expired) > 0 {
		g.logger.InfoContext(ctx, "expired documents collected", "count", len(expired))
	}
}
