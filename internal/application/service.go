package application

import (
	"context"
	"errors"
	"strings"

	"residency/internal/events"
	"residency/internal/platform/metrics"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/platform/sentinel"
	"residency/pkg/requestcontext"
)

// UserDirectory confirms an applicant exists before accepting work for them.
type UserDirectory interface {
	Exists(ctx context.Context, userID id.UserID) error
}

// DocumentReader reports which document types a user has verified. The
// approval gate consumes this; implemented by the document service.
type DocumentReader interface {
	VerifiedTypes(ctx context.Context, userID id.UserID) (map[id.DocumentType]bool, error)
}

// Service governs the application lifecycle. Every transition funnels
// through the legality check in models.go and a conditional store write, so
// an illegal or raced transition never mutates state.
type Service struct {
	store   Store
	users   UserDirectory
	docs    DocumentReader
	events  events.Publisher
	metrics *metrics.Metrics
}

func NewService(store Store, users UserDirectory, docs DocumentReader, publisher events.Publisher, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{store: store, users: users, docs: docs, events: publisher, metrics: m}
}

// Submit creates a new application in pending.
func (s *Service) Submit(ctx context.Context, userID id.UserID, appType id.ApplicationType) (*Application, error) {
	if err := s.users.Exists(ctx, userID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	a := &Application{
		ID:          id.NewApplicationID(),
		UserID:      userID,
		Type:        appType,
		Status:      StatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	s.metrics.IncApplicationsCreated()
	s.events.Emit(ctx, events.Event{Name: events.EventApplicationSubmitted, UserID: userID, ApplicationID: a.ID})
	return a, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*Application, error) {
	a, err := s.store.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return a, nil
}

// ListByUser returns a user's applications, oldest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*Application, error) {
	apps, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// OldestApproved returns the user's earliest approved application, the one
// minting operates on. Not found when the user has none.
func (s *Service) OldestApproved(ctx context.Context, userID id.UserID) (*Application, error) {
	apps, err := s.store.ListByUserAndStatus(ctx, userID, StatusApproved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list approved applications")
	}
	if len(apps) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no approved application")
	}
	return apps[0], nil
}

// AttachDocument links an uploaded document to an application, preserving
// upload order.
func (s *Service) AttachDocument(ctx context.Context, appID id.ApplicationID, docID id.DocumentID) error {
	a, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	ref := DocumentRef{DocumentID: docID, UploadedAt: requestcontext.Now(ctx)}
	if err := s.store.AttachDocument(ctx, a.ID, ref); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach document")
	}
	return nil
}

// BeginReview moves pending → in_review and records the reviewer.
func (s *Service) BeginReview(ctx context.Context, appID id.ApplicationID) (*Application, error) {
	reviewerID := requestcontext.ReviewerID(ctx)
	a, err := s.transition(ctx, appID, StatusPending, StatusInReview, reviewerID, "")
	if err != nil {
		return nil, err
	}
	s.events.Emit(ctx, events.Event{
		Name: events.EventReviewStarted, UserID: a.UserID, ApplicationID: a.ID, ReviewerID: reviewerID,
	})
	return a, nil
}

// Decide applies a reviewer verdict to an in_review application. Approval
// requires every document type the application type mandates to be verified;
// rejection requires a non-empty reason.
func (s *Service) Decide(ctx context.Context, appID id.ApplicationID, decision ReviewDecision, reason string) (*Application, error) {
	reviewerID := requestcontext.ReviewerID(ctx)

	switch decision {
	case DecisionApprove:
		a, err := s.Get(ctx, appID)
		if err != nil {
			return nil, err
		}
		if missing, err := s.missingDocuments(ctx, a); err != nil {
			return nil, err
		} else if len(missing) > 0 {
			return nil, dErrors.New(dErrors.CodeIncompleteDocs,
				"missing verified documents: "+strings.Join(missing, ", "))
		}

		a, err = s.transition(ctx, appID, StatusInReview, StatusApproved, reviewerID, reason)
		if err != nil {
			return nil, err
		}
		s.events.Emit(ctx, events.Event{
			Name: events.EventApplicationApproved, UserID: a.UserID, ApplicationID: a.ID, ReviewerID: reviewerID,
		})
		return a, nil

	case DecisionReject:
		if strings.TrimSpace(reason) == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "rejection requires a reason")
		}
		a, err := s.transition(ctx, appID, StatusInReview, StatusRejected, reviewerID, reason)
		if err != nil {
			return nil, err
		}
		s.events.Emit(ctx, events.Event{
			Name: events.EventApplicationRejected, UserID: a.UserID, ApplicationID: a.ID,
			ReviewerID: reviewerID, Detail: reason,
		})
		return a, nil

	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown decision")
	}
}

// Complete moves approved → completed. Only the minting coordinator calls
// this, after a succeeded mint is durably recorded. Re-running on an
// already-completed application is a no-op so crash recovery stays
// idempotent.
func (s *Service) Complete(ctx context.Context, appID id.ApplicationID) error {
	a, err := s.Get(ctx, appID)
	if err != nil {
		return err
	}
	if a.Status == StatusCompleted {
		return nil
	}
	if _, err := s.transition(ctx, appID, StatusApproved, StatusCompleted, "", ""); err != nil {
		// A concurrent recovery pass may have completed it between the read
		// and the write; that satisfies the caller's intent.
		if dErrors.CodeOf(err) == dErrors.CodeInvalidTransition {
			if current, getErr := s.Get(ctx, appID); getErr == nil && current.Status == StatusCompleted {
				return nil
			}
		}
		return err
	}
	s.events.Emit(ctx, events.Event{Name: events.EventApplicationCompleted, UserID: a.UserID, ApplicationID: a.ID})
	return nil
}

// transition validates legality and performs the conditional store write.
func (s *Service) transition(ctx context.Context, appID id.ApplicationID, from, to Status, reviewerID, notes string) (*Application, error) {
	if !from.CanTransition(to) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move an application from "+string(from)+" to "+string(to))
	}

	at := requestcontext.Now(ctx)
	if err := s.store.UpdateStatus(ctx, appID, from, to, reviewerID, notes, at); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidTransition,
				"application is not in status "+string(from))
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application")
		}
	}

	a, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// missingDocuments lists required document types without a verified upload.
func (s *Service) missingDocuments(ctx context.Context, a *Application) ([]string, error) {
	verified, err := s.docs.VerifiedTypes(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, required := range a.Type.RequiredDocuments() {
		if !verified[required] {
			missing = append(missing, string(required))
		}
	}
	return missing, nil
}
