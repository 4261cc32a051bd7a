package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/requestcontext"
)

type stubUsers struct {
	err error
}

func (s stubUsers) Exists(context.Context, id.UserID) error { return s.err }

type stubDocs struct {
	verified map[id.DocumentType]bool
}

func (s stubDocs) VerifiedTypes(context.Context, id.UserID) (map[id.DocumentType]bool, error) {
	return s.verified, nil
}

func allVisaDocs() stubDocs {
	return stubDocs{verified: map[id.DocumentType]bool{
		id.DocumentPassport: true,
		id.DocumentPhoto:    true,
	}}
}

func newTestService(docs DocumentReader) *Service {
	return NewService(NewInMemoryStore(), stubUsers{}, docs, nil, nil)
}

func reviewerCtx(reviewerID string) context.Context {
	return requestcontext.WithReviewerID(context.Background(), reviewerID)
}

func submit(t *testing.T, svc *Service) *Application {
	t.Helper()
	a, err := svc.Submit(context.Background(), id.NewUserID(), id.ApplicationVisa)
	require.NoError(t, err)
	return a
}

func TestSubmit(t *testing.T) {
	t.Run("creates a pending application", func(t *testing.T) {
		svc := newTestService(allVisaDocs())
		a := submit(t, svc)
		assert.Equal(t, StatusPending, a.Status)
		assert.False(t, a.SubmittedAt.IsZero())
	})

	t.Run("requires an existing user", func(t *testing.T) {
		svc := NewService(NewInMemoryStore(), stubUsers{err: dErrors.New(dErrors.CodeNotFound, "user not found")},
			allVisaDocs(), nil, nil)
		_, err := svc.Submit(context.Background(), id.NewUserID(), id.ApplicationVisa)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)
	})
}

func TestBeginReview(t *testing.T) {
	svc := newTestService(allVisaDocs())
	a := submit(t, svc)

	reviewed, err := svc.BeginReview(reviewerCtx("rev-1"), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, reviewed.Status)
	assert.Equal(t, "rev-1", reviewed.ReviewerID)

	// A second begin-review races against the state machine and loses.
	_, err = svc.BeginReview(reviewerCtx("rev-2"), a.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition), "got %v", err)
}

func TestDecide(t *testing.T) {
	t.Run("approval requires every required document verified", func(t *testing.T) {
		svc := newTestService(stubDocs{verified: map[id.DocumentType]bool{
			id.DocumentPassport: true,
		}})
		a := submit(t, svc)
		_, err := svc.BeginReview(reviewerCtx("rev-1"), a.ID)
		require.NoError(t, err)

		_, err = svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionApprove, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIncompleteDocs), "got %v", err)
		assert.Contains(t, dErrors.MessageOf(err), "photo")

		current, err := svc.Get(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInReview, current.Status)
	})

	t.Run("approval succeeds with complete documentation", func(t *testing.T) {
		svc := newTestService(allVisaDocs())
		a := submit(t, svc)
		_, err := svc.BeginReview(reviewerCtx("rev-1"), a.ID)
		require.NoError(t, err)

		approved, err := svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionApprove, "")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, approved.Status)
	})

	t.Run("rejection requires a reason", func(t *testing.T) {
		svc := newTestService(allVisaDocs())
		a := submit(t, svc)
		_, err := svc.BeginReview(reviewerCtx("rev-1"), a.ID)
		require.NoError(t, err)

		_, err = svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionReject, "   ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)

		rejected, err := svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionReject, "passport photo unreadable")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, rejected.Status)
		assert.Equal(t, "passport photo unreadable", rejected.Notes)
	})

	t.Run("decisions outside in_review are illegal", func(t *testing.T) {
		svc := newTestService(allVisaDocs())
		a := submit(t, svc)

		_, err := svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionApprove, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition), "got %v", err)
	})
}

func TestComplete(t *testing.T) {
	approve := func(t *testing.T, svc *Service) *Application {
		t.Helper()
		a := submit(t, svc)
		_, err := svc.BeginReview(reviewerCtx("rev-1"), a.ID)
		require.NoError(t, err)
		approved, err := svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionApprove, "")
		require.NoError(t, err)
		return approved
	}

	t.Run("moves approved to completed and is idempotent", func(t *testing.T) {
		svc := newTestService(allVisaDocs())
		a := approve(t, svc)

		require.NoError(t, svc.Complete(context.Background(), a.ID))
		current, err := svc.Get(context.Background(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, current.Status)

		// Crash-recovery replays must not fail.
		require.NoError(t, svc.Complete(context.Background(), a.ID))
	})

	t.Run("cannot complete an application that is not approved", func(t *testing.T) {
		svc := newTestService(allVisaDocs())
		a := submit(t, svc)
		err := svc.Complete(context.Background(), a.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition), "got %v", err)
	})
}

func TestOldestApproved(t *testing.T) {
	svc := newTestService(allVisaDocs())
	userID := id.NewUserID()

	_, err := svc.OldestApproved(context.Background(), userID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)

	a, err := svc.Submit(context.Background(), userID, id.ApplicationVisa)
	require.NoError(t, err)
	_, err = svc.BeginReview(reviewerCtx("rev-1"), a.ID)
	require.NoError(t, err)
	_, err = svc.Decide(reviewerCtx("rev-1"), a.ID, DecisionApprove, "")
	require.NoError(t, err)

	found, err := svc.OldestApproved(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
}

func TestAttachDocument(t *testing.T) {
	svc := newTestService(allVisaDocs())
	a := submit(t, svc)

	docID := id.NewDocumentID()
	require.NoError(t, svc.AttachDocument(context.Background(), a.ID, docID))

	current, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, current.Documents, 1)
	assert.Equal(t, docID, current.Documents[0].DocumentID)
}
