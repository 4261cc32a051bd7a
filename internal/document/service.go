package document

import (
	"context"
	"errors"
	"io"
	"time"

	"residency/internal/events"
	"residency/internal/files"
	"residency/internal/platform/metrics"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/platform/sentinel"
	"residency/pkg/requestcontext"
)

// Upload is one file in an ingestion request.
type Upload struct {
	Filename string
	MIMEType string
	Size     int64
	Content  io.Reader
}

// Service orchestrates document ingestion and review.
type Service struct {
	store     Store
	artifacts files.Store
	events    events.Publisher
	metrics   *metrics.Metrics
	docTTL    time.Duration
}

// NewService builds the document service. docTTL > 0 sets an expiry on every
// ingested document; zero disables auto-expiry.
func NewService(store Store, artifacts files.Store, publisher events.Publisher, m *metrics.Metrics, docTTL time.Duration) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{store: store, artifacts: artifacts, events: publisher, metrics: m, docTTL: docTTL}
}

// Ingest validates and persists a batch of uploads for a user. Validation of
// the whole batch happens before any byte is written, so a rejected request
// leaves no partial state. The artifact is written before its record; a
// record insert failure removes the artifact again.
func (s *Service) Ingest(ctx context.Context, userID id.UserID, docType id.DocumentType, uploads []Upload) ([]*Document, error) {
	if result := ValidateBatch(len(uploads)); !result.Accepted {
		s.metrics.IncDocumentsRejected()
		return nil, dErrors.New(dErrors.CodeInvalidInput, result.Reason)
	}
	for _, up := range uploads {
		if result := ValidateUpload(up.Filename, up.MIMEType, up.Size); !result.Accepted {
			s.metrics.IncDocumentsRejected()
			return nil, dErrors.New(dErrors.CodeInvalidInput, result.Reason)
		}
	}

	now := requestcontext.Now(ctx)
	var expiresAt *time.Time
	if s.docTTL > 0 {
		t := now.Add(s.docTTL)
		expiresAt = &t
	}

	docs := make([]*Document, 0, len(uploads))
	for _, up := range uploads {
		ref, err := s.artifacts.Save(ctx, up.Filename, io.LimitReader(up.Content, MaxFileSize))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStorageIO, "failed to store file")
		}

		doc := &Document{
			ID:          id.NewDocumentID(),
			UserID:      userID,
			Type:        docType,
			DisplayName: up.Filename,
			StoragePath: ref.StoragePath,
			URL:         ref.URL,
			MIMEType:    up.MIMEType,
			Size:        up.Size,
			Status:      StatusPending,
			ExpiresAt:   expiresAt,
			UploadedAt:  now,
		}
		if err := s.store.Create(ctx, doc); err != nil {
			_ = s.artifacts.Delete(ctx, ref.StoragePath)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document")
		}

		s.metrics.IncDocumentsUploaded()
		s.events.Emit(ctx, events.Event{Name: events.EventDocumentUploaded, UserID: userID, DocumentID: doc.ID})
		docs = append(docs, doc)
	}
	return docs, nil
}

// Decide applies a reviewer verdict. Rejected and verified are terminal: a
// rejected document is never mutated back to pending; the applicant uploads
// a replacement instead.
func (s *Service) Decide(ctx context.Context, docID id.DocumentID, decision Decision) (*Document, error) {
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	target := StatusVerified
	eventName := events.EventDocumentVerified
	if decision == DecisionReject {
		target = StatusRejected
		eventName = events.EventDocumentRejected
	}

	if !doc.Status.CanTransition(target) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			"document is "+string(doc.Status)+" and cannot become "+string(target))
	}

	reviewedAt := requestcontext.Now(ctx)
	if err := s.store.UpdateStatus(ctx, docID, doc.Status, target, reviewedAt); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "document status changed concurrently")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
	}

	doc.Status = target
	doc.ReviewedAt = &reviewedAt
	s.events.Emit(ctx, events.Event{
		Name:       eventName,
		UserID:     doc.UserID,
		DocumentID: doc.ID,
		ReviewerID: requestcontext.ReviewerID(ctx),
	})
	return doc, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}

// ListByUser returns all documents for a user, oldest first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*Document, error) {
	docs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

// VerifiedTypes reports which document types the user currently has in
// verified status. The application approval gate consumes this.
func (s *Service) VerifiedTypes(ctx context.Context, userID id.UserID) (map[id.DocumentType]bool, error) {
	docs, err := s.store.ListByUserAndStatus(ctx, userID, StatusVerified)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verified documents")
	}
	out := make(map[id.DocumentType]bool, len(docs))
	for _, d := range docs {
		out[d.Type] = true
	}
	return out, nil
}

// Delete removes a document's artifact and is idempotent at the artifact
// level; the record survives for audit.
func (s *Service) DeleteArtifact(ctx context.Context, docID id.DocumentID) error {
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.artifacts.Delete(ctx, doc.StoragePath); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageIO, "failed to delete file")
	}
	return nil
}
