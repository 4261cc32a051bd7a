// Package events publishes lifecycle events to Kafka so downstream consumers
// (compliance archive, notifications) can react without coupling to the
// request path.
package events

import (
	"context"
	"time"

	id "residency/pkg/domain"
)

// Name enumerates the lifecycle events the gateway emits.
type Name string

const (
	EventUserRegistered       Name = "user_registered"
	EventWalletBound          Name = "wallet_bound"
	EventApplicationSubmitted Name = "application_submitted"
	EventReviewStarted        Name = "review_started"
	EventApplicationApproved  Name = "application_approved"
	EventApplicationRejected  Name = "application_rejected"
	EventApplicationCompleted Name = "application_completed"
	EventDocumentUploaded     Name = "document_uploaded"
	EventDocumentVerified     Name = "document_verified"
	EventDocumentRejected     Name = "document_rejected"
	EventDocumentExpired      Name = "document_expired"
	EventMintStarted          Name = "mint_started"
	EventMintSucceeded        Name = "mint_succeeded"
	EventMintFailed           Name = "mint_failed"
	EventSweepResolved        Name = "sweep_resolved"
)

// Event is the payload published per lifecycle transition. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Name          Name             `json:"name"`
	Timestamp     time.Time        `json:"timestamp"`
	UserID        id.UserID        `json:"userId"`
	ApplicationID id.ApplicationID `json:"applicationId"`
	DocumentID    id.DocumentID    `json:"documentId"`
	ReviewerID    string           `json:"reviewerId,omitempty"`
	Detail        string           `json:"detail,omitempty"`
	RequestID     string           `json:"requestId,omitempty"`
}

// Publisher emits lifecycle events. Emit is fire-and-forget from the
// caller's perspective: delivery failures are logged, never surfaced, so a
// broker outage cannot fail a business operation.
type Publisher interface {
	Emit(ctx context.Context, event Event)
	Close()
}

// Noop discards all events. Used in tests and when Kafka is not configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) {}
func (Noop) Close()                      {}
