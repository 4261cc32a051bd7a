// Package application owns the residency application lifecycle: submission,
// review transitions, and the approval gate that feeds minting.
package application

import (
	"time"

	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

// Status is the lifecycle state of an application.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// legalTransitions is the full transition relation. completed is reachable
// only from approved, and only the minting coordinator calls that
// transition; rejected and completed are terminal.
var legalTransitions = map[Status][]Status{
	StatusPending:  {StatusInReview},
	StatusInReview: {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist.
func (s Status) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// DocumentRef is one document attached to an application, in upload order.
type DocumentRef struct {
	DocumentID id.DocumentID `json:"documentId"`
	UploadedAt time.Time     `json:"uploadedAt"`
}

// Application is the unit of work tracked end to end. Retained indefinitely
// as a regulatory record; never hard-deleted.
type Application struct {
	ID          id.ApplicationID
	UserID      id.UserID
	Type        id.ApplicationType
	Status      Status
	ReviewerID  string
	Notes       string
	Documents   []DocumentRef
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// Response is the wire shape for an application.
type Response struct {
	ID          id.ApplicationID   `json:"applicationId"`
	UserID      id.UserID          `json:"userId"`
	Type        id.ApplicationType `json:"type"`
	Status      Status             `json:"status"`
	ReviewerID  string             `json:"reviewerId,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Documents   []DocumentRef      `json:"documents"`
	SubmittedAt time.Time          `json:"submittedAt"`
}

func (a *Application) ToResponse() Response {
	docs := a.Documents
	if docs == nil {
		docs = []DocumentRef{}
	}
	return Response{
		ID:          a.ID,
		UserID:      a.UserID,
		Type:        a.Type,
		Status:      a.Status,
		ReviewerID:  a.ReviewerID,
		Notes:       a.Notes,
		Documents:   docs,
		SubmittedAt: a.SubmittedAt,
	}
}

// ReviewDecision is a reviewer verdict on an application.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ParseReviewDecision validates a reviewer decision.
func ParseReviewDecision(raw string) (ReviewDecision, error) {
	switch ReviewDecision(raw) {
	case DecisionApprove, DecisionReject:
		return ReviewDecision(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be approve or reject")
	}
}

// SubmitRequest is the payload for POST /applications.
type SubmitRequest struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

// DecisionRequest is the payload for POST /applications/{id}/decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}
