// Package document owns uploaded identity documents: ingestion, review
// decisions, and expiry.
package document

import (
	"time"

	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

// Status is the review state of a single document.
//
// Transitions are monotone: pending may become verified, rejected, or
// expired; nothing moves out of a terminal state. A resubmission after
// rejection is a brand new Document record so the audit trail survives.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// CanTransition reports whether a review decision may move a document from
// its current status to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusVerified || next == StatusRejected || next == StatusExpired
	default:
		return false
	}
}

// Document is one uploaded artifact belonging to exactly one user.
type Document struct {
	ID          id.DocumentID
	UserID      id.UserID
	Type        id.DocumentType
	DisplayName string
	StoragePath string
	URL         string
	MIMEType    string
	Size        int64
	Status      Status
	ExpiresAt   *time.Time
	UploadedAt  time.Time
	ReviewedAt  *time.Time
}

// Response is the wire shape for a document.
type Response struct {
	ID         id.DocumentID   `json:"documentId"`
	Type       id.DocumentType `json:"type"`
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	MIMEType   string          `json:"mimeType"`
	Size       int64           `json:"size"`
	Status     Status          `json:"status"`
	UploadedAt time.Time       `json:"uploadedAt"`
}

// ToResponse builds the wire shape. StoragePath deliberately never leaves
// the server.
func (d *Document) ToResponse() Response {
	return Response{
		ID:         d.ID,
		Type:       d.Type,
		Name:       d.DisplayName,
		URL:        d.URL,
		MIMEType:   d.MIMEType,
		Size:       d.Size,
		Status:     d.Status,
		UploadedAt: d.UploadedAt,
	}
}

// Decision is a reviewer's verdict on a document.
type Decision string

const (
	DecisionVerify Decision = "verify"
	DecisionReject Decision = "reject"
)

// ParseDecision validates a reviewer decision.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionVerify, DecisionReject:
		return Decision(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be verify or reject")
	}
}
