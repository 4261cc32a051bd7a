// Package domain holds shared domain primitives: typed identifiers and the
// enumerations that cross package boundaries.
//
// IDs are distinct UUID types so the compiler rejects cross-entity assignment
// (a DocumentID can never be passed where an ApplicationID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "residency/pkg/domain-errors"
)

type (
	// UserID identifies a registered applicant.
	UserID uuid.UUID
	// ApplicationID identifies a residency application.
	ApplicationID uuid.UUID
	// DocumentID identifies an uploaded document.
	DocumentID uuid.UUID
	// MintRecordID identifies a single mint attempt.
	MintRecordID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id MintRecordID) String() string  { return uuid.UUID(id).String() }

// MarshalText lets encoding/json render the IDs in canonical UUID form
// instead of raw byte arrays.
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id MintRecordID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(parsed)
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ApplicationID(parsed)
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DocumentID(parsed)
	return nil
}

func (id *MintRecordID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = MintRecordID(parsed)
	return nil
}

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MintRecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a fresh user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewApplicationID generates a fresh application ID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewDocumentID generates a fresh document ID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewMintRecordID generates a fresh mint record ID.
func NewMintRecordID() MintRecordID { return MintRecordID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs. All ParseX helpers funnel through here.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return parsed, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseApplicationID validates and returns an ApplicationID.
func ParseApplicationID(raw string) (ApplicationID, error) {
	parsed, err := parseUUID(raw, "application")
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(parsed), nil
}

// ParseDocumentID validates and returns a DocumentID.
func ParseDocumentID(raw string) (DocumentID, error) {
	parsed, err := parseUUID(raw, "document")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(parsed), nil
}

// ParseMintRecordID validates and returns a MintRecordID.
func ParseMintRecordID(raw string) (MintRecordID, error) {
	parsed, err := parseUUID(raw, "mint record")
	if err != nil {
		return MintRecordID{}, err
	}
	return MintRecordID(parsed), nil
}
