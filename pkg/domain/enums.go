package domain

import dErrors "residency/pkg/domain-errors"

// ResidencyType tags which residency program a user applied under.
type ResidencyType string

const (
	ResidencyBhutan ResidencyType = "bhutan"
	ResidencyDraper ResidencyType = "draper"
)

// Country returns the public display country for a residency program.
func (r ResidencyType) Country() string {
	switch r {
	case ResidencyBhutan:
		return "Bhutan"
	case ResidencyDraper:
		return "Draper Nation"
	default:
		return ""
	}
}

// ParseResidencyType validates a residency program tag.
func ParseResidencyType(raw string) (ResidencyType, error) {
	switch ResidencyType(raw) {
	case ResidencyBhutan, ResidencyDraper:
		return ResidencyType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown residency type: "+raw)
	}
}

// ApplicationType enumerates the kinds of applications the gateway tracks.
type ApplicationType string

const (
	ApplicationVisa       ApplicationType = "visa"
	ApplicationResidency  ApplicationType = "residency"
	ApplicationEResidency ApplicationType = "e_residency"
)

// ParseApplicationType validates an application type.
func ParseApplicationType(raw string) (ApplicationType, error) {
	switch ApplicationType(raw) {
	case ApplicationVisa, ApplicationResidency, ApplicationEResidency:
		return ApplicationType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown application type: "+raw)
	}
}

// RequiredDocuments lists the document types that must be verified before an
// application of this type may be approved.
func (t ApplicationType) RequiredDocuments() []DocumentType {
	switch t {
	case ApplicationVisa:
		return []DocumentType{DocumentPassport, DocumentPhoto}
	case ApplicationResidency:
		return []DocumentType{DocumentPassport, DocumentPhoto, DocumentProofOfAddress}
	case ApplicationEResidency:
		return []DocumentType{DocumentPassport, DocumentPhoto}
	default:
		return nil
	}
}

// DocumentType enumerates the logical kinds of uploaded documents.
type DocumentType string

const (
	DocumentPassport       DocumentType = "passport"
	DocumentIDCard         DocumentType = "id_card"
	DocumentProofOfAddress DocumentType = "proof_of_address"
	DocumentPhoto          DocumentType = "photo"
	DocumentOther          DocumentType = "other"
)

// ParseDocumentType validates a document type.
func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(raw) {
	case DocumentPassport, DocumentIDCard, DocumentProofOfAddress, DocumentPhoto, DocumentOther:
		return DocumentType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown document type: "+raw)
	}
}
