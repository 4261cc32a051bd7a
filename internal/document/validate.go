package document

import (
	"fmt"
	"strings"
)

// Upload limits. Validation runs before any byte is persisted so a rejected
// file never leaves partial state behind.
const (
	MaxFileSize     = 10 << 20 // 10 MiB per file
	MaxFilesPerReq  = 5
	uploadFieldName = "documents"
)

// allowedMIMETypes is the ingestion allow-list. Anything else is rejected
// regardless of extension.
var allowedMIMETypes = map[string]struct{}{
	"application/pdf":    {},
	"image/jpeg":         {},
	"image/jpg":          {},
	"image/png":          {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// ValidationResult is the tagged outcome of upload validation: accepted, or
// rejected with a caller-safe reason.
type ValidationResult struct {
	Accepted bool
	Reason   string
}

func accepted() ValidationResult {
	return ValidationResult{Accepted: true}
}

func rejected(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}

// ValidateUpload checks one declared upload against the MIME allow-list and
// size cap. Pure function: no IO, no side effects, callable from any
// concurrency context.
func ValidateUpload(filename, mimeType string, size int64) ValidationResult {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if semi := strings.IndexByte(normalized, ';'); semi >= 0 {
		normalized = strings.TrimSpace(normalized[:semi])
	}

	if _, ok := allowedMIMETypes[normalized]; !ok {
		return rejected(fmt.Sprintf("file type %q is not allowed", mimeType))
	}
	if size <= 0 {
		return rejected("file is empty")
	}
	if size > MaxFileSize {
		return rejected(fmt.Sprintf("file %q exceeds the 10 MiB limit", filename))
	}
	return accepted()
}

// ValidateBatch checks the per-request file count before individual files.
func ValidateBatch(count int) ValidationResult {
	if count == 0 {
		return rejected("no files in request")
	}
	if count > MaxFilesPerReq {
		return rejected(fmt.Sprintf("at most %d files per request", MaxFilesPerReq))
	}
	return accepted()
}
