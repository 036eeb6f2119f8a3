package docerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrForbidden indicates the acting user lacks the required right.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a field-level validation failure, including
// duplicate-constraint violations.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation checks whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DeleteBlockedReason distinguishes why a topic delete was refused.
type DeleteBlockedReason string

const (
	DeleteBlockedChildren  DeleteBlockedReason = "children"
	DeleteBlockedDocuments DeleteBlockedReason = "documents"
)

// DeleteBlockedError indicates a topic delete was refused because the
// topic still owns children or documents. Nothing is mutated.
type DeleteBlockedError struct {
	TopicID int64
	Reason  DeleteBlockedReason
}

func (e *DeleteBlockedError) Error() string {
	switch e.Reason {
	case DeleteBlockedChildren:
		return fmt.Sprintf("topic %d has child topics", e.TopicID)
	case DeleteBlockedDocuments:
		return fmt.Sprintf("topic %d contains documents", e.TopicID)
	}
	return fmt.Sprintf("topic %d cannot be deleted", e.TopicID)
}

// IsDeleteBlocked checks whether err is a DeleteBlockedError and, if so,
// returns its reason.
func IsDeleteBlocked(err error) (DeleteBlockedReason, bool) {
	var de *DeleteBlockedError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}

// Upload rejection reasons.
const (
	UploadRejectedExtension = "extension not allowed"
	UploadRejectedSize      = "file exceeds size limit"
	UploadRejectedEmpty     = "file is empty"
)

// UploadRejectedError indicates a file failed the deployment upload
// policy. The message names the offending limit or allow-list so the
// caller can surface it to the user.
type UploadRejectedError struct {
	Reason            string
	AllowedExtensions []string
	MaxFileSize       int64
}

func (e *UploadRejectedError) Error() string {
	if len(e.AllowedExtensions) > 0 {
		return fmt.Sprintf("upload rejected: %s (allowed: %s)", e.Reason, strings.Join(e.AllowedExtensions, ", "))
	}
	if e.MaxFileSize > 0 {
		return fmt.Sprintf("upload rejected: %s (maximum %d bytes)", e.Reason, e.MaxFileSize)
	}
	return "upload rejected: " + e.Reason
}

// IsUploadRejected checks whether err is an UploadRejectedError.
func IsUploadRejected(err error) bool {
	var ue *UploadRejectedError
	return errors.As(err, &ue)
}
