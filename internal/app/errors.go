package service

import "errors"

// Error kinds surfaced to the transport layer. Reason codes ride along
// on ReasonError so clients can branch without parsing messages.
var (
	// ErrValidation marks caller mistakes: missing or malformed input.
	// Never retried, never logged as a system error.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks references to a barcode with no record where
	// existence is required.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks failures that are safe for the caller to retry,
	// such as exhausted conflict retries against the ledger.
	ErrTransient = errors.New("transient failure")
)

// Stable machine-readable reason codes carried on error responses.
const (
	ReasonBarcodeRequired  = "barcode_required"
	ReasonInvalidVoteType  = "invalid_vote_type"
	ReasonIdentityRequired = "identity_required"
	ReasonEvidenceRequired = "evidence_required"
	ReasonBarcodeNotFound  = "barcode_not_found"
	ReasonInvalidFilter    = "invalid_filter"
	ReasonInvalidStatus    = "invalid_status"
	ReasonConflict         = "conflict_retries_exhausted"
)

// ReasonError pairs an error kind with a stable reason code and a
// human-readable message.
type ReasonError struct {
	kind    error
	Reason  string
	Message string
}

func (e *ReasonError) Error() string {
	return e.Message
}

func (e *ReasonError) Unwrap() error {
	return e.kind
}

func validationError(reason, message string) error {
	return &ReasonError{kind: ErrValidation, Reason: reason, Message: message}
}

func notFoundError(reason, message string) error {
	return &ReasonError{kind: ErrNotFound, Reason: reason, Message: message}
}

func transientError(reason, message string) error {
	return &ReasonError{kind: ErrTransient, Reason: reason, Message: message}
}

// Reason extracts the machine-readable reason code from err, or ""
// when err carries none.
func Reason(err error) string {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
