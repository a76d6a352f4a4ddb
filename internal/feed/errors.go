package feed

import (
	"errors"
	"fmt"
)

// Validation errors are caller mistakes. They are returned from Add, never
// retried, and leave the session untouched for the failing submission.
var (
	ErrInvalidItem           = errors.New("feed: item is not a JSON object")
	ErrMissingID             = errors.New("feed: item id is required")
	ErrDuplicateSubmission   = errors.New("feed: item submitted more than once in this session")
	ErrConflictingDatePolicy = errors.New("feed: approximateDate is set but the item carries its own dates")
	ErrApproximationMismatch = errors.New("feed: approximateDate differs from the cached entry")
)

// ErrExpiredSubmission rejects a submission whose expireAt is not after now.
var ErrExpiredSubmission = errors.New("feed: submission already expired")

// Store errors. The pending set is preserved, so Render may be retried.
var (
	ErrStoreWrite = errors.New("feed: store write failed")
	ErrStoreRead  = errors.New("feed: store read failed")
)

// SubmissionError reports which submission of an Add call failed.
// Submissions before Index were already applied.
type SubmissionError struct {
	Index int
	ID    string
	Err   error
}

func (e *SubmissionError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("submission %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("submission %d (id %q): %v", e.Index, e.ID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a caller mistake rather than expiry
// skew or a store failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidItem) ||
		errors.Is(err, ErrMissingID) ||
		errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrConflictingDatePolicy) ||
		errors.Is(err, ErrApproximationMismatch)
}
