package errors

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid submission input")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrForbidden           = errors.New("not authorized for this submission")
	ErrInvalidTransition   = errors.New("invalid submission state transition")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrTierLimitExceeded   = errors.New("tier allows only one pending submission")
)
