package apperrors

import "errors"

var (
	// ErrNotFound covers unknown test links, tests, questions and responses.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned for any mutation attempted on a completed session.
	ErrAlreadyCompleted = errors.New("this test has already been completed")
	// ErrNotStarted is returned when answers are recorded before the session was started.
	ErrNotStarted = errors.New("this test has not been started")
	// ErrInvalidQuestion means the question does not belong to the session's test.
	ErrInvalidQuestion = errors.New("question not found or doesn't belong to this test")
	// ErrValidation marks bad caller input detected by a service.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable wraps transient storage failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
