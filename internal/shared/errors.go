package shared

import "errors"

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input; nothing was committed.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrImmutable indicates a record maintained by the system that cannot be
	// edited directly.
	ErrImmutable = errors.New("record is system-maintained")
)
