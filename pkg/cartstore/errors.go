package cartstore

import "errors"

var (
	ErrNilItem    = errors.New("cartstore: item cannot be nil")
	ErrItemExists = errors.New("cartstore: item already exists")
	ErrNilPool    = errors.New("cartstore: database pool cannot be nil")
	ErrNilClient  = errors.New("cartstore: redis client cannot be nil")

	// ErrConstraintViolation means the row failed a CHECK constraint.
	ErrConstraintViolation = errors.New("cartstore: item violates a table constraint")
)
