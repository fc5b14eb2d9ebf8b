package billing

import "errors"

// Error taxonomy surfaced to the HTTP layer. Handlers map these to
// 404 / 409 / 400; anything else is treated as a persistence failure.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrDuplicateMonth = errors.New("duplicate month")
	ErrValidation     = errors.New("validation failed")
)
