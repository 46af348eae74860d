package apperrors

import "errors"

// Sentinel errors shared by all services. Handlers translate these to HTTP
// status codes in one place; everything else wraps with fmt.Errorf("...: %w").
var (
	ErrBadRequest       = errors.New("bad request")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrInternal         = errors.New("internal error")
)
