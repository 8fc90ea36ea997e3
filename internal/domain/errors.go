package domain

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

var (
	ErrInvalidRequest   = errors.New("missing query or keywords")
	ErrQuotaExceeded    = errors.New("query limit reached")
	ErrUsageNotRecorded = errors.New("usage could not be recorded")
	ErrRateLimited      = errors.New("too many requests")
)

var (
	ErrInvalidPlan = errors.New("invalid plan")
)
