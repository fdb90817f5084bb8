package handlers

import "github.com/tbourn/go-movie-reviews/internal/http/middleware"

// Error codes carried in ErrorResponse.Code. Generic codes mirror the HTTP
// status; the rest name a domain failure clients may branch on.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = middleware.CodeUnauthorized
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeValidation       = "validation_error"
	ErrCodeInternal         = middleware.CodeInternal

	// Domain-specific:
	ErrCodeUsernameTaken  = "username_taken"
	ErrCodeEmailTaken     = "email_taken"
	ErrCodeBadCredentials = "invalid_credentials"
	ErrCodeParentMismatch = "parent_movie_mismatch"
)
