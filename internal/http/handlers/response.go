// Package handlers provides the HTTP endpoints of the movie review API.
//
// Handlers are transport-thin: they bind and validate the request, resolve
// the acting user, make one service call and serialize the result. Every
// failure is written through fail() as an ErrorResponse:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "detail": "movie not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-reviews/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, for correlating client errors with server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go).
	Code string `json:"code" example:"not_found"`
	// Human-readable description, safe to show to users.
	Detail string `json:"detail" example:"movie not found"`
}

// MsgMovieDeleted confirms a movie deletion. It is sent as a one-element
// JSON array.
const MsgMovieDeleted = "Movie Deleted Successfully"

// fail aborts the request with an ErrorResponse. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, detail string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Strs("errors", c.Errors.Errors()).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Detail:    detail,
	})
}

// Fail is fail for callers outside this package (router fallbacks).
func Fail(c *gin.Context, status int, code, detail string) { fail(c, status, code, detail) }

// internalError records err on the context and answers an opaque 500.
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// replayed marks a response served from an idempotency record.
func replayed(c *gin.Context, yes bool) {
	if yes {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
}
