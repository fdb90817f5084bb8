package middleware

import "github.com/gin-gonic/gin"

// Error codes written by middleware. The handlers package reuses them so a
// code means the same thing whichever layer produced it.
const (
	CodeUnauthorized      = "unauthorized"
	CodeTooManyRequests   = "too_many_requests"
	CodeInternal          = "internal_error"
	CodeBadIdempotencyKey = "bad_idempotency_key"
)

// abortJSON stops the chain with the same {"request_id","code","detail"}
// envelope the handlers package writes, so clients see one error shape no
// matter which layer rejected the request.
func abortJSON(c *gin.Context, status int, code, detail string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"detail":     detail,
	})
}
