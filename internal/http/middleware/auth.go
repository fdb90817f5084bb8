// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the acting user from an "Authorization: Bearer <jwt>"
// header. BearerAuth runs globally and only annotates the context, so that
// logging, rate limiting and idempotency can key on the user; RequireAuth is
// attached to protected routes and rejects anonymous requests with 401.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-movie-reviews/internal/auth"
)

// Context keys for the authenticated identity.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUsername = "username"
	ctxKeyAuthErr  = "auth.err"
)

// TokenVerifier validates a raw bearer token. *auth.TokenIssuer satisfies it.
type TokenVerifier interface {
	Parse(raw string) (*auth.Claims, error)
}

// BearerAuth parses the bearer token when one is present and stores the user
// id (uint) and username in the context. It never aborts: a missing token
// leaves the request anonymous and an invalid one is remembered so
// RequireAuth can report it.
func BearerAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present := bearerToken(c.GetHeader("Authorization"))
		if !present {
			c.Next()
			return
		}
		claims, err := v.Parse(raw)
		if err != nil {
			c.Set(ctxKeyAuthErr, err)
			c.Next()
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			c.Set(ctxKeyAuthErr, err)
			c.Next()
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Set(ctxKeyUsername, claims.Username)
		c.Next()
	}
}

// RequireAuth rejects requests that BearerAuth did not authenticate with
// 401 and a WWW-Authenticate challenge.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}
		detail := "not authenticated"
		if _, bad := c.Get(ctxKeyAuthErr); bad {
			detail = "could not validate credentials"
		}
		c.Header("WWW-Authenticate", "Bearer")
		abortJSON(c, http.StatusUnauthorized, CodeUnauthorized, detail)
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func bearerToken(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
