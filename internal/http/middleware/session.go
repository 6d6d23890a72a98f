// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity once per request. Clients send up
// to three identity signals and the middleware reduces them to a single user
// ID with a fixed precedence, so handlers never consult raw headers. The
// resolved ID is stored in the Gin context and a typed snapshot of the raw
// candidates is kept for endpoints that need to re-resolve (e.g. after a
// session refresh).
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/identity"
)

// Identity headers accepted from clients. HeaderUser carries the serialized
// user object, HeaderAuthToken an issued session token, HeaderUserEmail the
// account email used as last resort.
const (
	HeaderUser      = "X-User"
	HeaderAuthToken = "X-Auth-Token"
	HeaderUserEmail = "X-User-Email"
)

const (
	// userIDKey is the Gin context key for the resolved user ID.
	userIDKey = "userID"
	// candidatesKey is the Gin context key for the raw identity candidates.
	candidatesKey = "identity.candidates"
)

// SessionContext extracts the identity headers, resolves them to a user ID,
// and stores both in the Gin context. Resolution failure is not an error
// here; endpoints that require identity reject via RequireUser or their own
// checks, while public endpoints (signup, login, health) proceed without one.
func SessionContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		cand := identity.Candidates{
			UserJSON:  c.GetHeader(HeaderUser),
			AuthToken: c.GetHeader(HeaderAuthToken),
			Email:     c.GetHeader(HeaderUserEmail),
		}
		c.Set(candidatesKey, cand)

		if uid, err := identity.Resolve(cand); err == nil {
			c.Set(userIDKey, uid)
		}
		c.Next()
	}
}

// TokenResolver maps an auth session token to its account user id. A lookup
// miss is reported as an error.
type TokenResolver func(ctx context.Context, token string) (string, error)

// ResolveAccountTokens upgrades a token-derived identity to the account user
// id when the token matches a stored auth session. Unknown tokens keep acting
// as opaque identities, so anonymous dashboard visits are unaffected. Runs
// after SessionContext.
func ResolveAccountTokens(lookup TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, resolved := UserID(c)
		if resolved && lookup != nil && CandidatesFrom(c).AuthToken == uid {
			if accountID, err := lookup(c.Request.Context(), uid); err == nil && accountID != "" {
				c.Set(userIDKey, accountID)
			}
		}
		c.Next()
	}
}

// UserID returns the resolved user ID from the Gin context. The second
// return value reports whether a user was resolved.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// CandidatesFrom returns the raw identity candidates captured by
// SessionContext. The zero value is returned when the middleware did not run.
func CandidatesFrom(c *gin.Context) identity.Candidates {
	if v, ok := c.Get(candidatesKey); ok {
		if cand, ok := v.(identity.Candidates); ok {
			return cand
		}
	}
	return identity.Candidates{}
}
