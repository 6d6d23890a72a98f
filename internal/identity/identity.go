// Package identity derives a single user key from the handful of identity
// hints the web client can supply. Browsers that ran earlier releases of the
// app may still hold the literal strings "undefined" or "null" in place of a
// missing value, so those sentinels are treated as absent at this boundary;
// everything past the resolver works with typed errors instead.
package identity

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnauthenticated is returned when no identity candidate resolves to a
// usable key. Identity-dependent operations must fail on it rather than fall
// back to an empty key.
var ErrUnauthenticated = errors.New("no resolvable user identity")

// Candidates carries the raw identity hints collected from one request, in
// the order they are consulted: a serialized user object, an auth token, and
// a stored email address.
type Candidates struct {
	// UserJSON is the serialized user object, expected to carry a "uid" field.
	UserJSON string
	// AuthToken is an issued session token.
	AuthToken string
	// Email is the stored account email, the last resort.
	Email string
}

// userObject is the subset of the stored user object the resolver reads.
type userObject struct {
	UID string `json:"uid"`
}

// Resolve returns the best-effort user key for the given candidates.
//
// Priority: the user object's uid, then the auth token, then the email.
// Malformed user JSON is not fatal; resolution falls through to the next
// candidate. When nothing resolves, ErrUnauthenticated is returned and the
// key is empty.
func Resolve(c Candidates) (string, error) {
	if raw := clean(c.UserJSON); raw != "" {
		var u userObject
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			if uid := clean(u.UID); uid != "" {
				return uid, nil
			}
		}
	}
	if tok := clean(c.AuthToken); tok != "" {
		return tok, nil
	}
	if email := clean(c.Email); email != "" {
		return email, nil
	}
	return "", ErrUnauthenticated
}

// clean trims a candidate and maps the serialization sentinels to absent.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "undefined" || s == "null" {
		return ""
	}
	return s
}
