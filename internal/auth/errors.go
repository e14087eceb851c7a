package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the username or password is
	// wrong. Unknown usernames are folded into this error on purpose so
	// callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound is returned when an operation references a username
	// with no backing record (e.g. logout). The HTTP layer surfaces it as
	// an authorization failure, never as "not found".
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenMalformed is returned when a token cannot be decoded at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is returned when a token decodes but its signature
	// does not verify against the configured key.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenExpired is returned when a structurally valid token carries
	// an expiry in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when a token verifies cryptographically
	// but is revoked or unknown in the ledger.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenNotFound is returned by FindByToken when no record matches.
	ErrTokenNotFound = errors.New("token record not found")
	// ErrNotImplemented is returned by declared-but-unimplemented
	// operations such as token refresh.
	ErrNotImplemented = errors.New("not implemented")
)

// DataError wraps a failure of the user store or token store. It is a
// server-side fault, distinct from every authentication failure above,
// and is never collapsed into a 401.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

func dataErr(op string, err error) error {
	return &DataError{Op: op, Err: err}
}

// IsDataError reports whether err is a store failure rather than an
// authentication outcome.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsUnauthenticated reports whether err belongs to the family of expected
// authentication failures that the HTTP layer collapses into a single 401.
// The individual sentinels stay distinguishable internally for diagnostics.
func IsUnauthenticated(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenSignature),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenNotFound):
		return true
	}
	return false
}
