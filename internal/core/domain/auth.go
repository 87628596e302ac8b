package domain

import (
	"errors"
	"time"
)

// Auth errors are deliberately uniform: a caller cannot tell a wrong
// username from a wrong password.
var (
	ErrBadCredentials = errors.New("bad username or password")
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

// Principal is the identity decoded from a verified bearer token.
type Principal struct {
	Username  string
	ExpiresAt time.Time
}
