// Package domain contains the core business logic and entities for licenseHub.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a registration request.
type Status string

const (
	// StatusPending is the initial state of every registration.
	StatusPending Status = "Pending"
	// StatusApproved marks a registration accepted by an administrator.
	StatusApproved Status = "Approved"
	// StatusRejected marks a registration refused by an administrator.
	StatusRejected Status = "Rejected"
)

// Action is an administrator decision on a pending registration.
type Action string

const (
	ActionApprove Action = "Approve"
	ActionReject  Action = "Reject"
)

// Sentinel errors surfaced by services and mapped to HTTP status codes at
// the API boundary.
var (
	// ErrNotFound covers both "no such id" and "already decided". The two
	// cases are intentionally indistinguishable to callers.
	ErrNotFound         = errors.New("not found or already processed")
	ErrInvalidAction    = errors.New("invalid action specified (Approve or Reject)")
	ErrMissingClientKey = errors.New("missing client_key")
)

// Registration is a single client machine's license request.
type Registration struct {
	ID          int64      `json:"id"`
	ClientKey   string     `json:"client_key"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// Decided reports whether the registration has reached a terminal status.
func (r Registration) Decided() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// StatusForAction maps an administrator action to the resulting record
// status.
func StatusForAction(action Action) (Status, error) {
	switch action {
	case ActionApprove:
		return StatusApproved, nil
	case ActionReject:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, string(action))
	}
}

// ValidateClientKey checks that a registrant-supplied key is usable. Any
// non-empty key is accepted; keys are opaque identifiers with no imposed
// shape or length.
func ValidateClientKey(key string) error {
	if key == "" {
		return ErrMissingClientKey
	}
	return nil
}
