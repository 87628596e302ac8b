package ports

import (
	"context"
	"time"

	"github.com/poyrazK/licenseHub/internal/core/domain"
)

// RegistrationRepository is the persistence boundary for the single
// registrations table. All operations are atomic at single-row granularity.
type RegistrationRepository interface {
	// CreateIfAbsent inserts a pending registration unless the key already
	// exists. The existing row is left untouched; created reports which
	// case occurred and id is only meaningful when created is true.
	CreateIfAbsent(ctx context.Context, clientKey string) (created bool, id int64, err error)
	GetByKey(ctx context.Context, clientKey string) (*domain.Registration, error)
	// ListAll returns every registration, most recently created first.
	ListAll(ctx context.Context) ([]domain.Registration, error)
	// ListPending returns pending registrations, newest request first.
	ListPending(ctx context.Context) ([]domain.Registration, error)
	// Decide sets status and decided_at on a row only if it is currently
	// Pending. The affected count is the sole concurrency control.
	Decide(ctx context.Context, id int64, status domain.Status, decidedAt time.Time) (affected int64, err error)
	Delete(ctx context.Context, id int64) (affected int64, err error)
	Ping(ctx context.Context) error
}

// RegistrationService is the application-facing contract consumed by the
// HTTP handlers.
type RegistrationService interface {
	// Register is idempotent: a duplicate key is a defined non-error
	// outcome reported via created=false.
	Register(ctx context.Context, clientKey string) (created bool, err error)
	// Validate returns the current status for a key, or ErrNotFound.
	Validate(ctx context.Context, clientKey string) (domain.Status, error)
	ListAll(ctx context.Context) ([]domain.Registration, error)
	ListPending(ctx context.Context) ([]domain.Registration, error)
	// Decide approves or rejects a pending registration and returns the
	// resulting status. ErrNotFound covers missing and already-decided ids.
	Decide(ctx context.Context, id int64, action domain.Action) (domain.Status, error)
	Delete(ctx context.Context, id int64) error
	HealthCheck(ctx context.Context) map[string]error
}

// Notifier is the payload-free change broadcast. Announce reaches every
// session subscribed at call time; it carries no delta, only a trigger to
// re-fetch authoritative state.
type Notifier interface {
	Announce(ctx context.Context) error
}

// Credentials validates administrator logins and bearer tokens. Tokens are
// self-contained and time-bounded; there is no server-side session state.
type Credentials interface {
	Login(ctx context.Context, username, password string) (token string, err error)
	Verify(token string) (*domain.Principal, error)
}
