package access

import (
	"context"
	"time"
)

// Store describes the persistence operations the flows require. Lookups are
// keyed; no joins are assumed. Implementations live in internal/store.
type Store interface {
	Users(ctx context.Context) UserStore
	Organizations(ctx context.Context) OrganizationStore
	Invitations(ctx context.Context) InvitationStore
}

// UserStore manages principals.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByResetToken matches the stored reset token copy with a stored
	// expiry later than now. Signature validity alone never matches.
	FindByResetToken(ctx context.Context, token string, now time.Time) (*User, error)
	FindByRole(ctx context.Context, role Role) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Save(ctx context.Context, u *User) error
}

// OrganizationStore manages organizations.
type OrganizationStore interface {
	// FindOrCreate resolves an organization by unique name, creating it when
	// absent. The create must be conditional on the unique name so concurrent
	// provisioning attempts converge on one row.
	FindOrCreate(ctx context.Context, name string) (*Organization, error)
	Find(ctx context.Context, id string) (*Organization, error)
	FindByClientAdmin(ctx context.Context, userID string) (*Organization, error)
	Save(ctx context.Context, org *Organization) error
}

// InvitationStore manages invitation rows.
type InvitationStore interface {
	Create(ctx context.Context, inv *Invitation) error
	// FindPending matches {email, token, accepted:false} exactly. A consumed
	// row or a different token for the same email does not match.
	FindPending(ctx context.Context, email, token string) (*Invitation, error)
	Save(ctx context.Context, inv *Invitation) error
}

// Notifier dispatches outbound email. Flows invoke it best-effort: a delivery
// failure never unwinds a completed invite, enrollment or reset.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
