package account

import (
	"context"
	"errors"
	"time"

	"safetrack.org/internal/auth"
)

// Status of a user record. Locked accounts are also disabled at the identity
// provider; inactive accounts keep their credentials but cannot sign in.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusLocked   Status = "locked"
)

// User is a safetrack account record. TokenVersion is the session generation:
// bumping it invalidates every outstanding token for the user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	DisplayName  string         `json:"display_name,omitempty"`
	Role         auth.Role      `json:"role"`
	Status       Status         `json:"status"`
	Permissions  map[string]bool `json:"permissions,omitempty"`
	CustomClaims map[string]any `json:"custom_claims,omitempty"`
	PasswordHash string         `json:"-"`
	TokenVersion int            `json:"-"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ProfileUpdate carries the self-service mutable fields. Nil pointers leave
// the stored value untouched.
type ProfileUpdate struct {
	DisplayName *string
}

// Store describes persistence operations required by the account subsystem.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (User, error)
	SetRole(ctx context.Context, id string, role auth.Role) (User, error)
	SetStatus(ctx context.Context, id string, status Status) (User, error)
	SetClaims(ctx context.Context, id string, claims map[string]any) (User, error)
	SetPassword(ctx context.Context, id, hash string) error
	BumpTokenVersion(ctx context.Context, id string) (int, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

var (
	ErrNotFound   = errors.New("account: not found")
	ErrEmailTaken = errors.New("account: email already registered")
)

// IdentityProvider is the administrative surface of the identity collaborator
// consumed by account operations. Tests substitute fakes.
type IdentityProvider interface {
	Disable(ctx context.Context, uid string) error
	Enable(ctx context.Context, uid string) error
	RevokeSessions(ctx context.Context, uid string) error
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
	ResetPassword(ctx context.Context, uid string) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
}

// IncidentArchiver reassigns authored incidents when an account is purged.
type IncidentArchiver interface {
	ReassignReporter(ctx context.Context, from, to string) (int, error)
}

// roleDirectory adapts a Store to the permission resolver's RoleSource.
type roleDirectory struct {
	store Store
}

// NewRoleSource exposes stored roles to the auth resolver.
func NewRoleSource(store Store) auth.RoleSource {
	return &roleDirectory{store: store}
}

func (d *roleDirectory) RoleOf(ctx context.Context, uid string) (auth.Role, bool, error) {
	u, err := d.store.Find(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Role, true, nil
}
