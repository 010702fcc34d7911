package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"safetrack.org/internal/auth"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/incident"
)

// DefaultPermissions granted to every new profile at signup.
func DefaultPermissions() map[string]bool {
	return map[string]bool{
		"incident.report":   true,
		"incident.view_own": true,
	}
}

// Service implements account lifecycle operations. The identity provider and
// the incident archiver are injected so tests can substitute fakes; there are
// no module-level handles.
type Service struct {
	store     Store
	provider  IdentityProvider
	incidents IncidentArchiver
	now       func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the account service.
func NewService(store Store, provider IdentityProvider, incidents IncidentArchiver, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("account: store is required")
	}
	if provider == nil {
		return nil, errors.New("account: identity provider is required")
	}
	if incidents == nil {
		return nil, errors.New("account: incident archiver is required")
	}
	s := &Service{store: store, provider: provider, incidents: incidents, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store exposes the underlying store for authn lookups.
func (s *Service) Store() Store {
	return s.store
}

// SignupInput is the payload of the public signup operation.
type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Signup is the identity on-create hook: it builds the default profile with
// the lowest role, default permissions, and default custom claims.
func (s *Service) Signup(ctx context.Context, in SignupInput) (User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, guard.InvalidArgument("password", "is required")
	}
	u := User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Role:         auth.RoleUser,
		Status:       StatusActive,
		Permissions:  DefaultPermissions(),
		CustomClaims: map[string]any{"role": string(auth.RoleUser)},
		PasswordHash: hash,
	}
	err = s.store.Create(ctx, &u)
	if errors.Is(err, ErrEmailTaken) {
		return User{}, guard.InvalidArgument("email", "already registered")
	}
	if err != nil {
		return User{}, guard.Internal(err)
	}
	return u, nil
}

// Login verifies credentials, requires an active account, and stamps the
// login timestamp. Failures are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, guard.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return User{}, guard.Internal(err)
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return User{}, guard.Unauthenticated("invalid credentials")
	}
	if u.Status != StatusActive {
		return User{}, guard.Unauthenticated("invalid credentials")
	}
	if err := s.store.RecordLogin(ctx, u.ID, s.now().UTC()); err != nil {
		return User{}, guard.Internal(err)
	}
	return s.find(ctx, u.ID)
}

// Get returns one user record.
func (s *Service) Get(ctx context.Context, c guard.Caller, uid string) (User, error) {
	return s.find(ctx, uid)
}

// UpdateProfile applies self-service profile changes to the caller's record.
func (s *Service) UpdateProfile(ctx context.Context, c guard.Caller, upd ProfileUpdate) (User, error) {
	u, err := s.store.UpdateProfile(ctx, c.UID, upd)
	return u, s.mapErr(err)
}

// SetRole assigns a new role. The handler validates the enum; the service
// re-checks so direct callers cannot store an out-of-enum role.
func (s *Service) SetRole(ctx context.Context, c guard.Caller, uid string, role auth.Role) (User, error) {
	if !role.Valid() {
		return User{}, guard.InvalidArgument("role", fmt.Sprintf("must be one of %v", auth.Roles()))
	}
	u, err := s.store.SetRole(ctx, uid, role)
	return u, s.mapErr(err)
}

// Deactivate marks the account inactive and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, c guard.Caller, uid string) (User, error) {
	u, err := s.store.SetStatus(ctx, uid, StatusInactive)
	if err != nil {
		return User{}, s.mapErr(err)
	}
	if err := s.provider.RevokeSessions(ctx, uid); err != nil {
		return User{}, guard.Internal(err)
	}
	return u, nil
}

// Reactivate restores an inactive account to active.
func (s *Service) Reactivate(ctx context.Context, c guard.Caller, uid string) (User, error) {
	u, err := s.store.SetStatus(ctx, uid, StatusActive)
	return u, s.mapErr(err)
}

// Lock freezes the account: status locked, identity disabled at the provider,
// and every outstanding session revoked.
func (s *Service) Lock(ctx context.Context, c guard.Caller, uid string) (User, error) {
	u, err := s.store.SetStatus(ctx, uid, StatusLocked)
	if err != nil {
		return User{}, s.mapErr(err)
	}
	if err := s.provider.Disable(ctx, uid); err != nil {
		return User{}, guard.Internal(err)
	}
	if err := s.provider.RevokeSessions(ctx, uid); err != nil {
		return User{}, guard.Internal(err)
	}
	return u, nil
}

// Unlock re-enables a locked account.
func (s *Service) Unlock(ctx context.Context, c guard.Caller, uid string) (User, error) {
	if err := s.provider.Enable(ctx, uid); err != nil {
		return User{}, s.mapErr(err)
	}
	u, err := s.store.SetStatus(ctx, uid, StatusActive)
	return u, s.mapErr(err)
}

// ResetPassword issues a temporary credential via the identity provider.
// The plaintext goes back to the admin caller exactly once and is never
// written to the audit log.
func (s *Service) ResetPassword(ctx context.Context, c guard.Caller, uid string) (string, error) {
	if _, err := s.find(ctx, uid); err != nil {
		return "", err
	}
	temp, err := s.provider.ResetPassword(ctx, uid)
	if err != nil {
		return "", guard.Internal(err)
	}
	return temp, nil
}

// ForceSignOut revokes every outstanding session for the target account.
func (s *Service) ForceSignOut(ctx context.Context, c guard.Caller, uid string) error {
	if _, err := s.find(ctx, uid); err != nil {
		return err
	}
	if err := s.provider.RevokeSessions(ctx, uid); err != nil {
		return guard.Internal(err)
	}
	return nil
}

// SetClaims replaces the target account's custom claims.
func (s *Service) SetClaims(ctx context.Context, c guard.Caller, uid string, claims map[string]any) (User, error) {
	if err := s.provider.SetCustomClaims(ctx, uid, claims); err != nil {
		return User{}, s.mapErr(err)
	}
	return s.find(ctx, uid)
}

// PurgeResult reports what a permanent deletion did.
type PurgeResult struct {
	UserID              string `json:"user_id"`
	IncidentsReassigned int    `json:"incidents_reassigned"`
}

// Purge is the identity on-delete hook: the profile and identity are removed,
// and the user's authored incidents are reassigned to the sentinel reporter
// instead of being deleted.
func (s *Service) Purge(ctx context.Context, c guard.Caller, uid string) (PurgeResult, error) {
	if _, err := s.find(ctx, uid); err != nil {
		return PurgeResult{}, err
	}
	moved, err := s.incidents.ReassignReporter(ctx, uid, incident.SentinelReporter)
	if err != nil {
		return PurgeResult{}, guard.Internal(err)
	}
	if err := s.provider.DeleteAccount(ctx, uid); err != nil {
		return PurgeResult{}, guard.Internal(err)
	}
	return PurgeResult{UserID: uid, IncidentsReassigned: moved}, nil
}

// Page is one slice of the user directory.
type Page struct {
	Users  []User `json:"users"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// List returns a page of user records.
func (s *Service) List(ctx context.Context, c guard.Caller, limit, offset int) (Page, error) {
	users, total, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return Page{}, guard.Internal(err)
	}
	return Page{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) find(ctx context.Context, uid string) (User, error) {
	u, err := s.store.Find(ctx, uid)
	if err != nil {
		return User{}, s.mapErr(err)
	}
	return u, nil
}

func (s *Service) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return guard.NotFound("user")
	default:
		return guard.Internal(err)
	}
}
