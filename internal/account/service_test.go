package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"safetrack.org/internal/auth"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/incident"
)

// fakeProvider records which identity operations ran.
type fakeProvider struct {
	disabled  []string
	enabled   []string
	revoked   []string
	deleted   []string
	claims    map[string]map[string]any
	resetFn   func(uid string) (string, error)
	disableFn func(uid string) error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{claims: make(map[string]map[string]any)}
}

func (p *fakeProvider) Disable(_ context.Context, uid string) error {
	if p.disableFn != nil {
		return p.disableFn(uid)
	}
	p.disabled = append(p.disabled, uid)
	return nil
}

func (p *fakeProvider) Enable(_ context.Context, uid string) error {
	p.enabled = append(p.enabled, uid)
	return nil
}

func (p *fakeProvider) RevokeSessions(_ context.Context, uid string) error {
	p.revoked = append(p.revoked, uid)
	return nil
}

func (p *fakeProvider) SetCustomClaims(_ context.Context, uid string, claims map[string]any) error {
	p.claims[uid] = claims
	return nil
}

func (p *fakeProvider) ResetPassword(_ context.Context, uid string) (string, error) {
	if p.resetFn != nil {
		return p.resetFn(uid)
	}
	return "temp-secret", nil
}

func (p *fakeProvider) DeleteAccount(_ context.Context, uid string) error {
	p.deleted = append(p.deleted, uid)
	return nil
}

func newTestService(t *testing.T) (*Service, *InMemory, *fakeProvider, *incident.InMemory) {
	t.Helper()
	store := NewInMemory()
	provider := newFakeProvider()
	incidents := incident.NewInMemory()
	svc, err := NewService(store, provider, incidents,
		WithClock(func() time.Time { return time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC) }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, provider, incidents
}

func signup(t *testing.T, svc *Service, email string) User {
	t.Helper()
	u, err := svc.Signup(context.Background(), SignupInput{
		Email:       email,
		Password:    "correct horse battery",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("Signup(%s): %v", email, err)
	}
	return u
}

func admin() guard.Caller {
	return guard.Caller{UID: "admin-1", Role: auth.RoleAdmin}
}

func TestSignupDefaults(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	u := signup(t, svc, "Worker@Example.COM")
	if u.Email != "worker@example.com" {
		t.Fatalf("email not normalized: %s", u.Email)
	}
	if u.Role != auth.RoleUser {
		t.Fatalf("new accounts must start at the lowest role, got %s", u.Role)
	}
	if u.Status != StatusActive {
		t.Fatalf("expected active status, got %s", u.Status)
	}
	if !u.Permissions["incident.report"] || !u.Permissions["incident.view_own"] {
		t.Fatalf("default permissions missing: %+v", u.Permissions)
	}
	if u.CustomClaims["role"] != string(auth.RoleUser) {
		t.Fatalf("default claims missing: %+v", u.CustomClaims)
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct horse battery" {
		t.Fatal("password must be stored hashed")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	signup(t, svc, "worker@example.com")

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "WORKER@example.com",
		Password: "another password",
	})
	if guard.KindOf(err) != guard.KindInvalidArgument {
		t.Fatalf("expected invalid-argument on duplicate email, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	created := signup(t, svc, "worker@example.com")
	ctx := context.Background()

	u, err := svc.Login(ctx, "worker@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("wrong user returned: %s", u.ID)
	}
	if u.LastLoginAt == nil {
		t.Fatal("expected login timestamp to be recorded")
	}

	if _, err := svc.Login(ctx, "worker@example.com", "wrong"); guard.KindOf(err) != guard.KindUnauthenticated {
		t.Fatalf("bad password: expected unauthenticated, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever"); guard.KindOf(err) != guard.KindUnauthenticated {
		t.Fatalf("unknown email: expected unauthenticated, got %v", err)
	}
}

func TestLoginRejectsNonActive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	ctx := context.Background()

	if _, err := svc.Deactivate(ctx, admin(), u.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := svc.Login(ctx, "worker@example.com", "correct horse battery"); guard.KindOf(err) != guard.KindUnauthenticated {
		t.Fatalf("inactive account must not sign in, got %v", err)
	}
}

func TestSetRoleValidatesEnum(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	ctx := context.Background()

	got, err := svc.SetRole(ctx, admin(), u.ID, auth.RoleManager)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if got.Role != auth.RoleManager {
		t.Fatalf("role not stored: %s", got.Role)
	}

	if _, err := svc.SetRole(ctx, admin(), u.ID, auth.Role("owner")); guard.KindOf(err) != guard.KindInvalidArgument {
		t.Fatalf("out-of-enum role must be rejected, got %v", err)
	}
	if _, err := svc.SetRole(ctx, admin(), "missing", auth.RoleManager); guard.KindOf(err) != guard.KindNotFound {
		t.Fatalf("expected not-found for unknown target, got %v", err)
	}
}

func TestLockDisablesAndRevokes(t *testing.T) {
	svc, store, provider, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	ctx := context.Background()

	got, err := svc.Lock(ctx, admin(), u.ID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if got.Status != StatusLocked {
		t.Fatalf("expected locked status, got %s", got.Status)
	}
	if len(provider.disabled) != 1 || provider.disabled[0] != u.ID {
		t.Fatalf("identity not disabled: %+v", provider.disabled)
	}
	if len(provider.revoked) != 1 || provider.revoked[0] != u.ID {
		t.Fatalf("sessions not revoked: %+v", provider.revoked)
	}

	unlocked, err := svc.Unlock(ctx, admin(), u.ID)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if unlocked.Status != StatusActive {
		t.Fatalf("expected active after unlock, got %s", unlocked.Status)
	}
	if len(provider.enabled) != 1 {
		t.Fatalf("identity not re-enabled: %+v", provider.enabled)
	}

	raw, _ := store.Find(ctx, u.ID)
	if raw.Status != StatusActive {
		t.Fatalf("store out of sync: %s", raw.Status)
	}
}

func TestLockPropagatesProviderFailure(t *testing.T) {
	svc, _, provider, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	provider.disableFn = func(string) error { return errors.New("directory offline") }

	_, err := svc.Lock(context.Background(), admin(), u.ID)
	if guard.KindOf(err) != guard.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestResetPasswordReturnsTempSecret(t *testing.T) {
	svc, _, provider, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	provider.resetFn = func(string) (string, error) { return "one-time-secret", nil }

	temp, err := svc.ResetPassword(context.Background(), admin(), u.ID)
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if temp != "one-time-secret" {
		t.Fatalf("temp secret not returned to caller: %q", temp)
	}
	if _, err := svc.ResetPassword(context.Background(), admin(), "missing"); guard.KindOf(err) != guard.KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSetClaims(t *testing.T) {
	svc, store, provider, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	ctx := context.Background()

	claims := map[string]any{"role": "manager", "site": "plant-7"}
	if _, err := store.SetClaims(ctx, u.ID, claims); err != nil {
		t.Fatalf("SetClaims store: %v", err)
	}
	got, err := svc.SetClaims(ctx, admin(), u.ID, claims)
	if err != nil {
		t.Fatalf("SetClaims: %v", err)
	}
	if provider.claims[u.ID]["site"] != "plant-7" {
		t.Fatalf("claims not pushed to provider: %+v", provider.claims)
	}
	if got.CustomClaims["site"] != "plant-7" {
		t.Fatalf("claims not persisted: %+v", got.CustomClaims)
	}
}

func TestPurgeReassignsIncidents(t *testing.T) {
	svc, _, provider, incidents := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		inc := incident.Incident{ReportedBy: u.ID, Title: "t", Severity: incident.SeverityLow, Category: incident.CategoryOther, Status: incident.StatusOpen}
		if err := incidents.Create(ctx, &inc); err != nil {
			t.Fatalf("seed incident: %v", err)
		}
	}
	total, _ := incidents.CountByReporter(ctx, u.ID)

	res, err := svc.Purge(ctx, admin(), u.ID)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if res.IncidentsReassigned != total {
		t.Fatalf("expected %d reassigned, got %d", total, res.IncidentsReassigned)
	}
	if len(provider.deleted) != 1 || provider.deleted[0] != u.ID {
		t.Fatalf("identity not deleted: %+v", provider.deleted)
	}
	kept, _ := incidents.CountByReporter(ctx, incident.SentinelReporter)
	if kept != total {
		t.Fatalf("incident count changed across purge: want %d, got %d", total, kept)
	}
}

func TestListPagination(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		signup(t, svc, email)
	}

	page, err := svc.List(ctx, admin(), 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || len(page.Users) != 2 {
		t.Fatalf("unexpected page: total=%d len=%d", page.Total, len(page.Users))
	}
	rest, _ := svc.List(ctx, admin(), 2, 2)
	if len(rest.Users) != 1 {
		t.Fatalf("expected 1 user on second page, got %d", len(rest.Users))
	}
}

func TestRoleSourceFallsBackOnMissing(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	u := signup(t, svc, "worker@example.com")
	src := NewRoleSource(store)

	role, ok, err := src.RoleOf(context.Background(), u.ID)
	if err != nil || !ok || role != auth.RoleUser {
		t.Fatalf("RoleOf: role=%s ok=%v err=%v", role, ok, err)
	}
	_, ok, err = src.RoleOf(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("missing user must report ok=false, got ok=%v err=%v", ok, err)
	}
}
