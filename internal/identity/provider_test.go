package identity

import (
	"context"
	"errors"
	"testing"

	"safetrack.org/internal/account"
	"safetrack.org/internal/auth"
)

func seedUser(t *testing.T, store account.Store) account.User {
	t.Helper()
	hash, err := auth.HashPassword("original password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := account.User{
		Email:        "worker@example.com",
		Role:         auth.RoleUser,
		Status:       account.StatusActive,
		PasswordHash: hash,
	}
	if err := store.Create(context.Background(), &u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestDisableLocksAndBumpsVersion(t *testing.T) {
	store := account.NewInMemory()
	u := seedUser(t, store)
	p, err := NewDirectoryProvider(store)
	if err != nil {
		t.Fatalf("NewDirectoryProvider: %v", err)
	}
	ctx := context.Background()

	if err := p.Disable(ctx, u.ID); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	got, _ := store.Find(ctx, u.ID)
	if got.Status != account.StatusLocked {
		t.Fatalf("expected locked, got %s", got.Status)
	}
	if got.TokenVersion != u.TokenVersion+1 {
		t.Fatalf("token version not bumped: %d", got.TokenVersion)
	}

	if err := p.Enable(ctx, u.ID); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	got, _ = store.Find(ctx, u.ID)
	if got.Status != account.StatusActive {
		t.Fatalf("expected active, got %s", got.Status)
	}
}

func TestRevokeSessionsBumpsVersion(t *testing.T) {
	store := account.NewInMemory()
	u := seedUser(t, store)
	p, _ := NewDirectoryProvider(store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := p.RevokeSessions(ctx, u.ID); err != nil {
			t.Fatalf("RevokeSessions: %v", err)
		}
		got, _ := store.Find(ctx, u.ID)
		if got.TokenVersion != i {
			t.Fatalf("round %d: token version %d", i, got.TokenVersion)
		}
	}
}

func TestResetPasswordIssuesUsableSecret(t *testing.T) {
	store := account.NewInMemory()
	u := seedUser(t, store)
	p, _ := NewDirectoryProvider(store)
	ctx := context.Background()

	temp, err := p.ResetPassword(ctx, u.ID)
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if temp == "" {
		t.Fatal("expected a temporary secret")
	}

	got, _ := store.Find(ctx, u.ID)
	if err := auth.VerifyPassword(got.PasswordHash, temp); err != nil {
		t.Fatalf("temp secret does not verify: %v", err)
	}
	if err := auth.VerifyPassword(got.PasswordHash, "original password"); err == nil {
		t.Fatal("old password still accepted")
	}
	if got.TokenVersion != u.TokenVersion+1 {
		t.Fatal("reset must revoke outstanding sessions")
	}

	second, err := p.ResetPassword(ctx, u.ID)
	if err != nil {
		t.Fatalf("second ResetPassword: %v", err)
	}
	if second == temp {
		t.Fatal("temp secrets must not repeat")
	}
}

func TestDeleteAccountRemovesProfile(t *testing.T) {
	store := account.NewInMemory()
	u := seedUser(t, store)
	p, _ := NewDirectoryProvider(store)
	ctx := context.Background()

	if err := p.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := store.Find(ctx, u.ID); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("profile still present: %v", err)
	}
}

func TestSetCustomClaims(t *testing.T) {
	store := account.NewInMemory()
	u := seedUser(t, store)
	p, _ := NewDirectoryProvider(store)
	ctx := context.Background()

	if err := p.SetCustomClaims(ctx, u.ID, map[string]any{"site": "plant-7"}); err != nil {
		t.Fatalf("SetCustomClaims: %v", err)
	}
	got, _ := store.Find(ctx, u.ID)
	if got.CustomClaims["site"] != "plant-7" {
		t.Fatalf("claims not stored: %+v", got.CustomClaims)
	}
}
