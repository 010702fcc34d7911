// Package identity implements the administrative identity surface over the
// account directory: enable/disable, session revocation, claims, credential
// resets, and permanent deletion.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"safetrack.org/internal/account"
	"safetrack.org/internal/auth"
)

// tempSecretBytes of entropy go into each issued temporary credential.
const tempSecretBytes = 18

// DirectoryProvider satisfies account.IdentityProvider against the same
// directory store that holds the profiles. Session revocation works by
// bumping the stored token version: outstanding tokens carry the old
// version and fail the authn check.
type DirectoryProvider struct {
	store account.Store
}

var _ account.IdentityProvider = (*DirectoryProvider)(nil)

// NewDirectoryProvider builds a provider over the given store.
func NewDirectoryProvider(store account.Store) (*DirectoryProvider, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	return &DirectoryProvider{store: store}, nil
}

// Disable locks the identity and revokes outstanding sessions.
func (p *DirectoryProvider) Disable(ctx context.Context, uid string) error {
	if _, err := p.store.SetStatus(ctx, uid, account.StatusLocked); err != nil {
		return err
	}
	_, err := p.store.BumpTokenVersion(ctx, uid)
	return err
}

// Enable reactivates a previously disabled identity.
func (p *DirectoryProvider) Enable(ctx context.Context, uid string) error {
	_, err := p.store.SetStatus(ctx, uid, account.StatusActive)
	return err
}

// RevokeSessions invalidates every outstanding token for the user.
func (p *DirectoryProvider) RevokeSessions(ctx context.Context, uid string) error {
	_, err := p.store.BumpTokenVersion(ctx, uid)
	return err
}

// SetCustomClaims replaces the stored custom claims.
func (p *DirectoryProvider) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	_, err := p.store.SetClaims(ctx, uid, claims)
	return err
}

// ResetPassword generates a temporary credential, stores its hash, revokes
// sessions, and returns the plaintext exactly once.
func (p *DirectoryProvider) ResetPassword(ctx context.Context, uid string) (string, error) {
	buf := make([]byte, tempSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("identity: generate temp secret: %w", err)
	}
	temp := base64.RawURLEncoding.EncodeToString(buf)
	hash, err := auth.HashPassword(temp)
	if err != nil {
		return "", fmt.Errorf("identity: hash temp secret: %w", err)
	}
	if err := p.store.SetPassword(ctx, uid, hash); err != nil {
		return "", err
	}
	if _, err := p.store.BumpTokenVersion(ctx, uid); err != nil {
		return "", err
	}
	return temp, nil
}

// DeleteAccount permanently removes the identity and its profile.
func (p *DirectoryProvider) DeleteAccount(ctx context.Context, uid string) error {
	return p.store.Delete(ctx, uid)
}
