package auth

import (
	"strings"
	"testing"
	"time"
)

func withSecret(t *testing.T, value string) {
	t.Helper()
	ResetSecretForTests()
	t.Setenv("SAFETRACK_AUTH_SECRET", value)
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidateToken(t *testing.T) {
	withSecret(t, "unit-test-secret")

	token, err := GenerateToken("user-42", RoleManager, 3, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != string(RoleManager) {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}
	if claims.TokenVersion != 3 {
		t.Fatalf("unexpected token version: %d", claims.TokenVersion)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestGenerateTokenRejectsBadInput(t *testing.T) {
	withSecret(t, "unit-test-secret")

	if _, err := GenerateToken("", RoleUser, 0, time.Minute); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if _, err := GenerateToken("u1", Role("root"), 0, time.Minute); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if _, err := GenerateToken("u1", RoleUser, 0, 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestParseAndValidateRejectsTamperedToken(t *testing.T) {
	withSecret(t, "unit-test-secret")

	token, err := GenerateToken("user-42", RoleUser, 0, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := ParseAndValidate(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
	if _, err := ParseAndValidate(""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestMissingSecretFailsClosed(t *testing.T) {
	withSecret(t, "")
	if _, err := GenerateToken("user-42", RoleUser, 0, time.Minute); err == nil {
		t.Fatal("expected error when secret is unset")
	}
}
