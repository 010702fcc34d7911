package validate

import (
	"strings"
	"testing"

	"safetrack.org/internal/guard"
)

type sample struct {
	Email      string `json:"email" validate:"required,email"`
	Severity   string `json:"severity" validate:"required,oneof=low medium high critical"`
	OccurredAt string `json:"occurred_at" validate:"omitempty,rfc3339"`
	Note       string `json:"note" validate:"max=10"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	err := Struct(sample{
		Email:      "worker@example.com",
		Severity:   "high",
		OccurredAt: "2026-05-02T09:00:00Z",
		Note:       "ok",
	})
	if err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestStructReportsJSONFieldName(t *testing.T) {
	err := Struct(sample{Email: "not-an-email", Severity: "high"})
	if guard.KindOf(err) != guard.KindInvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
	if !strings.Contains(err.Error(), "email") {
		t.Fatalf("error should name the json field: %v", err)
	}
}

func TestStructRejectsOutOfEnum(t *testing.T) {
	err := Struct(sample{Email: "worker@example.com", Severity: "catastrophic"})
	if guard.KindOf(err) != guard.KindInvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
	if !strings.Contains(err.Error(), "severity") {
		t.Fatalf("error should name the severity field: %v", err)
	}
}

func TestStructRejectsBadTimestamp(t *testing.T) {
	err := Struct(sample{Email: "worker@example.com", Severity: "low", OccurredAt: "yesterday"})
	if guard.KindOf(err) != guard.KindInvalidArgument {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
	if !strings.Contains(err.Error(), "occurred_at") {
		t.Fatalf("error should name the timestamp field: %v", err)
	}
}

func TestStructEmptyTimestampNeedsRequiredTag(t *testing.T) {
	// omitempty + rfc3339 lets the zero value through; required is a
	// separate concern.
	if err := Struct(sample{Email: "worker@example.com", Severity: "low"}); err != nil {
		t.Fatalf("optional timestamp must be allowed empty: %v", err)
	}
}
