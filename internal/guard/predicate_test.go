package guard

import (
	"context"
	"testing"

	"safetrack.org/internal/auth"
)

type target struct {
	ID       string
	Reporter string
}

func TestOwnerPredicate(t *testing.T) {
	pred := Owner[target](func(_ context.Context, req target) (string, error) {
		return req.Reporter, nil
	})

	ok, err := pred(context.Background(), Caller{UID: "u1", Role: auth.RoleUser}, target{Reporter: "u1"})
	if err != nil || !ok {
		t.Fatalf("expected owner grant: ok=%v err=%v", ok, err)
	}
	ok, _ = pred(context.Background(), Caller{UID: "u2", Role: auth.RoleUser}, target{Reporter: "u1"})
	if ok {
		t.Fatal("non-owner must be denied")
	}
	ok, _ = pred(context.Background(), Caller{UID: "", Role: auth.RoleUser}, target{Reporter: ""})
	if ok {
		t.Fatal("empty owner must never grant")
	}
}

func TestAnyOfRoleOrOwner(t *testing.T) {
	// The recurring object rule: supervisor-or-above OR the reporter.
	pred := AnyOf(
		RoleAtLeast[target](auth.RoleSupervisor),
		Owner[target](func(_ context.Context, req target) (string, error) {
			return req.Reporter, nil
		}),
	)

	cases := []struct {
		name   string
		caller Caller
		req    target
		want   bool
	}{
		{"supervisor, not owner", Caller{UID: "s1", Role: auth.RoleSupervisor}, target{Reporter: "u1"}, true},
		{"admin, not owner", Caller{UID: "a1", Role: auth.RoleAdmin}, target{Reporter: "u1"}, true},
		{"plain user, owner", Caller{UID: "u1", Role: auth.RoleUser}, target{Reporter: "u1"}, true},
		{"plain user, not owner", Caller{UID: "u2", Role: auth.RoleUser}, target{Reporter: "u1"}, false},
	}
	for _, tc := range cases {
		ok, err := pred(context.Background(), tc.caller, tc.req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ok != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, ok, tc.want)
		}
	}
}

func TestAllOf(t *testing.T) {
	pred := AllOf(
		RoleAtLeast[target](auth.RoleUser),
		Self[target](func(req target) string { return req.ID }),
	)

	ok, _ := pred(context.Background(), Caller{UID: "u1", Role: auth.RoleUser}, target{ID: "u1"})
	if !ok {
		t.Fatal("expected grant when all predicates pass")
	}
	ok, _ = pred(context.Background(), Caller{UID: "u1", Role: auth.RoleUser}, target{ID: "u2"})
	if ok {
		t.Fatal("expected denial when one predicate fails")
	}
}

func TestKindOfClassification(t *testing.T) {
	if KindOf(nil) != "" {
		t.Fatal("nil error has no kind")
	}
	if KindOf(Unauthenticated("")) != KindUnauthenticated {
		t.Fatal("wrong kind for unauthenticated")
	}
	if KindOf(InvalidArgument("email", "required")) != KindInvalidArgument {
		t.Fatal("wrong kind for invalid-argument")
	}
	if KindOf(context.Canceled) != KindInternal {
		t.Fatal("foreign errors classify as internal")
	}
}
