package httpapi

import (
	"context"
	"net/http"
	"strings"

	"safetrack.org/internal/account"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/validate"
)

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=200"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getMe(w, r)
	case http.MethodPatch:
		a.updateMe(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) handleMeAction(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/v1/me/")
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	switch action {
	case "deactivate":
		a.deactivateMe(w, r)
	case "signout":
		a.signOutMe(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	op := guard.Operation[struct{}, account.User]{
		Name: "account.profile.get",
		Effect: func(ctx context.Context, c guard.Caller, _ struct{}) (account.User, error) {
			return a.accounts.Get(ctx, c, c.UID)
		},
		Details: func(_ struct{}, resp account.User) map[string]any {
			return map[string]any{"user_id": resp.ID}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, struct{}{})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	op := guard.Operation[updateProfileRequest, account.User]{
		Name:     "account.profile.update",
		Validate: func(req updateProfileRequest) error { return validate.Struct(req) },
		Effect: func(ctx context.Context, c guard.Caller, req updateProfileRequest) (account.User, error) {
			return a.accounts.UpdateProfile(ctx, c, account.ProfileUpdate{DisplayName: req.DisplayName})
		},
		Details: func(req updateProfileRequest, resp account.User) map[string]any {
			return map[string]any{"user_id": resp.ID}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, req)
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) deactivateMe(w http.ResponseWriter, r *http.Request) {
	op := guard.Operation[struct{}, account.User]{
		Name: "account.deactivate.self",
		Effect: func(ctx context.Context, c guard.Caller, _ struct{}) (account.User, error) {
			return a.accounts.Deactivate(ctx, c, c.UID)
		},
		Details: func(_ struct{}, resp account.User) map[string]any {
			return map[string]any{"user_id": resp.ID}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, struct{}{})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) signOutMe(w http.ResponseWriter, r *http.Request) {
	op := guard.Operation[struct{}, struct{}]{
		Name: "account.signout.self",
		Effect: func(ctx context.Context, c guard.Caller, _ struct{}) (struct{}, error) {
			return struct{}{}, a.accounts.ForceSignOut(ctx, c, c.UID)
		},
		Details: func(struct{}, struct{}) map[string]any { return nil },
	}
	if _, err := guard.Run(r.Context(), a.runner, op, struct{}{}); err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "signed_out"})
}
