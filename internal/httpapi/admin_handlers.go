package httpapi

import (
	"context"
	"net/http"
	"strings"

	"safetrack.org/internal/account"
	"safetrack.org/internal/auth"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/report"
	"safetrack.org/internal/validate"
)

// adminTier is the minimum role for user lifecycle administration.
const adminTier = auth.RoleAdmin

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user supervisor manager admin super_admin"`
}

type setClaimsRequest struct {
	Claims map[string]any `json:"claims" validate:"required"`
}

type adminTargetRequest struct {
	UserID string
}

func (a *API) handleAdminUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/admin/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "export.csv" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.exportUsersCSV(w, r)
		return
	}

	id, action, hasAction := strings.Cut(path, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if !hasAction {
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, id)
		case http.MethodDelete:
			a.purgeUser(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
		return
	}

	switch action {
	case "role":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setUserRole(w, r, id)
	case "claims":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.setUserClaims(w, r, id)
	case "lock", "unlock", "deactivate", "reactivate", "reset-password", "signout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.userLifecycleAction(w, r, id, action)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit "+err.Error())
		return
	}
	offset, err := parsePositiveInt(r.URL.Query().Get("offset"), 0, 0, 1<<30)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "offset "+err.Error())
		return
	}

	type listRequest struct{ Limit, Offset int }
	op := guard.Operation[listRequest, account.Page]{
		Name:      "account.list",
		Authorize: guard.RoleAtLeast[listRequest](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, req listRequest) (account.Page, error) {
			return a.accounts.List(ctx, c, req.Limit, req.Offset)
		},
		Details: func(req listRequest, resp account.Page) map[string]any {
			return map[string]any{"total": resp.Total}
		},
	}
	page, err := guard.Run(r.Context(), a.runner, op, listRequest{Limit: limit, Offset: offset})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	op := guard.Operation[adminTargetRequest, account.User]{
		Name:      "account.get",
		Authorize: guard.RoleAtLeast[adminTargetRequest](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, req adminTargetRequest) (account.User, error) {
			return a.accounts.Get(ctx, c, req.UserID)
		},
		Details: func(req adminTargetRequest, _ account.User) map[string]any {
			return map[string]any{"user_id": req.UserID}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, adminTargetRequest{UserID: id})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) setUserRole(w http.ResponseWriter, r *http.Request, id string) {
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	type roleOpRequest struct {
		adminTargetRequest
		setRoleRequest
	}
	op := guard.Operation[roleOpRequest, account.User]{
		Name:      "account.role.set",
		Validate:  func(req roleOpRequest) error { return validate.Struct(req.setRoleRequest) },
		Authorize: guard.RoleAtLeast[roleOpRequest](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, req roleOpRequest) (account.User, error) {
			target := auth.Role(req.Role)
			// Nobody grants a role above their own tier.
			if !c.Role.AtLeast(target) {
				return account.User{}, guard.PermissionDenied("cannot assign a role above your own")
			}
			return a.accounts.SetRole(ctx, c, req.UserID, target)
		},
		Details: func(req roleOpRequest, resp account.User) map[string]any {
			return map[string]any{"user_id": resp.ID, "role": req.Role}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, roleOpRequest{adminTargetRequest{UserID: id}, req})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) setUserClaims(w http.ResponseWriter, r *http.Request, id string) {
	var req setClaimsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	type claimsOpRequest struct {
		adminTargetRequest
		setClaimsRequest
	}
	op := guard.Operation[claimsOpRequest, account.User]{
		Name:      "account.claims.set",
		Validate:  func(req claimsOpRequest) error { return validate.Struct(req.setClaimsRequest) },
		Authorize: guard.RoleAtLeast[claimsOpRequest](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, req claimsOpRequest) (account.User, error) {
			return a.accounts.SetClaims(ctx, c, req.UserID, req.Claims)
		},
		Details: func(req claimsOpRequest, resp account.User) map[string]any {
			return map[string]any{"user_id": resp.ID}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, claimsOpRequest{adminTargetRequest{UserID: id}, req})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) userLifecycleAction(w http.ResponseWriter, r *http.Request, id, action string) {
	switch action {
	case "reset-password":
		op := guard.Operation[adminTargetRequest, string]{
			Name:      "account.password.reset",
			Authorize: guard.RoleAtLeast[adminTargetRequest](adminTier),
			Effect: func(ctx context.Context, c guard.Caller, req adminTargetRequest) (string, error) {
				return a.accounts.ResetPassword(ctx, c, req.UserID)
			},
			// The temporary secret must never reach the audit trail.
			Details: func(req adminTargetRequest, _ string) map[string]any {
				return map[string]any{"user_id": req.UserID}
			},
		}
		temp, err := guard.Run(r.Context(), a.runner, op, adminTargetRequest{UserID: id})
		if err != nil {
			handleGuardError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "temporary_password": temp})
		return

	case "signout":
		op := guard.Operation[adminTargetRequest, struct{}]{
			Name:      "account.signout.force",
			Authorize: guard.RoleAtLeast[adminTargetRequest](adminTier),
			Effect: func(ctx context.Context, c guard.Caller, req adminTargetRequest) (struct{}, error) {
				return struct{}{}, a.accounts.ForceSignOut(ctx, c, req.UserID)
			},
			Details: func(req adminTargetRequest, _ struct{}) map[string]any {
				return map[string]any{"user_id": req.UserID}
			},
		}
		if _, err := guard.Run(r.Context(), a.runner, op, adminTargetRequest{UserID: id}); err != nil {
			handleGuardError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "status": "signed_out"})
		return
	}

	var (
		name   string
		effect func(ctx context.Context, c guard.Caller, uid string) (account.User, error)
	)
	switch action {
	case "lock":
		name, effect = "account.lock", a.accounts.Lock
	case "unlock":
		name, effect = "account.unlock", a.accounts.Unlock
	case "deactivate":
		name, effect = "account.deactivate", a.accounts.Deactivate
	case "reactivate":
		name, effect = "account.reactivate", a.accounts.Reactivate
	}

	op := guard.Operation[adminTargetRequest, account.User]{
		Name:      name,
		Authorize: guard.RoleAtLeast[adminTargetRequest](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, req adminTargetRequest) (account.User, error) {
			return effect(ctx, c, req.UserID)
		},
		Details: func(req adminTargetRequest, resp account.User) map[string]any {
			return map[string]any{"user_id": resp.ID, "status": string(resp.Status)}
		},
	}
	u, err := guard.Run(r.Context(), a.runner, op, adminTargetRequest{UserID: id})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) purgeUser(w http.ResponseWriter, r *http.Request, id string) {
	op := guard.Operation[adminTargetRequest, account.PurgeResult]{
		Name:      "account.purge",
		Authorize: guard.RoleAtLeast[adminTargetRequest](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, req adminTargetRequest) (account.PurgeResult, error) {
			return a.accounts.Purge(ctx, c, req.UserID)
		},
		Details: func(req adminTargetRequest, resp account.PurgeResult) map[string]any {
			return map[string]any{
				"user_id":              req.UserID,
				"incidents_reassigned": resp.IncidentsReassigned,
			}
		},
	}
	res, err := guard.Run(r.Context(), a.runner, op, adminTargetRequest{UserID: id})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) exportUsersCSV(w http.ResponseWriter, r *http.Request) {
	op := guard.Operation[struct{}, report.Export]{
		Name:      "account.export.csv",
		Authorize: guard.RoleAtLeast[struct{}](adminTier),
		Effect: func(ctx context.Context, c guard.Caller, _ struct{}) (report.Export, error) {
			const pageSize = 1000
			var all []account.User
			for offset := 0; ; offset += pageSize {
				page, err := a.accounts.List(ctx, c, pageSize, offset)
				if err != nil {
					return report.Export{}, err
				}
				all = append(all, page.Users...)
				if len(page.Users) < pageSize {
					break
				}
			}
			return a.reports.UsersCSV(ctx, all)
		},
		Details: func(_ struct{}, resp report.Export) map[string]any {
			return map[string]any{"artifact": resp.Ref.Key}
		},
	}
	exp, err := guard.Run(r.Context(), a.runner, op, struct{}{})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentTypeCSV)
	w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}
