package httpapi

import (
	"net/http"
	"time"

	"safetrack.org/internal/account"
	"safetrack.org/internal/auth"
	"safetrack.org/internal/validate"
)

const tokenTTL = 15 * time.Minute

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=10"`
	DisplayName string `json:"display_name" validate:"max=200"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      account.User `json:"user"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		handleGuardError(w, r, err)
		return
	}

	u, err := a.accounts.Signup(r.Context(), account.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}

	a.recorder.Record(r.Context(), u.ID, "auth.signup", map[string]any{
		"email": u.Email,
	})

	w.Header().Set("Location", "/v1/admin/users/"+u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		handleGuardError(w, r, err)
		return
	}

	u, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleGuardError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(u.ID, u.Role, u.TokenVersion, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	a.recorder.Record(r.Context(), u.ID, "auth.login", map[string]any{
		"email": u.Email,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(tokenTTL),
		User:      u,
	})
}
