package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"safetrack.org/internal/account"
	"safetrack.org/internal/audit"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/incident"
	"safetrack.org/internal/obs"
	"safetrack.org/internal/report"
)

const serviceName = "safetrack-api"

// ReadyProbe checks backing-store readiness (e.g. a DB ping). A nil DB means
// the in-memory backend, which is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// API is the HTTP layer. Every domain handler composes a guard operation and
// hands it to the shared runner.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	runner    *guard.Runner
	recorder  *audit.Recorder
	accounts  *account.Service
	incidents *incident.Service
	reports   *report.Service

	rateBurst  int
	ratePerSec int
}

// Deps carries the collaborators the API needs.
type Deps struct {
	ReadyProbe ReadyProbe
	Version    string
	Runner     *guard.Runner
	Recorder   *audit.Recorder
	Accounts   *account.Service
	Incidents  *incident.Service
	Reports    *report.Service
}

func New(d Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: d.ReadyProbe,
		version:    d.Version,
		runner:     d.Runner,
		recorder:   d.Recorder,
		accounts:   d.Accounts,
		incidents:  d.Incidents,
		reports:    d.Reports,
		rateBurst:  50,
		ratePerSec: 25,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// public auth endpoints
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)

	// self-service account endpoints
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/me/", a.handleMeAction)

	// incidents
	a.mux.HandleFunc("/v1/incidents", a.handleIncidentsCollection)
	a.mux.HandleFunc("/v1/incidents/", a.handleIncidentResource)

	// admin user lifecycle
	a.mux.HandleFunc("/v1/admin/users", a.handleAdminUsersCollection)
	a.mux.HandleFunc("/v1/admin/users/", a.handleAdminUserResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = LoggingJSON(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// handleGuardError maps the typed failure taxonomy onto HTTP statuses.
// Internal causes never reach the response body.
func handleGuardError(w http.ResponseWriter, r *http.Request, err error) {
	switch guard.KindOf(err) {
	case guard.KindUnauthenticated:
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case guard.KindInvalidArgument:
		writeError(w, r, http.StatusBadRequest, err.Error())
	case guard.KindNotFound:
		writeError(w, r, http.StatusNotFound, err.Error())
	case guard.KindPermissionDenied:
		writeError(w, r, http.StatusForbidden, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if val < min || val > max {
		return 0, fmt.Errorf("must be between %d and %d", min, max)
	}
	return val, nil
}
