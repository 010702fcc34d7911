package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"safetrack.org/internal/guard"
	"safetrack.org/internal/incident"
	"safetrack.org/internal/report"
	"safetrack.org/internal/validate"
)

// createIncidentRequest accepts a priority field so existing clients do not
// break, but the value is discarded: priority is always computed server-side.
type createIncidentRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Description string `json:"description" validate:"max=10000"`
	Severity    string `json:"severity" validate:"required,oneof=low medium high critical"`
	Category    string `json:"category" validate:"required,oneof=injury near_miss property_damage environmental security other"`
	OccurredAt  string `json:"occurred_at" validate:"omitempty,rfc3339"`
	Priority    string `json:"priority"`
}

type stageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=open investigating resolved closed"`
	Note  string `json:"note" validate:"max=2000"`
}

type incidentIDRequest struct {
	ID string
}

func (a *API) handleIncidentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createIncident(w, r)
	case http.MethodGet:
		a.listIncidents(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleIncidentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/incidents/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "export.csv" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.exportIncidentsCSV(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/stage"); ok {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.advanceIncidentStage(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/pdf"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.incidentPDF(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getIncident(w, r, path)
	case http.MethodDelete:
		a.deleteIncident(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// staffOrReporter grants supervisor-and-above, or the incident's own reporter.
func (a *API) staffOrReporter() guard.Predicate[incidentIDRequest] {
	return guard.AnyOf(
		guard.RoleAtLeast[incidentIDRequest](incident.StaffRole),
		guard.Owner(func(ctx context.Context, req incidentIDRequest) (string, error) {
			return a.incidents.ReporterOf(ctx, req.ID)
		}),
	)
}

func (a *API) createIncident(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	op := guard.Operation[createIncidentRequest, incident.Incident]{
		Name:     "incident.create",
		Validate: func(req createIncidentRequest) error { return validate.Struct(req) },
		Effect: func(ctx context.Context, c guard.Caller, req createIncidentRequest) (incident.Incident, error) {
			var occurred time.Time
			if req.OccurredAt != "" {
				occurred, _ = time.Parse(time.RFC3339, req.OccurredAt)
			}
			return a.incidents.Create(ctx, c, incident.CreateInput{
				Title:       req.Title,
				Description: req.Description,
				Severity:    incident.Severity(req.Severity),
				Category:    incident.Category(req.Category),
				OccurredAt:  occurred,
			})
		},
		Details: func(req createIncidentRequest, resp incident.Incident) map[string]any {
			return map[string]any{
				"incident_id": resp.ID,
				"severity":    string(resp.Severity),
				"category":    string(resp.Category),
				"priority":    string(resp.Priority),
			}
		},
	}
	inc, err := guard.Run(r.Context(), a.runner, op, req)
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/incidents/"+inc.ID)
	writeJSON(w, http.StatusCreated, inc)
}

func (a *API) getIncident(w http.ResponseWriter, r *http.Request, id string) {
	op := guard.Operation[incidentIDRequest, incident.Incident]{
		Name: "incident.get",
		Effect: func(ctx context.Context, c guard.Caller, req incidentIDRequest) (incident.Incident, error) {
			return a.incidents.Get(ctx, c, req.ID)
		},
		Details: func(req incidentIDRequest, _ incident.Incident) map[string]any {
			return map[string]any{"incident_id": req.ID}
		},
	}
	inc, err := guard.Run(r.Context(), a.runner, op, incidentIDRequest{ID: id})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (a *API) listIncidents(w http.ResponseWriter, r *http.Request) {
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
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	op := guard.Operation[incident.ListInput, []incident.Incident]{
		Name: "incident.list",
		Effect: func(ctx context.Context, c guard.Caller, req incident.ListInput) ([]incident.Incident, error) {
			return a.incidents.List(ctx, c, req)
		},
		Details: func(req incident.ListInput, items []incident.Incident) map[string]any {
			return map[string]any{"count": len(items), "include_deleted": req.IncludeDeleted}
		},
	}
	items, err := guard.Run(r.Context(), a.runner, op, incident.ListInput{
		IncludeDeleted: includeDeleted,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"as_of": time.Now().UTC(),
	})
}

func (a *API) deleteIncident(w http.ResponseWriter, r *http.Request, id string) {
	op := guard.Operation[incidentIDRequest, struct{}]{
		Name:      "incident.delete",
		Authorize: a.staffOrReporter(),
		Effect: func(ctx context.Context, c guard.Caller, req incidentIDRequest) (struct{}, error) {
			return struct{}{}, a.incidents.SoftDelete(ctx, c, req.ID)
		},
		Details: func(req incidentIDRequest, _ struct{}) map[string]any {
			return map[string]any{"incident_id": req.ID}
		},
	}
	if _, err := guard.Run(r.Context(), a.runner, op, incidentIDRequest{ID: id}); err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

func (a *API) advanceIncidentStage(w http.ResponseWriter, r *http.Request, id string) {
	var req stageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	type stageOpRequest struct {
		incidentIDRequest
		stageRequest
	}
	op := guard.Operation[stageOpRequest, incident.Incident]{
		Name:      "incident.stage.advance",
		Validate:  func(req stageOpRequest) error { return validate.Struct(req.stageRequest) },
		Authorize: guard.RoleAtLeast[stageOpRequest](incident.StaffRole),
		Effect: func(ctx context.Context, c guard.Caller, req stageOpRequest) (incident.Incident, error) {
			return a.incidents.AdvanceStage(ctx, c, incident.StageInput{
				ID:    req.ID,
				Stage: incident.Status(req.Stage),
				Note:  req.Note,
			})
		},
		Details: func(req stageOpRequest, resp incident.Incident) map[string]any {
			return map[string]any{"incident_id": resp.ID, "stage": req.Stage}
		},
	}
	inc, err := guard.Run(r.Context(), a.runner, op, stageOpRequest{incidentIDRequest{ID: id}, req})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (a *API) incidentPDF(w http.ResponseWriter, r *http.Request, id string) {
	op := guard.Operation[incidentIDRequest, report.Export]{
		Name:      "incident.export.pdf",
		Authorize: a.staffOrReporter(),
		Effect: func(ctx context.Context, c guard.Caller, req incidentIDRequest) (report.Export, error) {
			inc, err := a.incidents.Get(ctx, c, req.ID)
			if err != nil {
				return report.Export{}, err
			}
			return a.reports.IncidentPDF(ctx, inc)
		},
		Details: func(req incidentIDRequest, resp report.Export) map[string]any {
			return map[string]any{"incident_id": req.ID, "artifact": resp.Ref.Key}
		},
	}
	exp, err := guard.Run(r.Context(), a.runner, op, incidentIDRequest{ID: id})
	if err != nil {
		handleGuardError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentTypePDF)
	w.Header().Set("Content-Disposition", `attachment; filename="incident-`+id+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

func (a *API) exportIncidentsCSV(w http.ResponseWriter, r *http.Request) {
	op := guard.Operation[struct{}, report.Export]{
		Name:      "incident.export.csv",
		Authorize: guard.RoleAtLeast[struct{}](incident.StaffRole),
		Effect: func(ctx context.Context, c guard.Caller, _ struct{}) (report.Export, error) {
			const pageSize = 1000
			var all []incident.Incident
			for offset := 0; ; offset += pageSize {
				items, err := a.incidents.List(ctx, c, incident.ListInput{
					IncludeDeleted: true,
					Limit:          pageSize,
					Offset:         offset,
				})
				if err != nil {
					return report.Export{}, err
				}
				all = append(all, items...)
				if len(items) < pageSize {
					break
				}
			}
			return a.reports.IncidentsCSV(ctx, all)
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
	w.Header().Set("Content-Disposition", `attachment; filename="incidents.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}
