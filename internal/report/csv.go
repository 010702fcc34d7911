package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"safetrack.org/internal/account"
	"safetrack.org/internal/incident"
)

// WriteUsersCSV exports the user directory. Password hashes and token
// versions never appear in exports.
func WriteUsersCSV(w io.Writer, users []account.User) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "email", "display_name", "role", "status", "last_login_at", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, u := range users {
		lastLogin := ""
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Format(time.RFC3339)
		}
		row := []string{
			u.ID,
			u.Email,
			u.DisplayName,
			string(u.Role),
			string(u.Status),
			lastLogin,
			u.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIncidentsCSV exports incident records, one row per incident with the
// history collapsed to its entry count.
func WriteIncidentsCSV(w io.Writer, incidents []incident.Incident) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "title", "reported_by", "severity", "category", "priority", "status", "occurred_at", "created_at", "deleted", "stage_count"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, inc := range incidents {
		row := []string{
			inc.ID,
			inc.Title,
			inc.ReportedBy,
			string(inc.Severity),
			string(inc.Category),
			string(inc.Priority),
			string(inc.Status),
			inc.OccurredAt.Format(time.RFC3339),
			inc.CreatedAt.Format(time.RFC3339),
			strconv.FormatBool(inc.Deleted),
			strconv.Itoa(len(inc.History)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
