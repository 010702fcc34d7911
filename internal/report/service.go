package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"safetrack.org/internal/account"
	"safetrack.org/internal/blob"
	"safetrack.org/internal/incident"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeCSV = "text/csv"
)

// Export is a rendered document plus its archived reference.
type Export struct {
	Ref  blob.Ref
	Data []byte
}

// Service renders exports and archives every generated document.
type Service struct {
	blobs blob.Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the report service.
func NewService(blobs blob.Store, opts ...Option) (*Service, error) {
	if blobs == nil {
		return nil, errors.New("report: blob store is required")
	}
	s := &Service{blobs: blobs, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IncidentPDF renders one incident as a PDF document and archives it.
func (s *Service) IncidentPDF(ctx context.Context, inc incident.Incident) (Export, error) {
	var buf bytes.Buffer
	if err := WriteIncidentPDF(&buf, inc); err != nil {
		return Export{}, fmt.Errorf("report: render incident pdf: %w", err)
	}
	key := fmt.Sprintf("exports/incidents/%s/%d.pdf", inc.ID, s.now().UTC().Unix())
	return s.archive(ctx, key, ContentTypePDF, buf.Bytes())
}

// UsersCSV renders the user directory as CSV and archives it.
func (s *Service) UsersCSV(ctx context.Context, users []account.User) (Export, error) {
	var buf bytes.Buffer
	if err := WriteUsersCSV(&buf, users); err != nil {
		return Export{}, fmt.Errorf("report: render users csv: %w", err)
	}
	key := fmt.Sprintf("exports/users/%d.csv", s.now().UTC().Unix())
	return s.archive(ctx, key, ContentTypeCSV, buf.Bytes())
}

// IncidentsCSV renders an incident listing as CSV and archives it.
func (s *Service) IncidentsCSV(ctx context.Context, incidents []incident.Incident) (Export, error) {
	var buf bytes.Buffer
	if err := WriteIncidentsCSV(&buf, incidents); err != nil {
		return Export{}, fmt.Errorf("report: render incidents csv: %w", err)
	}
	key := fmt.Sprintf("exports/incidents/%d.csv", s.now().UTC().Unix())
	return s.archive(ctx, key, ContentTypeCSV, buf.Bytes())
}

func (s *Service) archive(ctx context.Context, key, contentType string, data []byte) (Export, error) {
	ref, err := s.blobs.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return Export{}, fmt.Errorf("report: archive %s: %w", key, err)
	}
	return Export{Ref: ref, Data: data}, nil
}
