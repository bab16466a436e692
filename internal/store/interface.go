package store

import (
	"context"
	"errors"

	"diagnoseme/internal/store/model"
)

var ErrNotFound = errors.New("record not found")

// ListQuery filters ListDiagnoses. Zero values mean no filter.
type ListQuery struct {
	Limit    int
	Offset   int
	Status   string
	Severity string
}

// DiagnosisRepository persists diagnosis records.
type DiagnosisRepository interface {
	SaveDiagnosis(ctx context.Context, rec *model.DiagnosisModel) error
	ListDiagnoses(ctx context.Context, q ListQuery) ([]model.DiagnosisModel, error)
	// GetDiagnosis returns ErrNotFound for unknown trace ids.
	GetDiagnosis(ctx context.Context, traceID string) (*model.DiagnosisModel, error)
	// SeverityCounts groups successful diagnoses by severity.
	SeverityCounts(ctx context.Context) (map[string]int64, error)
}

// ContactRepository persists contact form submissions.
type ContactRepository interface {
	SaveContact(ctx context.Context, msg *model.ContactModel) error
	ListContacts(ctx context.Context, limit int) ([]model.ContactModel, error)
}

// Store is the entry point for database access.
type Store interface {
	DiagnosisRepository
	ContactRepository
	// Enabled is false for stores that discard writes.
	Enabled() bool
	Close() error
}

// Noop discards writes; used when persistence is disabled.
type Noop struct{}

func (Noop) SaveDiagnosis(context.Context, *model.DiagnosisModel) error { return nil }

func (Noop) ListDiagnoses(context.Context, ListQuery) ([]model.DiagnosisModel, error) {
	return nil, nil
}

func (Noop) GetDiagnosis(context.Context, string) (*model.DiagnosisModel, error) {
	return nil, ErrNotFound
}

func (Noop) SeverityCounts(context.Context) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (Noop) SaveContact(context.Context, *model.ContactModel) error { return nil }

func (Noop) ListContacts(context.Context, int) ([]model.ContactModel, error) { return nil, nil }

func (Noop) Enabled() bool { return false }

func (Noop) Close() error { return nil }

var _ Store = Noop{}
