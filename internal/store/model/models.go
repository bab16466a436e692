package model

import (
	"time"

	"gorm.io/datatypes"
)

type DiagnosisStatus string

const (
	DiagnosisStatusOK         DiagnosisStatus = "ok"
	DiagnosisStatusParseError DiagnosisStatus = "parse_error"
	DiagnosisStatusNoJSON     DiagnosisStatus = "no_json"
	DiagnosisStatusModelError DiagnosisStatus = "model_error"
)

// DiagnosisModel is one analysed upload. The image itself is never stored,
// only its size and mime type.
type DiagnosisModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	TraceID       string          `gorm:"column:trace_id;uniqueIndex"`
	ProviderID    string          `gorm:"column:provider_id"`
	Prompt        string          `gorm:"column:prompt"`
	Status        DiagnosisStatus `gorm:"column:status;index"`
	Condition     string          `gorm:"column:condition"`
	Confidence    *float64        `gorm:"column:confidence"`
	Severity      string          `gorm:"column:severity;index"`
	Payload       datatypes.JSON  `gorm:"column:payload;type:TEXT"`
	RawOutput     string          `gorm:"column:raw_output"`
	Extracted     bool            `gorm:"column:extracted"`
	SchemaIssues  datatypes.JSON  `gorm:"column:schema_issues;type:TEXT"`
	Error         string          `gorm:"column:error"`
	ImageBytes    int             `gorm:"column:image_bytes"`
	ImageMime     string          `gorm:"column:image_mime"`
	DurationMs    int64           `gorm:"column:duration_ms"`
	CreatedAtUnix int64           `gorm:"column:created_at;index"`

	CreatedAt time.Time `gorm:"-"`
}

func (DiagnosisModel) TableName() string { return "diagnoses" }

// ContactModel is a contact form submission.
type ContactModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Name          string `gorm:"column:name"`
	Email         string `gorm:"column:email;index"`
	Subject       string `gorm:"column:subject"`
	Message       string `gorm:"column:message"`
	Delivered     bool   `gorm:"column:delivered"`
	DeliveryError string `gorm:"column:delivery_error"`
	CreatedAtUnix int64  `gorm:"column:created_at;index"`

	CreatedAt time.Time `gorm:"-"`
}

func (ContactModel) TableName() string { return "contact_messages" }
