package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"diagnoseme/internal/store"
	storemodel "diagnoseme/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// GormStore implements store.Store using Gorm on a pure-Go SQLite driver.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore opens (or creates) the database file at path and migrates it.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&storemodel.DiagnosisModel{}, &storemodel.ContactModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Enabled() bool { return true }

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*GormStore)(nil)

// SaveDiagnosis inserts the record, or updates it when the trace id exists.
func (s *GormStore) SaveDiagnosis(ctx context.Context, rec *storemodel.DiagnosisModel) error {
	if rec == nil {
		return fmt.Errorf("diagnosis record is nil")
	}
	if strings.TrimSpace(rec.TraceID) == "" {
		return fmt.Errorf("diagnosis record has no trace id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAtUnix = rec.CreatedAt.UnixMilli()
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trace_id"}},
			UpdateAll: true,
		}).
		Create(rec).Error
}

func (s *GormStore) ListDiagnoses(ctx context.Context, q store.ListQuery) ([]storemodel.DiagnosisModel, error) {
	tx := s.db.WithContext(ctx).Model(&storemodel.DiagnosisModel{})
	if status := strings.TrimSpace(q.Status); status != "" {
		tx = tx.Where("status = ?", status)
	}
	if sev := strings.TrimSpace(q.Severity); sev != "" {
		tx = tx.Where("severity = ?", sev)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var rows []storemodel.DiagnosisModel
	if err := tx.Order("id DESC").Limit(clampLimit(q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CreatedAt = millisToTime(rows[i].CreatedAtUnix)
	}
	return rows, nil
}

func (s *GormStore) GetDiagnosis(ctx context.Context, traceID string) (*storemodel.DiagnosisModel, error) {
	var row storemodel.DiagnosisModel
	err := s.db.WithContext(ctx).Where("trace_id = ?", strings.TrimSpace(traceID)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	row.CreatedAt = millisToTime(row.CreatedAtUnix)
	return &row, nil
}

func (s *GormStore) SeverityCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Severity string
		Total    int64
	}
	err := s.db.WithContext(ctx).
		Model(&storemodel.DiagnosisModel{}).
		Select("severity, COUNT(*) AS total").
		Where("status = ?", storemodel.DiagnosisStatusOK).
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Severity] = r.Total
	}
	return out, nil
}

func (s *GormStore) SaveContact(ctx context.Context, msg *storemodel.ContactModel) error {
	if msg == nil {
		return fmt.Errorf("contact message is nil")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	msg.CreatedAtUnix = msg.CreatedAt.UnixMilli()
	return s.db.WithContext(ctx).Save(msg).Error
}

func (s *GormStore) ListContacts(ctx context.Context, limit int) ([]storemodel.ContactModel, error) {
	var rows []storemodel.ContactModel
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(clampLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].CreatedAt = millisToTime(rows[i].CreatedAtUnix)
	}
	return rows, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
