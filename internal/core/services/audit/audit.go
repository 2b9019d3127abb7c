// Package audit records scene mutations in an in-process, never-persisted
// sqlite database (SUPPLEMENTED FEATURES in SPEC_FULL.md: an operator
// activity log queryable over REST). Grounded on the teacher's gorm+sqlite
// stack (go.mod: gorm.io/gorm, gorm.io/driver/sqlite) and its
// OpenTelemetry gorm plugin.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/netsim/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// entryRow is the gorm model backing ports.AuditEntry.
type entryRow struct {
	ID        uint  `gorm:"primarykey"`
	Action    string
	Detail    string
	Timestamp int64
}

func (entryRow) TableName() string { return "audit_entries" }

// Log implements ports.AuditLog against an in-memory sqlite database: the
// DSN "file::memory:?cache=shared" keeps one shared database for the
// process's lifetime, never touching disk, which is how the Non-goal
// against durable persistence stays honored while still exercising the
// teacher's real storage stack.
type Log struct {
	db *gorm.DB
}

// New opens the in-memory database and migrates the audit table.
func New() (*Log, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("audit: install otel plugin: %w", err)
	}
	if err := db.AutoMigrate(&entryRow{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Log{db: db}, nil
}

var _ ports.AuditLog = (*Log)(nil)

// Record appends one audit entry.
func (l *Log) Record(ctx context.Context, action, detail string) error {
	row := entryRow{Action: action, Detail: detail, Timestamp: time.Now().Unix()}
	return l.db.WithContext(ctx).Create(&row).Error
}

// Recent returns the most recent limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]ports.AuditEntry, error) {
	var rows []entryRow
	if err := l.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.AuditEntry, len(rows))
	for i, r := range rows {
		out[i] = ports.AuditEntry{Id: r.ID, Action: r.Action, Detail: r.Detail, Timestamp: r.Timestamp}
	}
	return out, nil
}
