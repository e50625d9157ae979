// Package journal keeps a device-local record of every alert lifecycle so
// that no alert is silently dropped: suppression, abandonment and dropped
// evidence all leave a row even when the backend was never reached.
package journal

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"safeband-device/internal/models"
)

// EvidenceOutcome 证据处理结果
const (
	EvidenceUploaded = "uploaded"
	EvidenceDropped  = "dropped"
)

// Journal 本地报警日志（sqlite）
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the journal database at path.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	dsn := path
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:safeband.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB, logger *zap.Logger) *Journal {
	return &Journal{db: db, logger: logger}
}

// Init creates the journal tables.
func (j *Journal) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			local_id TEXT PRIMARY KEY,
			remote_id INTEGER,
			state TEXT NOT NULL,
			trigger_source TEXT NOT NULL,
			confidence REAL NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			closed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_state ON alerts(state)`,
		`CREATE TABLE IF NOT EXISTS evidence_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			local_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			file_name TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			ts TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_local_id ON evidence_log(local_id)`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordCreated inserts the row for a new alert.
func (j *Journal) RecordCreated(ctx context.Context, rec *models.AlertRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO alerts (local_id, state, trigger_source, confidence, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.LocalID,
		string(rec.State),
		string(rec.Source),
		rec.Confidence,
		rec.AttemptCount,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// RecordStateChange updates state, attempts and remote id; terminal states
// also set closed_at.
func (j *Journal) RecordStateChange(ctx context.Context, rec *models.AlertRecord) error {
	var closedAt *string
	if rec.State.Terminal() {
		ts := time.Now().UTC().Format(time.RFC3339)
		closedAt = &ts
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE alerts SET state = ?, remote_id = ?, attempts = ?, closed_at = COALESCE(?, closed_at)
		WHERE local_id = ?`,
		string(rec.State),
		rec.RemoteID,
		rec.AttemptCount,
		closedAt,
		rec.LocalID,
	)
	return err
}

// RecordEvidence logs the final outcome of one evidence item.
func (j *Journal) RecordEvidence(ctx context.Context, localID string, bundle *models.EvidenceBundle, outcome string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO evidence_log (local_id, kind, file_name, bytes, outcome, ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		localID,
		string(bundle.Kind),
		bundle.FileName,
		bundle.ByteLen,
		outcome,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
