package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ppiankov/attributa/internal/model"
)

// SQLiteReports archives reports in a single SQLite file. Each document
// id has one row holding the latest snapshot as JSON.
type SQLiteReports struct {
	db   *sql.DB
	path string
}

// DefaultArchivePath returns the per-user archive location
func DefaultArchivePath() (string, error) {
	return xdg.DataFile(filepath.Join("attributa", "reports.db"))
}

// OpenSQLiteReports opens or creates the archive at path
func OpenSQLiteReports(path string) (*SQLiteReports, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteReports{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return s, nil
}

func (s *SQLiteReports) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		document_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		state TEXT NOT NULL,
		summary TEXT,
		segments INTEGER NOT NULL DEFAULT 0,
		mean_score REAL NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database file path
func (s *SQLiteReports) Path() string {
	return s.path
}

// Close closes the database
func (s *SQLiteReports) Close() error {
	return s.db.Close()
}

// Save upserts the report snapshot
func (s *SQLiteReports) Save(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	sum := summarize(report)
	query := `
	INSERT INTO reports (document_id, created_at, state, summary, segments, mean_score, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(document_id) DO UPDATE SET
		state = excluded.state,
		summary = excluded.summary,
		segments = excluded.segments,
		mean_score = excluded.mean_score,
		report_json = excluded.report_json
	`
	_, err = s.db.ExecContext(ctx, query,
		sum.DocumentID,
		sum.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(sum.State),
		sum.Summary,
		sum.Segments,
		sum.MeanScore,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.DocumentID, err)
	}
	return nil
}

// Get loads the latest snapshot for a document
func (s *SQLiteReports) Get(ctx context.Context, documentID string) (*model.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT report_json FROM reports WHERE document_id = ?", documentID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", documentID, err)
	}
	return decodeReport([]byte(data))
}

// List returns the newest reports first; limit <= 0 returns all
func (s *SQLiteReports) List(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT document_id, created_at, state, summary, segments, mean_score
	FROM reports
	ORDER BY created_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ReportSummary
	for rows.Next() {
		var (
			sum     ReportSummary
			created string
			state   string
			summary sql.NullString
		)
		if err := rows.Scan(&sum.DocumentID, &created, &state, &summary, &sum.Segments, &sum.MeanScore); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		sum.State = model.ReportState(state)
		sum.Summary = summary.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes one report
func (s *SQLiteReports) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("delete report %s: %w", documentID, err)
	}
	return nil
}

// Clear removes every report
func (s *SQLiteReports) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM reports"); err != nil {
		return fmt.Errorf("clear reports: %w", err)
	}
	return nil
}
