package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/attributa/internal/model"
)

// ErrReportNotFound is returned when no report exists for a document id
var ErrReportNotFound = errors.New("report not found")

// ReportRepository stores report snapshots keyed by document id
type ReportRepository interface {
	Save(ctx context.Context, report *model.Report) error
	Get(ctx context.Context, documentID string) (*model.Report, error)
	List(ctx context.Context, limit int) ([]ReportSummary, error)
	Delete(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
}

// ReportSummary is a listing row
type ReportSummary struct {
	DocumentID string            `json:"document_id"`
	CreatedAt  time.Time         `json:"created_at"`
	State      model.ReportState `json:"state"`
	Summary    string            `json:"summary"`
	Segments   int               `json:"segments"`
	MeanScore  float64           `json:"mean_score"`
}

func summarize(r *model.Report) ReportSummary {
	return ReportSummary{
		DocumentID: r.DocumentID,
		CreatedAt:  r.CreatedAt,
		State:      r.State,
		Summary:    r.Summary,
		Segments:   len(r.Segments),
		MeanScore:  r.MeanScore(),
	}
}

// MemoryReports keeps reports in process memory and drops them after a
// TTL, which discards abandoned runs without explicit cleanup
type MemoryReports struct {
	cache *gocache.Cache
}

// NewMemoryReports creates an in-memory repository
func NewMemoryReports(ttl time.Duration) *MemoryReports {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryReports{cache: gocache.New(ttl, time.Minute)}
}

// Save stores a snapshot; later mutation of report does not affect it
func (m *MemoryReports) Save(_ context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	m.cache.SetDefault(report.DocumentID, data)
	return nil
}

// Get returns a copy of the latest snapshot
func (m *MemoryReports) Get(_ context.Context, documentID string) (*model.Report, error) {
	val, ok := m.cache.Get(documentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, documentID)
	}
	return decodeReport(val.([]byte))
}

// List returns the newest reports first
func (m *MemoryReports) List(_ context.Context, limit int) ([]ReportSummary, error) {
	var out []ReportSummary
	for _, item := range m.cache.Items() {
		r, err := decodeReport(item.Object.([]byte))
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(r))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a report
func (m *MemoryReports) Delete(_ context.Context, documentID string) error {
	m.cache.Delete(documentID)
	return nil
}

// Clear removes every report
func (m *MemoryReports) Clear(_ context.Context) error {
	m.cache.Flush()
	return nil
}

func decodeReport(data []byte) (*model.Report, error) {
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
