package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"breachtrend/adapters/rng"
	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	reports *InMemoryReportRepository // Shared report store
	rng     *rng.PCGAdapter
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{
		reports: NewInMemoryReportRepository(),
		rng:     rng.NewPCGAdapter(),
	}
}

// ReportRepository returns the shared in-memory report store
func (t *TestKit) ReportRepository() *InMemoryReportRepository {
	return t.reports
}

// RNGAdapter returns a deterministic RNG port
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// Records generates a study dataset with the default two-cause profile
func (t *TestKit) Records(rows int, seed int64) (*breach.RecordSet, error) {
	cfg := DefaultBreachConfig()
	cfg.Rows = rows
	cfg.Seed = seed
	return NewBreachDataGenerator(cfg).GenerateRecordSet()
}

// InMemoryReportRepository implements ports.ReportRepository without a database
type InMemoryReportRepository struct {
	reports map[core.ReportID]*trend.Report
	mu      sync.RWMutex
}

var _ ports.ReportRepository = (*InMemoryReportRepository)(nil)

func NewInMemoryReportRepository() *InMemoryReportRepository {
	return &InMemoryReportRepository{reports: make(map[core.ReportID]*trend.Report)}
}

func (s *InMemoryReportRepository) Save(ctx context.Context, report *trend.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *InMemoryReportRepository) GetByID(ctx context.Context, id core.ReportID) (*trend.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
	}
	return cloneReport(r), nil
}

func (s *InMemoryReportRepository) ListRecent(ctx context.Context, limit int) ([]*trend.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*trend.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, cloneReport(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored reports
func (s *InMemoryReportRepository) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func cloneReport(r *trend.Report) *trend.Report {
	c := *r
	c.Quantiles = append([]trend.Quantile(nil), r.Quantiles...)
	c.Rows = append([]trend.ReportRow(nil), r.Rows...)
	c.Baseline = append([]trend.ReportRow(nil), r.Baseline...)
	return &c
}
