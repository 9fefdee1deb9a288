package ports

import (
	"context"

	"breachtrend/domain/core"
	"breachtrend/domain/trend"
)

// ReportRepository stores completed trend reports. Fitted models are never persisted.
type ReportRepository interface {
	Save(ctx context.Context, report *trend.Report) error
	GetByID(ctx context.Context, id core.ReportID) (*trend.Report, error)
	ListRecent(ctx context.Context, limit int) ([]*trend.Report, error)
}
