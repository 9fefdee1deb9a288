package ports

import (
	"context"
	"io"

	"breachtrend/domain/breach"
)

// RecordReader loads a cleaned breach record set from a tabular source
type RecordReader interface {
	ReadFile(ctx context.Context, path string) (*breach.RecordSet, error)
	Read(ctx context.Context, r io.Reader, format string) (*breach.RecordSet, error)
}
