package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates an independent deterministic stream for one unit of work (e.g. one
	// bootstrap iteration), so results do not depend on which worker runs it
	Stream(ctx context.Context, name string, index int, baseSeed int64) (*rand.Rand, error)
}
