// Package rng provides deterministic random streams backed by PCG.
package rng

import (
	"context"
	"math/rand/v2"

	"breachtrend/ports"
)

// PCGAdapter implements ports.RNGPort. Streams are derived purely from their
// inputs, so the same (name, index, seed) always yields the same sequence.
type PCGAdapter struct{}

var _ ports.RNGPort = (*PCGAdapter)(nil)

// NewPCGAdapter creates a PCG-backed RNG port
func NewPCGAdapter() *PCGAdapter {
	return &PCGAdapter{}
}

// SeededStream creates a deterministic generator for a named operation
func (a *PCGAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(uint64(seed), hashString(name))), nil
}

// Stream creates the generator for one unit of work. Neighbouring indices are
// spread apart with splitmix64 so their streams do not overlap.
func (a *PCGAdapter) Stream(ctx context.Context, name string, index int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s1 := splitmix64(uint64(baseSeed) ^ splitmix64(uint64(index)+1))
	s2 := splitmix64(hashString(name) + uint64(index))
	return rand.New(rand.NewPCG(s1, s2)), nil
}

// hashString is djb2 widened to 64 bits
func hashString(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
