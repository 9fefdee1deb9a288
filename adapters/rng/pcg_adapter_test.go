package rng

import (
	"context"
	"testing"
)

func TestStreamDeterministic(t *testing.T) {
	a := NewPCGAdapter()
	ctx := context.Background()

	r1, err := a.Stream(ctx, "bootstrap", 17, 42)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	r2, _ := a.Stream(ctx, "bootstrap", 17, 42)
	for i := 0; i < 100; i++ {
		if x, y := r1.Uint64(), r2.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
}

func TestStreamsDiffer(t *testing.T) {
	a := NewPCGAdapter()
	ctx := context.Background()

	cases := []struct {
		name  string
		index int
		seed  int64
	}{
		{"bootstrap", 0, 42},
		{"bootstrap", 1, 42},
		{"bootstrap", 0, 43},
		{"other", 0, 42},
	}
	seen := make(map[uint64]string)
	for _, tc := range cases {
		r, err := a.Stream(ctx, tc.name, tc.index, tc.seed)
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		first := r.Uint64()
		if prev, dup := seen[first]; dup {
			t.Errorf("%s/%d/%d produced the same first draw as %s", tc.name, tc.index, tc.seed, prev)
		}
		seen[first] = tc.name
	}
}

func TestSeededStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPCGAdapter().SeededStream(ctx, "x", 1); err == nil {
		t.Error("expected error from cancelled context")
	}
}
