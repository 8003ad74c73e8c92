package headervault

import (
	"testing"
)

func TestRandUint64InRange_DegenerateSpan(t *testing.T) {
	v, err := randUint64InRange(5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("expected 5, got %d", v)
	}
}

func TestRandUint64InRange_WithinBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, err := randUint64InRange(10, 20)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v < 10 || v > 20 {
			t.Fatalf("value %d out of range [10, 20]", v)
		}
	}
}

func TestShuffledIndices_IsPermutation(t *testing.T) {
	const n = 8
	order, err := shuffledIndices(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != n {
		t.Fatalf("expected %d indices, got %d", n, len(order))
	}
	seen := make(map[int]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			t.Fatalf("index %d out of range", idx)
		}
		if seen[idx] {
			t.Fatalf("duplicate index %d in shuffle", idx)
		}
		seen[idx] = true
	}
}

func TestShuffledIndices_ZeroLength(t *testing.T) {
	order, err := shuffledIndices(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 0 {
		t.Fatalf("expected empty order, got %d entries", len(order))
	}
}
