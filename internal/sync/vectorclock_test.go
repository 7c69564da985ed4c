package sync_test

import (
	"encoding/json"
	"testing"

	"github.com/proof-collab/proof-sync/internal/sync"
)

func TestVectorClockIncrement(t *testing.T) {
	vc := sync.NewVectorClock()
	next := vc.Increment("device-1")

	if next.Get("device-1") != 1 {
		t.Errorf("Expected 1, got %d", next.Get("device-1"))
	}
	if vc.Get("device-1") != 0 {
		t.Errorf("Increment mutated the original clock: got %d", vc.Get("device-1"))
	}

	next = next.Increment("device-1")
	if next.Get("device-1") != 2 {
		t.Errorf("Expected 2, got %d", next.Get("device-1"))
	}
}

func TestVectorClockAbsentDeviceReadsZero(t *testing.T) {
	vc := sync.NewVectorClock()
	if vc.Get("unknown") != 0 {
		t.Errorf("Expected 0 for absent device, got %d", vc.Get("unknown"))
	}
}

func TestVectorClockFromMapRejectsNegative(t *testing.T) {
	if _, err := sync.VectorClockFromMap(map[string]int64{"device-1": -1}); err == nil {
		t.Error("Expected error for negative counter")
	}
	if _, err := sync.VectorClockFromMap(map[string]int64{"": 3}); err == nil {
		t.Error("Expected error for empty device ID")
	}
}

func TestVectorClockMerge(t *testing.T) {
	a := clock(t, map[string]int64{"device-1": 5, "device-2": 3})
	b := clock(t, map[string]int64{"device-1": 4, "device-2": 6})

	merged := a.Merge(b)
	if merged.Get("device-1") != 5 || merged.Get("device-2") != 6 {
		t.Errorf("Expected {device-1:5, device-2:6}, got %s", merged)
	}

	// The result dominates both inputs.
	if !a.HappensBefore(merged) || !b.HappensBefore(merged) {
		t.Error("Merged clock must dominate both inputs")
	}
	// Merge never modifies its operands.
	if a.Get("device-2") != 3 || b.Get("device-1") != 4 {
		t.Error("Merge mutated an input clock")
	}
}

func TestVectorClockMergeLaws(t *testing.T) {
	a := clock(t, map[string]int64{"device-1": 2})
	b := clock(t, map[string]int64{"device-2": 7})
	c := clock(t, map[string]int64{"device-1": 1, "device-3": 4})

	if !a.Merge(b).Equals(b.Merge(a)) {
		t.Error("Merge is not commutative")
	}
	if !a.Merge(b).Merge(c).Equals(a.Merge(b.Merge(c))) {
		t.Error("Merge is not associative")
	}
	if !a.Merge(a).Equals(a) {
		t.Error("Merge is not idempotent")
	}
}

func TestVectorClockRelationsAreMutuallyExclusive(t *testing.T) {
	cases := []struct {
		name string
		a, b map[string]int64
	}{
		{"equal", map[string]int64{"device-1": 2}, map[string]int64{"device-1": 2}},
		{"before", map[string]int64{"device-1": 1}, map[string]int64{"device-1": 2}},
		{"after", map[string]int64{"device-1": 3}, map[string]int64{"device-1": 2}},
		{"concurrent", map[string]int64{"device-1": 5, "device-2": 3}, map[string]int64{"device-1": 4, "device-2": 6}},
		{"disjoint devices", map[string]int64{"device-1": 1}, map[string]int64{"device-2": 1}},
	}
	for _, tc := range cases {
		a := clock(t, tc.a)
		b := clock(t, tc.b)

		holds := 0
		if a.Equals(b) {
			holds++
		}
		if a.HappensBefore(b) {
			holds++
		}
		if a.HappensAfter(b) {
			holds++
		}
		if a.IsConcurrentWith(b) {
			holds++
		}
		if holds != 1 {
			t.Errorf("%s: expected exactly one relation to hold, got %d", tc.name, holds)
		}
	}
}

func TestVectorClockConcurrentExample(t *testing.T) {
	a := clock(t, map[string]int64{"device-1": 5, "device-2": 3})
	b := clock(t, map[string]int64{"device-1": 4, "device-2": 6})

	if !a.IsConcurrentWith(b) {
		t.Error("Expected clocks to be concurrent")
	}
	if !b.IsConcurrentWith(a) {
		t.Error("Concurrency must be symmetric")
	}
}

func TestVectorClockJSONRoundTrip(t *testing.T) {
	original := clock(t, map[string]int64{"device-1": 5, "device-2": 3})

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded sync.VectorClock
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !decoded.Equals(original) {
		t.Errorf("Round trip changed the clock: %s != %s", decoded, original)
	}
}
