package sync

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// VectorClock tracks causal relationships between operations as a map from
// device ID to a logical counter. Clocks are immutable: Increment and Merge
// return new clocks and never modify their receiver. A device absent from
// the map implicitly reads as 0.
type VectorClock struct {
	counters map[DeviceID]int64
}

// NewVectorClock creates an empty vector clock.
func NewVectorClock() VectorClock {
	return VectorClock{counters: map[DeviceID]int64{}}
}

// NewVectorClockForDevice creates a clock seeded at zero for the given device,
// used at replica bootstrap.
func NewVectorClockForDevice(deviceID DeviceID) VectorClock {
	return VectorClock{counters: map[DeviceID]int64{deviceID: 0}}
}

// VectorClockFromMap builds a clock from a device→counter map, rejecting
// negative counters.
func VectorClockFromMap(m map[string]int64) (VectorClock, error) {
	counters := make(map[DeviceID]int64, len(m))
	for device, counter := range m {
		if device == "" {
			return VectorClock{}, newValidationError("vector clock contains empty device ID")
		}
		if counter < 0 {
			return VectorClock{}, newValidationError("vector clock counter for %q is negative: %d", device, counter)
		}
		counters[DeviceID(device)] = counter
	}
	return VectorClock{counters: counters}, nil
}

// Get returns the counter for a device, 0 if absent.
func (vc VectorClock) Get(deviceID DeviceID) int64 {
	return vc.counters[deviceID]
}

// Increment returns a new clock with the device's counter advanced by one.
func (vc VectorClock) Increment(deviceID DeviceID) VectorClock {
	next := vc.clone()
	next.counters[deviceID]++
	return next
}

// Merge returns a new clock holding the pairwise maximum of both clocks.
// Merge is commutative, associative, and idempotent; the result dominates
// both inputs.
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	merged := vc.clone()
	for deviceID, counter := range other.counters {
		if merged.counters[deviceID] < counter {
			merged.counters[deviceID] = counter
		}
	}
	return merged
}

// HappensBefore reports whether vc causally precedes other: every counter in
// vc is <= the corresponding counter in other, and at least one is strictly
// less.
func (vc VectorClock) HappensBefore(other VectorClock) bool {
	less := false
	for _, deviceID := range vc.domain(other) {
		a, b := vc.counters[deviceID], other.counters[deviceID]
		if a > b {
			return false
		}
		if a < b {
			less = true
		}
	}
	return less
}

// HappensAfter reports whether other causally precedes vc.
func (vc VectorClock) HappensAfter(other VectorClock) bool {
	return other.HappensBefore(vc)
}

// IsConcurrentWith reports whether neither clock causally precedes the other
// and they are not equal.
func (vc VectorClock) IsConcurrentWith(other VectorClock) bool {
	return !vc.Equals(other) && !vc.HappensBefore(other) && !vc.HappensAfter(other)
}

// Equals reports whether all counters match.
func (vc VectorClock) Equals(other VectorClock) bool {
	for _, deviceID := range vc.domain(other) {
		if vc.counters[deviceID] != other.counters[deviceID] {
			return false
		}
	}
	return true
}

// timestamp derives a scalar ordering hint from the clock: the sum of all
// counters. Used as a tiebreak when no causal order exists.
func (vc VectorClock) timestamp() int64 {
	var sum int64
	for _, counter := range vc.counters {
		sum += counter
	}
	return sum
}

// ToMap returns the clock as a device→counter map, the wire/storage shape.
func (vc VectorClock) ToMap() map[string]int64 {
	m := make(map[string]int64, len(vc.counters))
	for deviceID, counter := range vc.counters {
		m[string(deviceID)] = counter
	}
	return m
}

func (vc VectorClock) clone() VectorClock {
	counters := make(map[DeviceID]int64, len(vc.counters)+1)
	for deviceID, counter := range vc.counters {
		counters[deviceID] = counter
	}
	return VectorClock{counters: counters}
}

// domain returns the union of device IDs known to either clock, sorted for
// deterministic iteration.
func (vc VectorClock) domain(other VectorClock) []DeviceID {
	seen := make(map[DeviceID]struct{}, len(vc.counters)+len(other.counters))
	for deviceID := range vc.counters {
		seen[deviceID] = struct{}{}
	}
	for deviceID := range other.counters {
		seen[deviceID] = struct{}{}
	}
	devices := make([]DeviceID, 0, len(seen))
	for deviceID := range seen {
		devices = append(devices, deviceID)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })
	return devices
}

// String renders the clock as {device:counter, ...} in device order.
func (vc VectorClock) String() string {
	devices := make([]DeviceID, 0, len(vc.counters))
	for deviceID := range vc.counters {
		devices = append(devices, deviceID)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	parts := make([]string, 0, len(devices))
	for _, deviceID := range devices {
		parts = append(parts, fmt.Sprintf("%s:%d", deviceID, vc.counters[deviceID]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON implements json.Marshaler.
func (vc VectorClock) MarshalJSON() ([]byte, error) {
	return json.Marshal(vc.ToMap())
}

// UnmarshalJSON implements json.Unmarshaler.
func (vc *VectorClock) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to unmarshal vector clock: %w", err)
	}
	parsed, err := VectorClockFromMap(m)
	if err != nil {
		return err
	}
	*vc = parsed
	return nil
}
