package sync

import (
	"fmt"

	"github.com/google/uuid"
)

// DeviceID identifies one replica. Stable for the replica's lifetime.
type DeviceID string

// NewDeviceID validates and returns a device ID.
func NewDeviceID(id string) (DeviceID, error) {
	if id == "" {
		return "", newValidationError("device ID cannot be empty")
	}
	return DeviceID(id), nil
}

// GenerateDeviceID creates a fresh random device ID.
func GenerateDeviceID() DeviceID {
	return DeviceID(fmt.Sprintf("device-%s", uuid.NewString()))
}

func (d DeviceID) String() string {
	return string(d)
}

// OperationID identifies one operation uniquely across all replicas.
// It is composed of the originating device ID plus a random uniquifier
// and is never reused.
type OperationID string

// NewOperationID generates an operation ID for the given device.
func NewOperationID(deviceID DeviceID) OperationID {
	return OperationID(fmt.Sprintf("%s:%s", deviceID, uuid.NewString()))
}

func (id OperationID) String() string {
	return string(id)
}
