package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/proof-collab/proof-sync/internal/sync"
)

// ReplicaRecord is one row of the replica registry.
type ReplicaRecord struct {
	DeviceID    sync.DeviceID
	VectorClock sync.VectorClock
	LastSeen    time.Time
}

// UpsertReplica records the latest vector clock observed from a replica.
func (s *Store) UpsertReplica(deviceID sync.DeviceID, clock sync.VectorClock, seenAt time.Time) error {
	encoded, err := json.Marshal(clock)
	if err != nil {
		return fmt.Errorf("failed to encode vector clock: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO replicas (device_id, vector_clock, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET vector_clock = excluded.vector_clock, last_seen = excluded.last_seen`,
		string(deviceID), string(encoded), float64(seenAt.UnixMilli())/1000.0)
	if err != nil {
		return fmt.Errorf("failed to upsert replica %s: %w", deviceID, err)
	}
	return nil
}

// ListReplicas returns all known replicas ordered by device ID.
func (s *Store) ListReplicas() ([]ReplicaRecord, error) {
	rows, err := s.db.Query(`SELECT device_id, vector_clock, last_seen FROM replicas ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query replicas: %w", err)
	}
	defer rows.Close()

	var records []ReplicaRecord
	for rows.Next() {
		var (
			deviceID  string
			clockJSON string
			lastSeen  float64
		)
		if err := rows.Scan(&deviceID, &clockJSON, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan replica row: %w", err)
		}
		var clock sync.VectorClock
		if err := json.Unmarshal([]byte(clockJSON), &clock); err != nil {
			return nil, fmt.Errorf("failed to decode vector clock for %s: %w", deviceID, err)
		}
		records = append(records, ReplicaRecord{
			DeviceID:    sync.DeviceID(deviceID),
			VectorClock: clock,
			LastSeen:    time.UnixMilli(int64(lastSeen * 1000)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replicas: %w", err)
	}
	return records, nil
}
