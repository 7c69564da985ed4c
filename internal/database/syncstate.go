package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/proof-collab/proof-sync/internal/sync"
)

// SaveSyncState replaces the persisted sync state snapshot.
func (s *Store) SaveSyncState(state *sync.SyncState) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sync_state (id, state, updated_at) VALUES (1, ?, unixepoch())
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(encoded))
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// LoadSyncState returns the persisted sync state snapshot, or nil when no
// snapshot has been saved yet.
func (s *Store) LoadSyncState() (*sync.SyncState, error) {
	var encoded string
	err := s.db.QueryRow(`SELECT state FROM sync_state WHERE id = 1`).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	var state sync.SyncState
	if err := json.Unmarshal([]byte(encoded), &state); err != nil {
		return nil, fmt.Errorf("failed to decode sync state: %w", err)
	}
	return &state, nil
}
