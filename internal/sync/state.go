package sync

import "time"

// SyncStatus is the replica's synchronization status.
type SyncStatus string

const (
	StatusSynced          SyncStatus = "SYNCED"
	StatusSyncing         SyncStatus = "SYNCING"
	StatusConflictPending SyncStatus = "CONFLICT_PENDING"
	StatusOffline         SyncStatus = "OFFLINE"
	StatusError           SyncStatus = "ERROR"
)

// PeerState is the last known state of one remote replica.
type PeerState struct {
	DeviceID    DeviceID    `json:"deviceId"`
	VectorClock VectorClock `json:"vectorClock"`
	LastSeenAt  time.Time   `json:"lastSeenAt"`
}

// SyncState is the per-replica status state machine. Values are immutable:
// every transition returns a new state. Invariants: CONFLICT_PENDING whenever
// conflictCount > 0 (taking precedence over SYNCING), SYNCED only when both
// conflictCount and pendingOperationCount are zero.
type SyncState struct {
	LocalDeviceID         DeviceID              `json:"localDeviceId"`
	LocalVectorClock      VectorClock           `json:"localVectorClock"`
	Status                SyncStatus            `json:"status"`
	PeerStates            map[DeviceID]PeerState `json:"peerStates"`
	ConflictCount         int                   `json:"conflictCount"`
	PendingOperationCount int                   `json:"pendingOperationCount"`
	LastSyncAt            time.Time             `json:"lastSyncAt"`
	ErrorMessage          string                `json:"errorMessage,omitempty"`
}

// NewSyncState creates the bootstrap state for a replica.
func NewSyncState(deviceID DeviceID) (*SyncState, error) {
	if deviceID == "" {
		return nil, newValidationError("device ID cannot be empty")
	}
	return &SyncState{
		LocalDeviceID:    deviceID,
		LocalVectorClock: NewVectorClockForDevice(deviceID),
		Status:           StatusSynced,
		PeerStates:       map[DeviceID]PeerState{},
	}, nil
}

// BeginSync marks the replica as actively synchronizing.
func (s *SyncState) BeginSync() *SyncState {
	next := s.clone()
	next.Status = StatusSyncing
	return next.normalize()
}

// CompleteSync records a finished sync round and derives the resulting
// status from the remaining conflict and pending counts.
func (s *SyncState) CompleteSync(at time.Time) *SyncState {
	next := s.clone()
	next.LastSyncAt = at
	next.Status = StatusSynced
	return next.normalize()
}

// WithLocalClock replaces the local vector clock.
func (s *SyncState) WithLocalClock(clock VectorClock) *SyncState {
	next := s.clone()
	next.LocalVectorClock = clock
	return next
}

// WithConflictCount sets the outstanding conflict count.
func (s *SyncState) WithConflictCount(count int) *SyncState {
	next := s.clone()
	next.ConflictCount = count
	return next.normalize()
}

// WithPendingOperations sets the pending operation count.
func (s *SyncState) WithPendingOperations(count int) *SyncState {
	next := s.clone()
	next.PendingOperationCount = count
	return next.normalize()
}

// WithPeer records the latest observation of a remote replica.
func (s *SyncState) WithPeer(deviceID DeviceID, clock VectorClock, seenAt time.Time) *SyncState {
	next := s.clone()
	next.PeerStates[deviceID] = PeerState{
		DeviceID:    deviceID,
		VectorClock: clock,
		LastSeenAt:  seenAt,
	}
	return next
}

// MarkOffline transitions to OFFLINE, reachable from any state.
func (s *SyncState) MarkOffline() *SyncState {
	next := s.clone()
	next.Status = StatusOffline
	return next
}

// MarkError transitions to ERROR with a message, reachable from any state.
func (s *SyncState) MarkError(message string) *SyncState {
	next := s.clone()
	next.Status = StatusError
	next.ErrorMessage = message
	return next
}

// Recover leaves OFFLINE/ERROR and derives the proper status from the
// conflict and pending counts.
func (s *SyncState) Recover() *SyncState {
	next := s.clone()
	next.ErrorMessage = ""
	next.Status = StatusSynced
	return next.normalize()
}

// normalize enforces the status invariants: outstanding conflicts force
// CONFLICT_PENDING, pending operations keep the replica SYNCING, and SYNCED
// requires both counts at zero. OFFLINE and ERROR are left untouched.
func (s *SyncState) normalize() *SyncState {
	if s.Status == StatusOffline || s.Status == StatusError {
		return s
	}
	if s.ConflictCount > 0 {
		s.Status = StatusConflictPending
		return s
	}
	if s.PendingOperationCount > 0 {
		if s.Status == StatusSynced {
			s.Status = StatusSyncing
		}
		return s
	}
	if s.Status != StatusSyncing {
		s.Status = StatusSynced
	}
	return s
}

func (s *SyncState) clone() *SyncState {
	peers := make(map[DeviceID]PeerState, len(s.PeerStates))
	for deviceID, peer := range s.PeerStates {
		peers[deviceID] = peer
	}
	next := *s
	next.PeerStates = peers
	return &next
}
