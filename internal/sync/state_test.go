package sync_test

import (
	"testing"
	"time"

	"github.com/proof-collab/proof-sync/internal/sync"
)

func TestNewSyncState(t *testing.T) {
	state, err := sync.NewSyncState("device-1")
	if err != nil {
		t.Fatalf("NewSyncState failed: %v", err)
	}
	if state.Status != sync.StatusSynced {
		t.Errorf("Expected SYNCED bootstrap state, got %s", state.Status)
	}
	if state.LocalVectorClock.Get("device-1") != 0 {
		t.Errorf("Expected seed counter 0, got %d", state.LocalVectorClock.Get("device-1"))
	}

	if _, err := sync.NewSyncState(""); err == nil {
		t.Error("Expected error for empty device ID")
	}
}

func TestSyncStateTransitionsAreImmutable(t *testing.T) {
	state, err := sync.NewSyncState("device-1")
	if err != nil {
		t.Fatalf("NewSyncState failed: %v", err)
	}

	next := state.BeginSync()
	if state.Status != sync.StatusSynced {
		t.Errorf("BeginSync mutated the original state: %s", state.Status)
	}
	if next.Status != sync.StatusSyncing {
		t.Errorf("Expected SYNCING, got %s", next.Status)
	}
}

func TestConflictsForceConflictPending(t *testing.T) {
	state, _ := sync.NewSyncState("device-1")

	pending := state.BeginSync().WithConflictCount(2)
	if pending.Status != sync.StatusConflictPending {
		t.Errorf("Conflicts must force CONFLICT_PENDING, got %s", pending.Status)
	}

	// Completing a sync round with conflicts outstanding keeps the status.
	completed := pending.CompleteSync(time.Now())
	if completed.Status != sync.StatusConflictPending {
		t.Errorf("CompleteSync must not mask conflicts, got %s", completed.Status)
	}

	resolved := completed.WithConflictCount(0)
	if resolved.Status != sync.StatusSynced {
		t.Errorf("Expected SYNCED after conflicts clear, got %s", resolved.Status)
	}
}

func TestPendingOperationsKeepSyncing(t *testing.T) {
	state, _ := sync.NewSyncState("device-1")

	syncing := state.BeginSync().WithPendingOperations(3)
	if syncing.Status != sync.StatusSyncing {
		t.Errorf("Pending operations must keep SYNCING, got %s", syncing.Status)
	}

	done := syncing.WithPendingOperations(0).CompleteSync(time.Now())
	if done.Status != sync.StatusSynced {
		t.Errorf("Expected SYNCED, got %s", done.Status)
	}
	if done.LastSyncAt.IsZero() {
		t.Error("CompleteSync must record the sync time")
	}
}

func TestOfflineAndErrorAreSticky(t *testing.T) {
	state, _ := sync.NewSyncState("device-1")

	offline := state.MarkOffline().WithConflictCount(5)
	if offline.Status != sync.StatusOffline {
		t.Errorf("OFFLINE must persist through count changes, got %s", offline.Status)
	}

	failed := state.MarkError("disk full").WithPendingOperations(1)
	if failed.Status != sync.StatusError {
		t.Errorf("ERROR must persist through count changes, got %s", failed.Status)
	}
	if failed.ErrorMessage != "disk full" {
		t.Errorf("Expected error message, got %q", failed.ErrorMessage)
	}

	recovered := failed.WithPendingOperations(0).Recover()
	if recovered.Status != sync.StatusSynced {
		t.Errorf("Expected SYNCED after recovery, got %s", recovered.Status)
	}
	if recovered.ErrorMessage != "" {
		t.Errorf("Recover must clear the error message, got %q", recovered.ErrorMessage)
	}
}

func TestRecoverWithConflictsGoesToConflictPending(t *testing.T) {
	state, _ := sync.NewSyncState("device-1")

	stuck := state.WithConflictCount(1).MarkOffline()
	recovered := stuck.Recover()
	if recovered.Status != sync.StatusConflictPending {
		t.Errorf("Recovery with conflicts must land on CONFLICT_PENDING, got %s", recovered.Status)
	}
}

func TestWithPeerRecordsObservation(t *testing.T) {
	state, _ := sync.NewSyncState("device-1")

	seen := time.Now()
	peerClock := clock(t, map[string]int64{"device-2": 4})
	next := state.WithPeer("device-2", peerClock, seen)

	peer, ok := next.PeerStates["device-2"]
	if !ok {
		t.Fatal("Peer observation not recorded")
	}
	if !peer.VectorClock.Equals(peerClock) {
		t.Errorf("Peer clock mismatch: %s", peer.VectorClock)
	}
	if _, ok := state.PeerStates["device-2"]; ok {
		t.Error("WithPeer mutated the original state")
	}
}
