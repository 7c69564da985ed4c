package database_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/proof-collab/proof-sync/internal/compression"
	"github.com/proof-collab/proof-sync/internal/database"
	"github.com/proof-collab/proof-sync/internal/sync"
)

func newTestStore(t *testing.T, threshold int) *database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	compressor, err := compression.NewZstdCompressor(3)
	if err != nil {
		t.Fatalf("NewZstdCompressor failed: %v", err)
	}
	return database.NewStore(db, compressor, threshold)
}

func mkOp(t *testing.T, id, device string, opType sync.OperationType, path string, payload sync.OperationPayload, counters map[string]int64) *sync.Operation {
	t.Helper()
	clock, err := sync.VectorClockFromMap(counters)
	if err != nil {
		t.Fatalf("failed to build clock: %v", err)
	}
	op, err := sync.NewOperation(sync.OperationID(id), sync.DeviceID(device), opType, path, payload, clock, nil)
	if err != nil {
		t.Fatalf("failed to build operation: %v", err)
	}
	return op
}

func TestAppendAndGetOperation(t *testing.T) {
	store := newTestStore(t, 1<<20)

	original := mkOp(t, "device-1:op-1", "device-1", sync.OpCreateStatement, "s1",
		sync.OperationPayload{"content": "All men are mortal"},
		map[string]int64{"device-1": 1})
	if err := store.AppendOperation(original); err != nil {
		t.Fatalf("AppendOperation failed: %v", err)
	}

	loaded, err := store.GetOperation(original.ID)
	if err != nil {
		t.Fatalf("GetOperation failed: %v", err)
	}
	if loaded.ID != original.ID || loaded.DeviceID != original.DeviceID ||
		loaded.Type != original.Type || loaded.TargetPath != original.TargetPath {
		t.Errorf("Loaded operation differs: %+v", loaded)
	}
	if loaded.Payload["content"] != "All men are mortal" {
		t.Errorf("Payload mismatch: %v", loaded.Payload)
	}
	if !loaded.VectorClock.Equals(original.VectorClock) {
		t.Errorf("Clock mismatch: %s vs %s", loaded.VectorClock, original.VectorClock)
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	store := newTestStore(t, 1<<20)

	op := mkOp(t, "device-1:op-1", "device-1", sync.OpCreateStatement, "s1",
		sync.OperationPayload{"content": "x"}, map[string]int64{"device-1": 1})
	if err := store.AppendOperation(op); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := store.AppendOperation(op); err != nil {
		t.Fatalf("replayed append failed: %v", err)
	}

	count, err := store.OperationCount()
	if err != nil {
		t.Fatalf("OperationCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 logged operation, got %d", count)
	}
}

func TestLargePayloadRoundTripsThroughCompression(t *testing.T) {
	// Threshold of 64 bytes forces the compression path.
	store := newTestStore(t, 64)

	content := strings.Repeat("a very repetitive proof statement. ", 200)
	op := mkOp(t, "device-1:op-1", "device-1", sync.OpCreateStatement, "s1",
		sync.OperationPayload{"content": content}, map[string]int64{"device-1": 1})
	if err := store.AppendOperation(op); err != nil {
		t.Fatalf("AppendOperation failed: %v", err)
	}

	loaded, err := store.GetOperation(op.ID)
	if err != nil {
		t.Fatalf("GetOperation failed: %v", err)
	}
	if loaded.Payload["content"] != content {
		t.Error("Compressed payload did not round trip")
	}
}

func TestOperationsByPath(t *testing.T) {
	store := newTestStore(t, 1<<20)

	for i, path := range []string{"s1", "s1", "s2"} {
		op := mkOp(t, fmt.Sprintf("device-1:op-%d", i), "device-1",
			sync.OpCreateStatement, path,
			sync.OperationPayload{"content": "x"}, map[string]int64{"device-1": int64(i + 1)})
		if err := store.AppendOperation(op); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	ops, err := store.OperationsByPath("s1")
	if err != nil {
		t.Fatalf("OperationsByPath failed: %v", err)
	}
	if len(ops) != 2 {
		t.Errorf("Expected 2 operations on s1, got %d", len(ops))
	}
}

func TestAcknowledgeAndCompact(t *testing.T) {
	store := newTestStore(t, 1<<20)

	var ids []sync.OperationID
	for i := 0; i < 5; i++ {
		op := mkOp(t, fmt.Sprintf("device-1:op-%d", i), "device-1",
			sync.OpCreateStatement, "s1",
			sync.OperationPayload{"content": "x"}, map[string]int64{"device-1": int64(i + 1)})
		if err := store.AppendOperation(op); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		ids = append(ids, op.ID)
	}

	unacked, err := store.UnacknowledgedOperations()
	if err != nil {
		t.Fatalf("UnacknowledgedOperations failed: %v", err)
	}
	if len(unacked) != 5 {
		t.Errorf("Expected 5 unacknowledged, got %d", len(unacked))
	}

	for _, id := range ids[:3] {
		if err := store.MarkOperationAcknowledged(id); err != nil {
			t.Fatalf("acknowledge failed: %v", err)
		}
	}
	if err := store.MarkOperationAcknowledged("device-9:missing"); err == nil {
		t.Error("Expected error acknowledging a missing operation")
	}

	removed, err := store.CompactLog(2)
	if err != nil {
		t.Fatalf("CompactLog failed: %v", err)
	}
	if removed == 0 {
		t.Error("Expected compaction to remove acknowledged rows")
	}

	count, err := store.OperationCount()
	if err != nil {
		t.Fatalf("OperationCount failed: %v", err)
	}
	if count >= 5 {
		t.Errorf("Compaction did not shrink the log: %d rows", count)
	}
}

func TestSyncStateRoundTrip(t *testing.T) {
	store := newTestStore(t, 1<<20)

	// No snapshot saved yet.
	state, err := store.LoadSyncState()
	if err != nil {
		t.Fatalf("LoadSyncState failed: %v", err)
	}
	if state != nil {
		t.Fatal("Expected nil before any snapshot is saved")
	}

	original, err := sync.NewSyncState("device-1")
	if err != nil {
		t.Fatalf("NewSyncState failed: %v", err)
	}
	original = original.WithConflictCount(2)

	if err := store.SaveSyncState(original); err != nil {
		t.Fatalf("SaveSyncState failed: %v", err)
	}

	loaded, err := store.LoadSyncState()
	if err != nil {
		t.Fatalf("LoadSyncState failed: %v", err)
	}
	if loaded.LocalDeviceID != "device-1" {
		t.Errorf("Device ID mismatch: %s", loaded.LocalDeviceID)
	}
	if loaded.Status != sync.StatusConflictPending || loaded.ConflictCount != 2 {
		t.Errorf("State mismatch: %+v", loaded)
	}

	// Saving again replaces the snapshot.
	if err := store.SaveSyncState(original.WithConflictCount(0)); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	loaded, err = store.LoadSyncState()
	if err != nil {
		t.Fatalf("LoadSyncState failed: %v", err)
	}
	if loaded.ConflictCount != 0 {
		t.Errorf("Snapshot not replaced: %+v", loaded)
	}
}

func TestReplicaRegistry(t *testing.T) {
	store := newTestStore(t, 1<<20)

	clock, err := sync.VectorClockFromMap(map[string]int64{"device-2": 4})
	if err != nil {
		t.Fatalf("failed to build clock: %v", err)
	}
	seen := time.Now().Truncate(time.Millisecond)

	if err := store.UpsertReplica("device-2", clock, seen); err != nil {
		t.Fatalf("UpsertReplica failed: %v", err)
	}

	later, err := sync.VectorClockFromMap(map[string]int64{"device-2": 9})
	if err != nil {
		t.Fatalf("failed to build clock: %v", err)
	}
	if err := store.UpsertReplica("device-2", later, seen.Add(time.Minute)); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	replicas, err := store.ListReplicas()
	if err != nil {
		t.Fatalf("ListReplicas failed: %v", err)
	}
	if len(replicas) != 1 {
		t.Fatalf("Expected 1 replica, got %d", len(replicas))
	}
	if !replicas[0].VectorClock.Equals(later) {
		t.Errorf("Replica clock not updated: %s", replicas[0].VectorClock)
	}
}
