package sync_test

import (
	"testing"

	"github.com/proof-collab/proof-sync/internal/sync"
)

// clock builds a vector clock from a literal map, failing the test on
// malformed input.
func clock(t *testing.T, counters map[string]int64) sync.VectorClock {
	t.Helper()
	vc, err := sync.VectorClockFromMap(counters)
	if err != nil {
		t.Fatalf("failed to build vector clock: %v", err)
	}
	return vc
}

// mkOp builds a valid operation or fails the test.
func mkOp(t *testing.T, id, device string, opType sync.OperationType, path string, payload sync.OperationPayload, counters map[string]int64) *sync.Operation {
	t.Helper()
	op, err := sync.NewOperation(
		sync.OperationID(id), sync.DeviceID(device), opType, path, payload, clock(t, counters), nil)
	if err != nil {
		t.Fatalf("failed to build operation %s: %v", id, err)
	}
	return op
}

// mkConflict builds a conflict directly, bypassing detection.
func mkConflict(t *testing.T, conflictType sync.ConflictType, path string, ops ...*sync.Operation) *sync.Conflict {
	t.Helper()
	conflict, err := sync.NewConflict(conflictType, path, ops)
	if err != nil {
		t.Fatalf("failed to build conflict: %v", err)
	}
	return conflict
}

func statementPayload(content string) sync.OperationPayload {
	return sync.OperationPayload{"content": content}
}
