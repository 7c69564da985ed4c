package sync_test

import (
	"testing"

	"github.com/proof-collab/proof-sync/internal/sync"
)

func TestDetectConflictClassification(t *testing.T) {
	cases := []struct {
		name     string
		aType    sync.OperationType
		bType    sync.OperationType
		expected sync.ConflictType
	}{
		{"deletion vs edit", sync.OpDeleteStatement, sync.OpUpdateStatement, sync.ConflictDeletion},
		{"deletion vs deletion", sync.OpDeleteStatement, sync.OpDeleteStatement, sync.ConflictDeletion},
		{"semantic vs semantic", sync.OpUpdateStatement, sync.OpUpdateStatement, sync.ConflictSemantic},
		{"structural vs structural", sync.OpCreateConnection, sync.OpCreateConnection, sync.ConflictStructural},
		{"semantic vs structural", sync.OpUpdateArgument, sync.OpCreateStatement, sync.ConflictConcurrentModification},
	}

	for _, tc := range cases {
		a := mkOp(t, "op-a", "device-1", tc.aType, "s1",
			payloadFor(tc.aType), map[string]int64{"device-1": 1})
		b := mkOp(t, "op-b", "device-2", tc.bType, "s1",
			payloadFor(tc.bType), map[string]int64{"device-2": 1})

		descriptor := a.DetectConflictWith(b)
		if descriptor == nil {
			t.Errorf("%s: expected a conflict", tc.name)
			continue
		}
		if descriptor.Type != tc.expected {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.expected, descriptor.Type)
		}
	}
}

func TestNoConflictOnDisjointPaths(t *testing.T) {
	a := mkOp(t, "op-a", "device-1", sync.OpUpdateStatement, "s1",
		statementPayload("a"), map[string]int64{"device-1": 1})
	b := mkOp(t, "op-b", "device-2", sync.OpUpdateStatement, "s2",
		statementPayload("b"), map[string]int64{"device-2": 1})

	if descriptor := a.DetectConflictWith(b); descriptor != nil {
		t.Errorf("Disjoint paths must never conflict, got %s", descriptor.Type)
	}
}

func TestNoConflictWhenCausallyOrdered(t *testing.T) {
	a := mkOp(t, "op-a", "device-1", sync.OpUpdateStatement, "s1",
		statementPayload("a"), map[string]int64{"device-1": 1})
	b := mkOp(t, "op-b", "device-1", sync.OpUpdateStatement, "s1",
		statementPayload("b"), map[string]int64{"device-1": 2})

	if descriptor := a.DetectConflictWith(b); descriptor != nil {
		t.Errorf("Causally ordered operations must never conflict, got %s", descriptor.Type)
	}
}

func TestNoConflictWhenOperationsCommute(t *testing.T) {
	a := mkOp(t, "op-a", "device-1", sync.OpUpdateTreePosition, "s1",
		sync.OperationPayload{"x": 1.0, "y": 2.0}, map[string]int64{"device-1": 1})
	b := mkOp(t, "op-b", "device-2", sync.OpUpdateStatement, "s1",
		statementPayload("b"), map[string]int64{"device-2": 1})

	if descriptor := a.DetectConflictWith(b); descriptor != nil {
		t.Errorf("Commuting operations must not conflict, got %s", descriptor.Type)
	}
}

func TestConflictAutoResolvable(t *testing.T) {
	if sync.ConflictSemantic.AutoResolvable() {
		t.Error("Semantic conflicts must never be auto-resolvable")
	}
	for _, conflictType := range []sync.ConflictType{
		sync.ConflictDeletion, sync.ConflictStructural, sync.ConflictConcurrentModification,
	} {
		if !conflictType.AutoResolvable() {
			t.Errorf("%s conflicts should be auto-resolvable", conflictType)
		}
	}
}

func TestNewConflictRequiresTwoOperations(t *testing.T) {
	op := mkOp(t, "op-a", "device-1", sync.OpUpdateStatement, "s1",
		statementPayload("a"), map[string]int64{"device-1": 1})

	if _, err := sync.NewConflict(sync.ConflictSemantic, "s1", []*sync.Operation{op}); err == nil {
		t.Error("Expected error for single-operation conflict")
	}
}

func payloadFor(opType sync.OperationType) sync.OperationPayload {
	switch opType {
	case sync.OpCreateStatement, sync.OpUpdateStatement:
		return statementPayload("text")
	case sync.OpCreateArgument, sync.OpUpdateArgument:
		return sync.OperationPayload{"conclusion": "therefore"}
	case sync.OpUpdateTreePosition:
		return sync.OperationPayload{"x": 1.0, "y": 2.0}
	case sync.OpCreateConnection:
		return sync.OperationPayload{"sourceId": "s1", "targetId": "s2"}
	case sync.OpUpdateMetadata:
		return sync.OperationPayload{"key": "title", "value": "v"}
	default:
		return nil
	}
}
