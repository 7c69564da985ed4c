package document_test

import (
	"testing"

	"github.com/proof-collab/proof-sync/internal/document"
	"github.com/proof-collab/proof-sync/internal/sync"
)

func mkOp(t *testing.T, opType sync.OperationType, path string, payload sync.OperationPayload) *sync.Operation {
	t.Helper()
	clock, err := sync.VectorClockFromMap(map[string]int64{"device-1": 1})
	if err != nil {
		t.Fatalf("failed to build clock: %v", err)
	}
	op, err := sync.NewOperation("op-1", "device-1", opType, path, payload, clock, nil)
	if err != nil {
		t.Fatalf("failed to build operation: %v", err)
	}
	return op
}

func TestCreateAndUpdateStatement(t *testing.T) {
	doc := document.New()

	created, err := doc.Apply(mkOp(t, sync.OpCreateStatement, "s1", sync.OperationPayload{"content": "premise"}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	next := created.(*document.Document)
	node, ok := next.Node("s1")
	if !ok || node.Fields["content"] != "premise" {
		t.Fatalf("unexpected node: %+v", node)
	}

	updated, err := next.Apply(mkOp(t, sync.OpUpdateStatement, "s1", sync.OperationPayload{"content": "revised"}))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	node, _ = updated.(*document.Document).Node("s1")
	if node.Fields["content"] != "revised" {
		t.Errorf("update not applied: %v", node.Fields)
	}

	// The earlier snapshot is untouched.
	node, _ = next.Node("s1")
	if node.Fields["content"] != "premise" {
		t.Error("Apply mutated an earlier snapshot")
	}
}

func TestCreateExistingPathFails(t *testing.T) {
	doc := document.New()

	created, err := doc.Apply(mkOp(t, sync.OpCreateStatement, "s1", sync.OperationPayload{"content": "a"}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := created.Apply(mkOp(t, sync.OpCreateStatement, "s1", sync.OperationPayload{"content": "b"})); err == nil {
		t.Error("Expected error creating an existing path")
	}
}

func TestUpdateMissingPathFails(t *testing.T) {
	doc := document.New()
	if _, err := doc.Apply(mkOp(t, sync.OpUpdateStatement, "s1", sync.OperationPayload{"content": "x"})); err == nil {
		t.Error("Expected error updating a missing path")
	}
}

func TestDeleteRemovesSubtree(t *testing.T) {
	doc := document.New()

	state := sync.DocumentState(doc)
	var err error
	for _, step := range []struct {
		opType  sync.OperationType
		path    string
		payload sync.OperationPayload
	}{
		{sync.OpCreateTree, "t1", nil},
		{sync.OpCreateStatement, "t1/s1", sync.OperationPayload{"content": "a"}},
		{sync.OpCreateStatement, "t1/s2", sync.OperationPayload{"content": "b"}},
		{sync.OpCreateStatement, "s3", sync.OperationPayload{"content": "c"}},
	} {
		state, err = state.Apply(mkOp(t, step.opType, step.path, step.payload))
		if err != nil {
			t.Fatalf("setup step %s failed: %v", step.path, err)
		}
	}

	state, err = state.Apply(mkOp(t, sync.OpDeleteTree, "t1", nil))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	result := state.(*document.Document)
	for _, gone := range []string{"t1", "t1/s1", "t1/s2"} {
		if _, ok := result.Node(gone); ok {
			t.Errorf("Path %s should have been removed with the subtree", gone)
		}
	}
	if _, ok := result.Node("s3"); !ok {
		t.Error("Unrelated node removed by subtree deletion")
	}
	if result.Len() != 1 {
		t.Errorf("Expected 1 remaining node, got %d", result.Len())
	}
}

func TestDeleteMissingPathFails(t *testing.T) {
	doc := document.New()
	if _, err := doc.Apply(mkOp(t, sync.OpDeleteStatement, "s1", nil)); err == nil {
		t.Error("Expected error deleting a missing path")
	}
}
