package sync_test

import (
	"strings"
	"testing"

	"github.com/proof-collab/proof-sync/internal/sync"
)

func TestTransformOperationValidatesResult(t *testing.T) {
	service := sync.NewTransformationService()

	a := mkOp(t, "op-a", "device-1", sync.OpUpdateStatement, "s1",
		statementPayload("a"), map[string]int64{"device-1": 1})
	b := mkOp(t, "op-b", "device-2", sync.OpUpdateTreePosition, "s1",
		sync.OperationPayload{"x": 1.0, "y": 2.0}, map[string]int64{"device-2": 1})

	transformed, err := service.TransformOperation(a, b)
	if err != nil {
		t.Fatalf("TransformOperation failed: %v", err)
	}
	if transformed.DeviceID != a.DeviceID || transformed.Type != a.Type || transformed.TargetPath != a.TargetPath {
		t.Error("Transformed operation lost its identity")
	}
}

func TestValidateTransformationResultRejectsMutations(t *testing.T) {
	service := sync.NewTransformationService()

	original := mkOp(t, "op-a", "device-1", sync.OpUpdateStatement, "s1",
		statementPayload("a"), map[string]int64{"device-1": 1})

	cases := []struct {
		name    string
		mutate  func(op *sync.Operation)
		message string
	}{
		{"device ID", func(op *sync.Operation) { op.DeviceID = "device-9" }, "device ID"},
		{"operation type", func(op *sync.Operation) { op.Type = sync.OpDeleteStatement }, "operation type"},
		{"target path", func(op *sync.Operation) { op.TargetPath = "s9" }, "target path"},
	}
	for _, tc := range cases {
		mutated := *original
		tc.mutate(&mutated)

		err := service.ValidateTransformationResult(original, &mutated)
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Errorf("%s: unexpected message: %v", tc.name, err)
		}
	}
}

func TestCanTransformOperations(t *testing.T) {
	service := sync.NewTransformationService()

	position := mkOp(t, "op-a", "device-1", sync.OpUpdateTreePosition, "s1",
		sync.OperationPayload{"x": 1.0, "y": 2.0}, map[string]int64{"device-1": 1})
	content := mkOp(t, "op-b", "device-2", sync.OpUpdateStatement, "s1",
		statementPayload("b"), map[string]int64{"device-2": 1})
	otherContent := mkOp(t, "op-c", "device-3", sync.OpUpdateStatement, "s1",
		statementPayload("c"), map[string]int64{"device-3": 1})

	if !service.CanTransformOperations(position, content) {
		t.Error("Position and content edits on the same node should transform")
	}
	if service.CanTransformOperations(content, otherContent) {
		t.Error("Two content edits of the same node should not transform")
	}
}

func TestGetTransformationStatistics(t *testing.T) {
	service := sync.NewTransformationService()

	a := mkOp(t, "op-a", "device-1", sync.OpUpdateTreePosition, "s1",
		sync.OperationPayload{"x": 1.0, "y": 2.0}, map[string]int64{"device-1": 1})
	b := mkOp(t, "op-b", "device-2", sync.OpUpdateStatement, "s1",
		statementPayload("b"), map[string]int64{"device-2": 1})
	// c causally follows a, so it joins no concurrent group with it.
	c := mkOp(t, "op-c", "device-1", sync.OpCreateStatement, "s2",
		statementPayload("c"), map[string]int64{"device-1": 2})

	stats := service.GetTransformationStatistics([]*sync.Operation{a, b, c})
	if stats.TotalOperations != 3 {
		t.Errorf("Expected 3 total, got %d", stats.TotalOperations)
	}
	if stats.ConcurrentOperations != 2 {
		t.Errorf("Expected 2 concurrent, got %d", stats.ConcurrentOperations)
	}
	if stats.TransformableOperations != 3 {
		t.Errorf("Expected 3 transformable, got %d", stats.TransformableOperations)
	}
	if len(stats.ComplexityBuckets) == 0 {
		t.Error("Expected at least one complexity bucket")
	}
}
