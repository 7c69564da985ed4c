package sync

import (
	"fmt"

	"github.com/google/uuid"
)

// ConflictType classifies why a set of concurrent operations cannot be
// trivially reordered.
type ConflictType string

const (
	// ConflictDeletion marks a deletion concurrent with any other operation
	// on the same path.
	ConflictDeletion ConflictType = "DELETION"
	// ConflictSemantic marks two concurrent content edits of the same node.
	ConflictSemantic ConflictType = "SEMANTIC"
	// ConflictStructural marks two concurrent non-commuting shape changes.
	ConflictStructural ConflictType = "STRUCTURAL"
	// ConflictConcurrentModification covers every other concurrent same-path
	// collision.
	ConflictConcurrentModification ConflictType = "CONCURRENT_MODIFICATION"
)

// AutoResolvable reports whether conflicts of this type may be resolved
// without user input. Semantic conflicts never are: the engine cannot judge
// which content the author intended.
func (t ConflictType) AutoResolvable() bool {
	return t != ConflictSemantic
}

// ResolutionWeight is the relative cost of resolving a conflict of this type,
// used by complexity estimation.
func (t ConflictType) ResolutionWeight() int {
	switch t {
	case ConflictSemantic:
		return 3
	case ConflictDeletion:
		return 2
	case ConflictStructural:
		return 2
	default:
		return 1
	}
}

// severity orders conflict types for cluster classification; higher wins.
func (t ConflictType) severity() int {
	switch t {
	case ConflictDeletion:
		return 4
	case ConflictSemantic:
		return 3
	case ConflictStructural:
		return 2
	default:
		return 1
	}
}

// classifyConflict decides the conflict type for one concurrent, same-path,
// non-commuting pair.
func classifyConflict(a, b *Operation) ConflictType {
	if a.Type.IsDeletion() || b.Type.IsDeletion() {
		return ConflictDeletion
	}
	if a.IsSemantic() && b.IsSemantic() {
		return ConflictSemantic
	}
	if a.IsStructural() && b.IsStructural() {
		return ConflictStructural
	}
	return ConflictConcurrentModification
}

// Conflict aggregates two or more mutually conflicting operations on one
// target path. Conflicts are immutable; they are materialized by detection
// and discarded once resolved.
type Conflict struct {
	ID         string
	Type       ConflictType
	TargetPath string
	Operations []*Operation
}

// NewConflict validates and constructs a conflict.
func NewConflict(conflictType ConflictType, targetPath string, ops []*Operation) (*Conflict, error) {
	if len(ops) < 2 {
		return nil, newValidationError("a conflict requires at least 2 operations, got %d", len(ops))
	}
	if targetPath == "" {
		return nil, newValidationError("conflict target path cannot be empty")
	}
	operations := make([]*Operation, len(ops))
	copy(operations, ops)
	return &Conflict{
		ID:         fmt.Sprintf("conflict-%s", uuid.NewString()),
		Type:       conflictType,
		TargetPath: targetPath,
		Operations: operations,
	}, nil
}

// OperationCount returns the number of conflicting operations.
func (c *Conflict) OperationCount() int {
	return len(c.Operations)
}
