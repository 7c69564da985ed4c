package sync

import "sort"

// DocumentState is the boundary to the external document aggregate.
// Implementations apply an operation's effect at its target path and return
// the updated state, or a domain error when the path is invalid.
type DocumentState interface {
	Apply(op *Operation) (DocumentState, error)
}

// Operation is the append-only log record of one edit. Operations are
// immutable: transformation produces a new Operation value and never touches
// the original. The JSON shape is the wire/storage contract and must remain
// stable.
type Operation struct {
	ID                OperationID     `json:"id"`
	DeviceID          DeviceID        `json:"deviceId"`
	Type              OperationType   `json:"operationType"`
	TargetPath        string          `json:"targetPath"`
	Payload           OperationPayload `json:"payload,omitempty"`
	VectorClock       VectorClock     `json:"vectorClock"`
	ParentOperationID *OperationID    `json:"parentOperationId,omitempty"`
}

// NewOperation validates and constructs an operation record.
func NewOperation(id OperationID, deviceID DeviceID, opType OperationType, targetPath string, payload OperationPayload, clock VectorClock, parent *OperationID) (*Operation, error) {
	if id == "" {
		return nil, newValidationError("operation ID cannot be empty")
	}
	if deviceID == "" {
		return nil, newValidationError("device ID cannot be empty")
	}
	if targetPath == "" {
		return nil, newValidationError("target path cannot be empty")
	}
	if err := ValidatePayload(opType, payload); err != nil {
		return nil, err
	}
	return &Operation{
		ID:                id,
		DeviceID:          deviceID,
		Type:              opType,
		TargetPath:        targetPath,
		Payload:           payload.Clone(),
		VectorClock:       clock,
		ParentOperationID: parent,
	}, nil
}

// HasCausalDependencyOn reports whether o causally depends on other, either
// through vector-clock dominance or an explicit parent link.
func (o *Operation) HasCausalDependencyOn(other *Operation) bool {
	if other.VectorClock.HappensBefore(o.VectorClock) {
		return true
	}
	return o.ParentOperationID != nil && *o.ParentOperationID == other.ID
}

// IsConcurrentWith reports whether neither operation causally precedes the
// other.
func (o *Operation) IsConcurrentWith(other *Operation) bool {
	return o.VectorClock.IsConcurrentWith(other.VectorClock)
}

// CanCommuteWith reports whether the two operations can be reordered without
// changing the end state: always for disjoint paths, per the operation type
// table for the same path.
func (o *Operation) CanCommuteWith(other *Operation) bool {
	return o.Type.CommutesWith(other.Type, o.TargetPath == other.TargetPath)
}

// CanTransformWith reports whether o can be transformed against other.
func (o *Operation) CanTransformWith(other *Operation) bool {
	return o.CanCommuteWith(other)
}

// TransformWith returns a new operation equivalent to o applied after other's
// concurrent effect. The result keeps o's ID, device ID, operation type, and
// target path unchanged; only the payload may differ. Deterministic and
// side-effect-free. Fails with a TransformationError when the operations do
// not commute.
func (o *Operation) TransformWith(other *Operation) (*Operation, error) {
	if !o.CanTransformWith(other) {
		return nil, newTransformationError(
			"operations cannot be transformed: %s and %s do not commute on path %s",
			o.Type, other.Type, o.TargetPath)
	}

	// Commuting operations touch disjoint fields, so o's payload carries
	// through unchanged; overlapping fields keep o's value, since o is the
	// operation being applied second.
	return &Operation{
		ID:                o.ID,
		DeviceID:          o.DeviceID,
		Type:              o.Type,
		TargetPath:        o.TargetPath,
		Payload:           o.Payload.Clone(),
		VectorClock:       o.VectorClock,
		ParentOperationID: o.ParentOperationID,
	}, nil
}

// TransformAgainstOperations folds TransformWith over the given operations in
// canonical order, so rebasing onto an unordered set of prior remote
// operations yields a deterministic result. Operations that are not
// concurrent with o are skipped: causal predecessors are already reflected in
// o's clock.
func (o *Operation) TransformAgainstOperations(ops []*Operation) (*Operation, error) {
	ordered := make([]*Operation, len(ops))
	copy(ordered, ops)
	sortCanonical(ordered)

	transformed := o
	for _, other := range ordered {
		if other.ID == o.ID || !transformed.IsConcurrentWith(other) {
			continue
		}
		next, err := transformed.TransformWith(other)
		if err != nil {
			return nil, err
		}
		transformed = next
	}
	return transformed, nil
}

// ApplyTo delegates the operation's effect to the document aggregate.
func (o *Operation) ApplyTo(state DocumentState) (DocumentState, error) {
	return state.Apply(o)
}

// ConflictDescriptor is the proto-conflict produced by pairwise detection.
type ConflictDescriptor struct {
	Type       ConflictType
	TargetPath string
}

// DetectConflictWith returns a descriptor when o and other act on the same
// path, are concurrent, and cannot be safely reordered; nil otherwise.
// Operations on disjoint paths never conflict.
func (o *Operation) DetectConflictWith(other *Operation) *ConflictDescriptor {
	if o.TargetPath != other.TargetPath {
		return nil
	}
	if !o.IsConcurrentWith(other) {
		return nil
	}
	if o.CanCommuteWith(other) {
		return nil
	}
	return &ConflictDescriptor{
		Type:       classifyConflict(o, other),
		TargetPath: o.TargetPath,
	}
}

// IsSemantic reports whether the operation changes content.
func (o *Operation) IsSemantic() bool { return o.Type.IsSemantic() }

// IsStructural reports whether the operation changes document shape.
func (o *Operation) IsStructural() bool { return o.Type.IsStructural() }

// TransformOperationSequence rewrites an arbitrary-arrival-order batch into a
// sequence whose sequential application converges with any other valid
// interleaving of the same batch. A purely causal batch (no concurrency) is
// returned unchanged: same operations, same order, same clocks.
func TransformOperationSequence(ops []*Operation) ([]*Operation, error) {
	if len(ops) < 2 || !hasConcurrency(ops) {
		out := make([]*Operation, len(ops))
		copy(out, ops)
		return out, nil
	}

	ordered := make([]*Operation, len(ops))
	copy(ordered, ops)
	sortCanonical(ordered)

	result := make([]*Operation, 0, len(ordered))
	for _, op := range ordered {
		transformed, err := op.TransformAgainstOperations(result)
		if err != nil {
			return nil, err
		}
		result = append(result, transformed)
	}
	return result, nil
}

// FindConcurrentGroups partitions a batch into maximal groups of pairwise
// concurrent operations. Every operation lands in exactly one group;
// singleton groups hold operations concurrent with nothing else in their
// group.
func FindConcurrentGroups(ops []*Operation) [][]*Operation {
	ordered := make([]*Operation, len(ops))
	copy(ordered, ops)
	sortCanonical(ordered)

	var groups [][]*Operation
	for _, op := range ordered {
		placed := false
		for i, group := range groups {
			if pairwiseConcurrent(op, group) {
				groups[i] = append(group, op)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*Operation{op})
		}
	}
	return groups
}

// CalculateTransformationComplexity classifies the transformation cost of a
// batch.
func CalculateTransformationComplexity(ops []*Operation) ComplexityLevel {
	return NewComplexityAnalyzer().Classify(ops)
}

func pairwiseConcurrent(op *Operation, group []*Operation) bool {
	for _, member := range group {
		if !op.IsConcurrentWith(member) {
			return false
		}
	}
	return true
}

func hasConcurrency(ops []*Operation) bool {
	for i := 0; i < len(ops); i++ {
		for j := i + 1; j < len(ops); j++ {
			if ops[i].IsConcurrentWith(ops[j]) {
				return true
			}
		}
	}
	return false
}

// sortCanonical orders operations causally where a causal relation exists and
// by clock-derived timestamp, device ID, then operation ID otherwise, so every
// replica derives the same order from the same batch.
func sortCanonical(ops []*Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if a.VectorClock.HappensBefore(b.VectorClock) {
			return true
		}
		if b.VectorClock.HappensBefore(a.VectorClock) {
			return false
		}
		if ta, tb := a.VectorClock.timestamp(), b.VectorClock.timestamp(); ta != tb {
			return ta < tb
		}
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		return a.ID < b.ID
	})
}
