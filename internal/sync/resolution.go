package sync

import (
	"fmt"
	"strings"
	"time"
)

// ResolutionStrategy is the closed set of ways a conflict can be resolved.
type ResolutionStrategy string

const (
	StrategyMergeOperations      ResolutionStrategy = "MERGE_OPERATIONS"
	StrategyLastWriterWins       ResolutionStrategy = "LAST_WRITER_WINS"
	StrategyFirstWriterWins      ResolutionStrategy = "FIRST_WRITER_WINS"
	StrategyUserDecisionRequired ResolutionStrategy = "USER_DECISION_REQUIRED"
)

// ResolutionComplexity grades how much effort resolving a conflict takes.
type ResolutionComplexity string

const (
	ResolutionLow    ResolutionComplexity = "LOW"
	ResolutionMedium ResolutionComplexity = "MEDIUM"
	ResolutionHigh   ResolutionComplexity = "HIGH"
)

// Resolution is the outcome of resolving one conflict. For writer-wins and
// merge strategies ResolvedOperation carries the surviving operation; for
// user decisions ResolvedValue carries the user's input verbatim.
type Resolution struct {
	ConflictID        string
	Strategy          ResolutionStrategy
	ResolvedOperation *Operation
	ResolvedValue     interface{}
	ResolvedAt        time.Time
}

// ResolutionService selects and applies a resolution strategy per conflict.
// Stateless apart from its collaborators; safe for concurrent use on
// independently-owned conflicts.
type ResolutionService struct {
	transformer *TransformationService
}

// NewResolutionService creates the service.
func NewResolutionService(transformer *TransformationService) *ResolutionService {
	return &ResolutionService{transformer: transformer}
}

// CanResolveAutomatically reports whether the conflict's type permits
// resolution without user input.
func (s *ResolutionService) CanResolveAutomatically(conflict *Conflict) bool {
	return conflict.Type.AutoResolvable()
}

// GetRecommendedResolution picks the strategy the engine would apply on its
// own. Semantic conflicts always require a user decision. Structural
// conflicts merge when every pair of operations is structural and commutes;
// otherwise, and for all remaining types, last writer wins.
func (s *ResolutionService) GetRecommendedResolution(conflict *Conflict) ResolutionStrategy {
	switch conflict.Type {
	case ConflictSemantic:
		return StrategyUserDecisionRequired
	case ConflictStructural:
		if allStructuralAndCommuting(conflict.Operations) {
			return StrategyMergeOperations
		}
		return StrategyLastWriterWins
	default:
		return StrategyLastWriterWins
	}
}

// ResolveConflictAutomatically resolves the conflict with its recommended
// strategy, failing when the conflict type demands a human.
func (s *ResolutionService) ResolveConflictAutomatically(conflict *Conflict) (*Resolution, error) {
	if !s.CanResolveAutomatically(conflict) {
		return nil, newConflictResolutionError(
			"conflict %s (%s) requires manual resolution", conflict.ID, conflict.Type)
	}
	return s.applyStrategy(conflict, s.GetRecommendedResolution(conflict), nil)
}

// ResolveConflictWithUserInput resolves the conflict with an explicitly
// chosen strategy. USER_DECISION_REQUIRED demands a non-nil userInput, and
// the resolved value is that input verbatim.
func (s *ResolutionService) ResolveConflictWithUserInput(conflict *Conflict, strategy ResolutionStrategy, userInput interface{}) (*Resolution, error) {
	return s.applyStrategy(conflict, strategy, userInput)
}

func (s *ResolutionService) applyStrategy(conflict *Conflict, strategy ResolutionStrategy, userInput interface{}) (*Resolution, error) {
	resolution := &Resolution{
		ConflictID: conflict.ID,
		Strategy:   strategy,
		ResolvedAt: time.Now(),
	}

	switch strategy {
	case StrategyMergeOperations:
		merged, err := s.MergeOperations(conflict.Operations)
		if err != nil {
			return nil, err
		}
		resolution.ResolvedOperation = merged
		resolution.ResolvedValue = merged.Payload
	case StrategyLastWriterWins:
		winner, err := s.applyLastWriterWins(conflict.Operations)
		if err != nil {
			return nil, err
		}
		resolution.ResolvedOperation = winner
		resolution.ResolvedValue = winner.Payload
	case StrategyFirstWriterWins:
		winner, err := s.applyFirstWriterWins(conflict.Operations)
		if err != nil {
			return nil, err
		}
		resolution.ResolvedOperation = winner
		resolution.ResolvedValue = winner.Payload
	case StrategyUserDecisionRequired:
		if userInput == nil {
			return nil, newConflictResolutionError(
				"User input required for USER_DECISION_REQUIRED strategy")
		}
		resolution.ResolvedValue = userInput
	default:
		return nil, newConflictResolutionError("Unsupported resolution strategy: %s", strategy)
	}
	return resolution, nil
}

// MergeOperations combines two or more commuting operations into one: the
// operations are put in clock-timestamp order, each is transformed against
// its predecessor, and the payloads are folded with a shallow field-level
// combine where later fields overwrite earlier ones. The shallow combine is
// deliberate, documented behavior: overlapping fields take the later value
// rather than being merged per field.
func (s *ResolutionService) MergeOperations(ops []*Operation) (*Operation, error) {
	if len(ops) < 2 {
		return nil, newConflictResolutionError("Cannot merge less than 2 operations")
	}

	ordered := make([]*Operation, len(ops))
	copy(ordered, ops)
	sortCanonical(ordered)

	merged := ordered[0]
	payload := ordered[0].Payload.Clone()
	for _, op := range ordered[1:] {
		transformed, err := s.transformer.TransformOperation(op, merged)
		if err != nil {
			return nil, err
		}
		payload = payload.MergedWith(transformed.Payload)
		merged = transformed
	}

	return &Operation{
		ID:                merged.ID,
		DeviceID:          merged.DeviceID,
		Type:              merged.Type,
		TargetPath:        merged.TargetPath,
		Payload:           payload,
		VectorClock:       mergedClock(ordered),
		ParentOperationID: merged.ParentOperationID,
	}, nil
}

// applyLastWriterWins picks the operation whose clock happens-after all
// others. Mutually concurrent operations fall back to a deterministic
// tiebreak: larger clock-derived timestamp, then lexicographically greater
// device ID.
func (s *ResolutionService) applyLastWriterWins(ops []*Operation) (*Operation, error) {
	if len(ops) == 0 {
		return nil, newConflictResolutionError("No operations to resolve")
	}
	winner := ops[0]
	for _, op := range ops[1:] {
		if writerPrecedes(winner, op) {
			winner = op
		}
	}
	return winner, nil
}

// applyFirstWriterWins picks the operation whose clock happens-before all
// others, with the inverse tiebreak of applyLastWriterWins.
func (s *ResolutionService) applyFirstWriterWins(ops []*Operation) (*Operation, error) {
	if len(ops) == 0 {
		return nil, newConflictResolutionError("No operations to resolve")
	}
	winner := ops[0]
	for _, op := range ops[1:] {
		if writerPrecedes(op, winner) {
			winner = op
		}
	}
	return winner, nil
}

// GenerateResolutionPreview renders a human-readable description of what the
// strategy would do, for UI confirmation. Not itself a resolution.
func (s *ResolutionService) GenerateResolutionPreview(conflict *Conflict, strategy ResolutionStrategy) string {
	devices := make([]string, 0, len(conflict.Operations))
	for _, op := range conflict.Operations {
		devices = append(devices, op.DeviceID.String())
	}
	involved := strings.Join(devices, ", ")

	switch strategy {
	case StrategyMergeOperations:
		return fmt.Sprintf("Merge %d operations on %s from devices %s into a single combined edit",
			len(conflict.Operations), conflict.TargetPath, involved)
	case StrategyLastWriterWins:
		return fmt.Sprintf("Keep the most recent of %d operations on %s and discard the rest",
			len(conflict.Operations), conflict.TargetPath)
	case StrategyFirstWriterWins:
		return fmt.Sprintf("Keep the earliest of %d operations on %s and discard the rest",
			len(conflict.Operations), conflict.TargetPath)
	case StrategyUserDecisionRequired:
		return fmt.Sprintf("Ask the user to choose the final content for %s (devices %s disagree)",
			conflict.TargetPath, involved)
	default:
		return fmt.Sprintf("Unknown strategy %s for conflict on %s", strategy, conflict.TargetPath)
	}
}

// EstimateResolutionComplexity grades the conflict for scheduling and UI
// hints: semantic conflicts are always HIGH, large conflicts HIGH, mid-size
// MEDIUM, the rest LOW.
func (s *ResolutionService) EstimateResolutionComplexity(conflict *Conflict) ResolutionComplexity {
	if conflict.Type == ConflictSemantic {
		return ResolutionHigh
	}
	if conflict.OperationCount() > 5 {
		return ResolutionHigh
	}
	if conflict.OperationCount() > 2 {
		return ResolutionMedium
	}
	return ResolutionLow
}

// writerPrecedes reports whether a wrote strictly before b: causal order
// where one exists, otherwise the deterministic concurrent tiebreak.
func writerPrecedes(a, b *Operation) bool {
	if a.VectorClock.HappensBefore(b.VectorClock) {
		return true
	}
	if b.VectorClock.HappensBefore(a.VectorClock) {
		return false
	}
	if ta, tb := a.VectorClock.timestamp(), b.VectorClock.timestamp(); ta != tb {
		return ta < tb
	}
	return a.DeviceID < b.DeviceID
}

func allStructuralAndCommuting(ops []*Operation) bool {
	for i := 0; i < len(ops); i++ {
		if !ops[i].IsStructural() {
			return false
		}
		for j := i + 1; j < len(ops); j++ {
			if !ops[i].CanCommuteWith(ops[j]) {
				return false
			}
		}
	}
	return true
}

func mergedClock(ops []*Operation) VectorClock {
	clock := NewVectorClock()
	for _, op := range ops {
		clock = clock.Merge(op.VectorClock)
	}
	return clock
}
