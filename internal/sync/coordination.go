package sync

import "sort"

// CoordinationService detects conflicts across a batch, orders operations
// causally, and exposes dependency diagnostics. Stateless. Each of
// DetectConflicts and OrderOperations must be given the complete relevant
// batch for one target path/document by a single logical task; across
// independent documents, calls may run fully in parallel.
type CoordinationService struct{}

// NewCoordinationService creates the service.
func NewCoordinationService() *CoordinationService {
	return &CoordinationService{}
}

// DetectConflicts groups operations by target path, finds concurrent
// clusters within each group, and materializes a Conflict per cluster whose
// members collide. Operations on disjoint paths never conflict.
func (s *CoordinationService) DetectConflicts(ops []*Operation) []*Conflict {
	byPath := make(map[string][]*Operation)
	var paths []string
	for _, op := range ops {
		if _, seen := byPath[op.TargetPath]; !seen {
			paths = append(paths, op.TargetPath)
		}
		byPath[op.TargetPath] = append(byPath[op.TargetPath], op)
	}
	sort.Strings(paths)

	var conflicts []*Conflict
	for _, path := range paths {
		group := byPath[path]
		if len(group) < 2 {
			continue
		}
		for _, cluster := range FindConcurrentGroups(group) {
			if len(cluster) < 2 {
				continue
			}
			if conflict := materializeConflict(path, cluster); conflict != nil {
				conflicts = append(conflicts, conflict)
			}
		}
	}
	return conflicts
}

// materializeConflict turns one concurrent cluster into a Conflict when any
// pair collides. The cluster's type is the most severe pairwise
// classification.
func materializeConflict(path string, cluster []*Operation) *Conflict {
	var conflictType ConflictType
	found := false
	for i := 0; i < len(cluster); i++ {
		for j := i + 1; j < len(cluster); j++ {
			descriptor := cluster[i].DetectConflictWith(cluster[j])
			if descriptor == nil {
				continue
			}
			if !found || descriptor.Type.severity() > conflictType.severity() {
				conflictType = descriptor.Type
			}
			found = true
		}
	}
	if !found {
		return nil
	}

	conflict, err := NewConflict(conflictType, path, cluster)
	if err != nil {
		// Clusters reaching this point always have >= 2 operations.
		return nil
	}
	return conflict
}

// OrderOperations produces a total order respecting causal dependency, with
// the clock-derived timestamp (then device and operation ID) as tiebreak for
// unrelated operations. Fails with an OrderingError when two operations
// mutually depend on each other.
func (s *CoordinationService) OrderOperations(ops []*Operation) ([]*Operation, error) {
	dependencies := s.CalculateOperationDependencies(ops)

	// Mutual dependency is a hard error, reported before sorting.
	dependsOn := func(a OperationID, b OperationID) bool {
		for _, dep := range dependencies[a] {
			if dep == b {
				return true
			}
		}
		return false
	}
	for _, op := range ops {
		for _, dep := range dependencies[op.ID] {
			if dependsOn(dep, op.ID) {
				return nil, newOrderingError(
					"circular dependency between operations %s and %s", op.ID, dep)
			}
		}
	}

	byID := make(map[OperationID]*Operation, len(ops))
	indegree := make(map[OperationID]int, len(ops))
	dependents := make(map[OperationID][]OperationID, len(ops))
	for _, op := range ops {
		byID[op.ID] = op
		indegree[op.ID] = len(dependencies[op.ID])
		for _, dep := range dependencies[op.ID] {
			dependents[dep] = append(dependents[dep], op.ID)
		}
	}

	ready := make([]*Operation, 0, len(ops))
	for _, op := range ops {
		if indegree[op.ID] == 0 {
			ready = append(ready, op)
		}
	}

	ordered := make([]*Operation, 0, len(ops))
	for len(ready) > 0 {
		sortCanonical(ready)
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, next)

		for _, dependent := range dependents[next.ID] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, byID[dependent])
			}
		}
	}

	if len(ordered) != len(ops) {
		return nil, newOrderingError("circular dependency detected in operation batch")
	}
	return ordered, nil
}

// CalculateOperationDependencies builds an explicit dependency map (operation
// ID → IDs it causally depends on) for diagnostics and cycle detection.
func (s *CoordinationService) CalculateOperationDependencies(ops []*Operation) map[OperationID][]OperationID {
	dependencies := make(map[OperationID][]OperationID, len(ops))
	for _, op := range ops {
		dependencies[op.ID] = nil
		for _, other := range ops {
			if op.ID == other.ID {
				continue
			}
			if op.HasCausalDependencyOn(other) {
				dependencies[op.ID] = append(dependencies[op.ID], other.ID)
			}
		}
		sort.Slice(dependencies[op.ID], func(i, j int) bool {
			return dependencies[op.ID][i] < dependencies[op.ID][j]
		})
	}
	return dependencies
}

// CanOperationsCommute reports whether the two operations can be reordered
// freely.
func (s *CoordinationService) CanOperationsCommute(a, b *Operation) bool {
	return a.CanCommuteWith(b)
}
