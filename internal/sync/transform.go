package sync

import "time"

// TransformationService orchestrates operation transformation and
// independently validates its output. Stateless; safe for concurrent use on
// independently-owned inputs.
type TransformationService struct {
	analyzer *ComplexityAnalyzer
}

// NewTransformationService creates the service.
func NewTransformationService() *TransformationService {
	return &TransformationService{analyzer: NewComplexityAnalyzer()}
}

// TransformOperation transforms op against another operation and re-validates
// the result. Any failure is returned as an explicit error.
func (s *TransformationService) TransformOperation(op, against *Operation) (*Operation, error) {
	transformed, err := op.TransformWith(against)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateTransformationResult(op, transformed); err != nil {
		return nil, err
	}
	return transformed, nil
}

// TransformOperationSequence rewrites a batch into a convergent sequential
// order.
func (s *TransformationService) TransformOperationSequence(ops []*Operation) ([]*Operation, error) {
	return TransformOperationSequence(ops)
}

// CanTransformOperations reports whether a can be transformed against b.
func (s *TransformationService) CanTransformOperations(a, b *Operation) bool {
	return a.CanTransformWith(b)
}

// CalculateTransformationComplexity classifies the batch's transformation
// cost.
func (s *TransformationService) CalculateTransformationComplexity(ops []*Operation) ComplexityLevel {
	return s.analyzer.Classify(ops)
}

// EstimateTransformationTime estimates how long transforming the batch will
// take.
func (s *TransformationService) EstimateTransformationTime(ops []*Operation) time.Duration {
	return s.analyzer.EstimateTransformationTime(ops)
}

// ValidateTransformationResult re-asserts, independently of the transform
// implementation, that the transformed operation kept its identity. Runs
// after every transform in production use.
func (s *TransformationService) ValidateTransformationResult(original, transformed *Operation) error {
	if original.DeviceID != transformed.DeviceID {
		return newTransformationError(
			"transformation changed the device ID: %s became %s", original.DeviceID, transformed.DeviceID)
	}
	if original.Type != transformed.Type {
		return newTransformationError(
			"transformation changed the operation type: %s became %s", original.Type, transformed.Type)
	}
	if original.TargetPath != transformed.TargetPath {
		return newTransformationError(
			"transformation changed the target path: %s became %s", original.TargetPath, transformed.TargetPath)
	}
	return nil
}

// TransformationStatistics summarizes a batch for observability.
type TransformationStatistics struct {
	TotalOperations        int
	ConcurrentOperations   int
	TransformableOperations int
	ComplexityBuckets      map[ComplexityLevel]int
}

// GetTransformationStatistics reports operation counts and a per-group
// complexity histogram for the batch.
func (s *TransformationService) GetTransformationStatistics(ops []*Operation) TransformationStatistics {
	stats := TransformationStatistics{
		TotalOperations:   len(ops),
		ComplexityBuckets: map[ComplexityLevel]int{},
	}

	for _, group := range FindConcurrentGroups(ops) {
		if len(group) < 2 {
			continue
		}
		stats.ConcurrentOperations += len(group)
		stats.ComplexityBuckets[s.analyzer.Classify(group)]++
	}

	for i, op := range ops {
		transformable := true
		for j, other := range ops {
			if i == j {
				continue
			}
			if op.IsConcurrentWith(other) && !op.CanTransformWith(other) {
				transformable = false
				break
			}
		}
		if transformable {
			stats.TransformableOperations++
		}
	}
	return stats
}
