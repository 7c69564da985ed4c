package sync

import (
	"fmt"
	"time"
)

// ComplexityLevel buckets the cost of transforming an operation batch.
type ComplexityLevel string

const (
	ComplexitySimple      ComplexityLevel = "SIMPLE"
	ComplexityModerate    ComplexityLevel = "MODERATE"
	ComplexityComplex     ComplexityLevel = "COMPLEX"
	ComplexityIntractable ComplexityLevel = "INTRACTABLE"
)

// BatchMetrics are the raw measurements the analyzer derives from a batch.
type BatchMetrics struct {
	TotalOperations        int
	StructuralOperations   int
	SemanticOperations     int
	ConcurrentGroups       int
	LargestGroupSize       int
	AveragePayloadSize     int
	MaxPayloadSize         int
	LongestDependencyChain int
}

// ComplexityAnalyzer classifies the cost and risk of transforming an
// operation batch, and estimates how long the transformation will take.
// A stateless value-to-value transformer.
type ComplexityAnalyzer struct{}

// NewComplexityAnalyzer creates an analyzer.
func NewComplexityAnalyzer() *ComplexityAnalyzer {
	return &ComplexityAnalyzer{}
}

// Analyze computes batch metrics.
func (a *ComplexityAnalyzer) Analyze(ops []*Operation) BatchMetrics {
	metrics := BatchMetrics{TotalOperations: len(ops)}
	if len(ops) == 0 {
		return metrics
	}

	totalPayload := 0
	for _, op := range ops {
		if op.IsSemantic() {
			metrics.SemanticOperations++
		} else {
			metrics.StructuralOperations++
		}
		size := op.Payload.Size()
		totalPayload += size
		if size > metrics.MaxPayloadSize {
			metrics.MaxPayloadSize = size
		}
	}
	metrics.AveragePayloadSize = totalPayload / len(ops)

	for _, group := range FindConcurrentGroups(ops) {
		if len(group) < 2 {
			continue
		}
		metrics.ConcurrentGroups++
		if len(group) > metrics.LargestGroupSize {
			metrics.LargestGroupSize = len(group)
		}
	}

	metrics.LongestDependencyChain = longestDependencyChain(ops)
	return metrics
}

// Classify buckets the batch into a complexity level using the canonical
// threshold set.
func (a *ComplexityAnalyzer) Classify(ops []*Operation) ComplexityLevel {
	m := a.Analyze(ops)

	if m.TotalOperations > 50 || m.SemanticOperations > 20 {
		return ComplexityIntractable
	}
	if m.TotalOperations > 20 ||
		m.SemanticOperations > 5 ||
		m.ConcurrentGroups > 3 ||
		m.LargestGroupSize > 10 ||
		m.MaxPayloadSize > 50000 ||
		m.LongestDependencyChain > 10 {
		return ComplexityComplex
	}
	if m.TotalOperations > 5 ||
		m.StructuralOperations > 10 ||
		m.SemanticOperations > 2 ||
		m.ConcurrentGroups > 1 ||
		m.MaxPayloadSize > 10000 ||
		m.LongestDependencyChain > 5 {
		return ComplexityModerate
	}
	return ComplexitySimple
}

// EstimateTransformationTime maps the batch's complexity to a base latency
// and scales it up for the factors that dominate transformation cost.
func (a *ComplexityAnalyzer) EstimateTransformationTime(ops []*Operation) time.Duration {
	m := a.Analyze(ops)

	var base time.Duration
	switch a.Classify(ops) {
	case ComplexitySimple:
		base = 10 * time.Millisecond
	case ComplexityModerate:
		base = 100 * time.Millisecond
	case ComplexityComplex:
		base = 1000 * time.Millisecond
	default:
		base = 10000 * time.Millisecond
	}

	estimate := base
	if m.ConcurrentGroups > 3 {
		estimate *= 2
	}
	if m.SemanticOperations > 5 {
		estimate *= 2
	}
	if m.MaxPayloadSize > 50000 {
		estimate *= 2
	}
	if m.LongestDependencyChain > 10 {
		estimate *= 2
	}
	return estimate
}

// IdentifyBottlenecks reports human-readable reasons a batch is expensive,
// for diagnostics and backpressure decisions by the caller.
func (a *ComplexityAnalyzer) IdentifyBottlenecks(ops []*Operation) []string {
	m := a.Analyze(ops)

	var bottlenecks []string
	if m.SemanticOperations > 5 {
		bottlenecks = append(bottlenecks,
			fmt.Sprintf("high semantic operation count (%d) requires content-level reconciliation", m.SemanticOperations))
	}
	if m.ConcurrentGroups > 3 {
		bottlenecks = append(bottlenecks,
			fmt.Sprintf("too many concurrent groups (%d) multiply pairwise transformations", m.ConcurrentGroups))
	}
	if m.MaxPayloadSize > 50000 {
		bottlenecks = append(bottlenecks,
			fmt.Sprintf("large payloads (max %d bytes) slow transformation and merging", m.MaxPayloadSize))
	}
	if m.LongestDependencyChain > 10 {
		bottlenecks = append(bottlenecks,
			fmt.Sprintf("long causal dependency chain (%d) forces sequential processing", m.LongestDependencyChain))
	}
	return bottlenecks
}

// longestDependencyChain returns the length, in operations, of the longest
// causal chain in the batch.
func longestDependencyChain(ops []*Operation) int {
	if len(ops) == 0 {
		return 0
	}

	memo := make(map[OperationID]int, len(ops))
	var chainFrom func(op *Operation, visiting map[OperationID]bool) int
	chainFrom = func(op *Operation, visiting map[OperationID]bool) int {
		if cached, ok := memo[op.ID]; ok {
			return cached
		}
		if visiting[op.ID] {
			return 1
		}
		visiting[op.ID] = true
		defer delete(visiting, op.ID)

		longest := 0
		for _, other := range ops {
			if other.ID == op.ID {
				continue
			}
			if op.HasCausalDependencyOn(other) {
				if depth := chainFrom(other, visiting); depth > longest {
					longest = depth
				}
			}
		}
		memo[op.ID] = longest + 1
		return longest + 1
	}

	longest := 0
	for _, op := range ops {
		if depth := chainFrom(op, map[OperationID]bool{}); depth > longest {
			longest = depth
		}
	}
	return longest
}
