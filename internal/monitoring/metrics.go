package monitoring

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/proof-collab/proof-sync/internal/observability"
)

// Metrics collects in-process counters for the sync engine and mirrors them
// to OpenTelemetry instruments when an exporter is configured.
type Metrics struct {
	operations   OperationMetrics
	operationsMu sync.RWMutex

	conflicts   ConflictMetrics
	conflictsMu sync.RWMutex

	complexity   ComplexityMetrics
	complexityMu sync.RWMutex

	errors   ErrorMetrics
	errorsMu sync.RWMutex

	otel      *observability.Metrics
	startTime time.Time
}

// OperationMetrics tracks processed operations.
type OperationMetrics struct {
	TotalOperations   int64
	LocalOperations   int64
	RemoteOperations  int64
	OperationsByType  map[string]int64
	LastOperationTime time.Time
}

// ConflictMetrics tracks conflict detection and resolution.
type ConflictMetrics struct {
	DetectedTotal        int64
	DetectedByType       map[string]int64
	ResolvedTotal        int64
	ResolvedByStrategy   map[string]int64
	PendingConflicts     int64
	LastConflictTime     time.Time
	LastResolutionTime   time.Time
}

// ComplexityMetrics tracks batch complexity classification.
type ComplexityMetrics struct {
	BatchesByLevel map[string]int64
}

// ErrorMetrics tracks failures by kind.
type ErrorMetrics struct {
	TotalErrors  int64
	ErrorsByKind map[string]int64
}

// NewMetrics creates a metrics collector. otelMetrics may be nil when no
// exporter is configured.
func NewMetrics(otelMetrics *observability.Metrics) *Metrics {
	return &Metrics{
		operations: OperationMetrics{OperationsByType: map[string]int64{}},
		conflicts: ConflictMetrics{
			DetectedByType:     map[string]int64{},
			ResolvedByStrategy: map[string]int64{},
		},
		complexity: ComplexityMetrics{BatchesByLevel: map[string]int64{}},
		errors:     ErrorMetrics{ErrorsByKind: map[string]int64{}},
		otel:       otelMetrics,
		startTime:  time.Now(),
	}
}

// RecordOperation records one processed operation.
func (m *Metrics) RecordOperation(opType string, local bool) {
	m.operationsMu.Lock()
	m.operations.TotalOperations++
	if local {
		m.operations.LocalOperations++
	} else {
		m.operations.RemoteOperations++
	}
	m.operations.OperationsByType[opType]++
	m.operations.LastOperationTime = time.Now()
	m.operationsMu.Unlock()

	if m.otel != nil {
		m.otel.OperationsTotal.Add(context.Background(), 1,
			metric.WithAttributes(
				attribute.String("operation_type", opType),
				attribute.Bool("local", local),
			))
	}
}

// RecordConflictDetected records one detected conflict.
func (m *Metrics) RecordConflictDetected(conflictType string) {
	m.conflictsMu.Lock()
	m.conflicts.DetectedTotal++
	m.conflicts.DetectedByType[conflictType]++
	m.conflicts.PendingConflicts++
	m.conflicts.LastConflictTime = time.Now()
	m.conflictsMu.Unlock()

	if m.otel != nil {
		ctx := context.Background()
		m.otel.ConflictsDetected.Add(ctx, 1,
			metric.WithAttributes(attribute.String("conflict_type", conflictType)))
		m.otel.ConflictsPending.Add(ctx, 1)
	}
}

// RecordConflictResolved records one resolved conflict.
func (m *Metrics) RecordConflictResolved(strategy string) {
	m.conflictsMu.Lock()
	m.conflicts.ResolvedTotal++
	m.conflicts.ResolvedByStrategy[strategy]++
	if m.conflicts.PendingConflicts > 0 {
		m.conflicts.PendingConflicts--
	}
	m.conflicts.LastResolutionTime = time.Now()
	m.conflictsMu.Unlock()

	if m.otel != nil {
		ctx := context.Background()
		m.otel.ConflictsResolved.Add(ctx, 1,
			metric.WithAttributes(attribute.String("strategy", strategy)))
		m.otel.ConflictsPending.Add(ctx, -1)
	}
}

// RecordTransformDuration records the wall time of one batch transformation.
func (m *Metrics) RecordTransformDuration(d time.Duration) {
	if m.otel != nil {
		m.otel.TransformDuration.Record(context.Background(), d.Seconds())
	}
}

// RecordResolutionDuration records the wall time of one conflict resolution.
func (m *Metrics) RecordResolutionDuration(d time.Duration) {
	if m.otel != nil {
		m.otel.ResolutionDuration.Record(context.Background(), d.Seconds())
	}
}

// RecordEstimatedTransformTime records the analyzer's estimate for one batch.
func (m *Metrics) RecordEstimatedTransformTime(d time.Duration) {
	if m.otel != nil {
		m.otel.EstimatedTransformTime.Record(context.Background(), d.Seconds())
	}
}

// RecordPayloadSize records one operation's payload size.
func (m *Metrics) RecordPayloadSize(bytes int64) {
	if m.otel != nil {
		m.otel.OperationPayloadBytes.Record(context.Background(), bytes)
	}
}

// RecordBatchComplexity records the complexity classification of one batch.
func (m *Metrics) RecordBatchComplexity(level string) {
	m.complexityMu.Lock()
	m.complexity.BatchesByLevel[level]++
	m.complexityMu.Unlock()

	if m.otel != nil {
		m.otel.BatchComplexity.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("level", level)))
	}
}

// RecordError records one failure.
func (m *Metrics) RecordError(kind string) {
	m.errorsMu.Lock()
	m.errors.TotalErrors++
	m.errors.ErrorsByKind[kind]++
	m.errorsMu.Unlock()

	if m.otel != nil {
		switch kind {
		case "transform":
			m.otel.ErrorTransformFailures.Add(context.Background(), 1)
		case "resolution":
			m.otel.ErrorResolutionFailures.Add(context.Background(), 1)
		case "apply":
			m.otel.ErrorApplyFailures.Add(context.Background(), 1)
		}
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Operations OperationMetrics  `json:"operations"`
	Conflicts  ConflictMetrics   `json:"conflicts"`
	Complexity ComplexityMetrics `json:"complexity"`
	Errors     ErrorMetrics      `json:"errors"`
	Uptime     time.Duration     `json:"uptime"`
}

// GetSnapshot copies all metrics under their locks.
func (m *Metrics) GetSnapshot() Snapshot {
	snapshot := Snapshot{Uptime: time.Since(m.startTime)}

	m.operationsMu.RLock()
	snapshot.Operations = m.operations
	snapshot.Operations.OperationsByType = copyCounts(m.operations.OperationsByType)
	m.operationsMu.RUnlock()

	m.conflictsMu.RLock()
	snapshot.Conflicts = m.conflicts
	snapshot.Conflicts.DetectedByType = copyCounts(m.conflicts.DetectedByType)
	snapshot.Conflicts.ResolvedByStrategy = copyCounts(m.conflicts.ResolvedByStrategy)
	m.conflictsMu.RUnlock()

	m.complexityMu.RLock()
	snapshot.Complexity.BatchesByLevel = copyCounts(m.complexity.BatchesByLevel)
	m.complexityMu.RUnlock()

	m.errorsMu.RLock()
	snapshot.Errors = m.errors
	snapshot.Errors.ErrorsByKind = copyCounts(m.errors.ErrorsByKind)
	m.errorsMu.RUnlock()

	return snapshot
}

// GetSummary reduces the snapshot to the handful of numbers dashboards want.
func (s Snapshot) GetSummary() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds":     s.Uptime.Seconds(),
		"total_operations":   s.Operations.TotalOperations,
		"local_operations":   s.Operations.LocalOperations,
		"remote_operations":  s.Operations.RemoteOperations,
		"conflicts_detected": s.Conflicts.DetectedTotal,
		"conflicts_resolved": s.Conflicts.ResolvedTotal,
		"conflicts_pending":  s.Conflicts.PendingConflicts,
		"total_errors":       s.Errors.TotalErrors,
	}
}

func copyCounts(counts map[string]int64) map[string]int64 {
	copied := make(map[string]int64, len(counts))
	for k, v := range counts {
		copied[k] = v
	}
	return copied
}
