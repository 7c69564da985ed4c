package sync

import (
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/proof-collab/proof-sync/internal/monitoring"
	"github.com/proof-collab/proof-sync/internal/observability"
)

// Messenger sends operations to remote replicas. The transport behind it is
// out of scope for the engine.
type Messenger interface {
	BroadcastOperation(op *Operation) error
	RequestStateSync(deviceID DeviceID) error
}

// OperationStore persists the operation log and sync state between runs.
type OperationStore interface {
	AppendOperation(op *Operation) error
	SaveSyncState(state *SyncState) error
}

// Engine coordinates local edits and remote batches for one document: it
// orders incoming operations, detects conflicts, auto-resolves what policy
// allows, applies results to the document aggregate, and tracks conflicts
// awaiting a user decision. All whole-batch calls are serialized per engine,
// as the convergence contract requires.
type Engine struct {
	deviceID    DeviceID
	coordinator *CoordinationService
	transformer *TransformationService
	resolver    *ResolutionService
	analyzer    *ComplexityAnalyzer
	store       OperationStore
	messenger   Messenger
	logger      *observability.Logger
	metrics     *monitoring.Metrics

	mu       stdsync.Mutex
	clock    VectorClock
	state    *SyncState
	document DocumentState
	pending  map[string]*Conflict
}

// NewEngine creates an engine for one replica and document. messenger and
// metrics may be nil for replicas that work fully offline or unobserved.
func NewEngine(deviceID DeviceID, document DocumentState, store OperationStore, messenger Messenger, logger *observability.Logger, metrics *monitoring.Metrics) (*Engine, error) {
	if deviceID == "" {
		return nil, newValidationError("device ID cannot be empty")
	}
	if document == nil {
		return nil, newValidationError("document state cannot be nil")
	}
	state, err := NewSyncState(deviceID)
	if err != nil {
		return nil, err
	}
	transformer := NewTransformationService()
	return &Engine{
		deviceID:    deviceID,
		coordinator: NewCoordinationService(),
		transformer: transformer,
		resolver:    NewResolutionService(transformer),
		analyzer:    NewComplexityAnalyzer(),
		store:       store,
		messenger:   messenger,
		logger:      logger.WithDeviceID(deviceID.String()),
		metrics:     metrics,
		clock:       NewVectorClockForDevice(deviceID),
		state:       state,
		document:    document,
		pending:     map[string]*Conflict{},
	}, nil
}

// SubmitLocalOperation records a local edit: it advances the local clock,
// builds the operation, applies it to the document, persists it, and
// broadcasts it to peers.
func (e *Engine) SubmitLocalOperation(opType OperationType, targetPath string, payload OperationPayload, parent *OperationID) (*Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nextClock := e.clock.Increment(e.deviceID)
	op, err := NewOperation(NewOperationID(e.deviceID), e.deviceID, opType, targetPath, payload, nextClock, parent)
	if err != nil {
		return nil, err
	}

	updated, err := op.ApplyTo(e.document)
	if err != nil {
		return nil, fmt.Errorf("failed to apply local operation: %w", err)
	}

	if e.store != nil {
		if err := e.store.AppendOperation(op); err != nil {
			return nil, fmt.Errorf("failed to persist local operation: %w", err)
		}
	}

	e.clock = nextClock
	e.document = updated
	e.state = e.state.WithLocalClock(nextClock)

	if e.metrics != nil {
		e.metrics.RecordOperation(string(opType), true)
	}
	e.logger.Debug("Local operation applied",
		zap.String("operation_id", op.ID.String()),
		zap.String("operation_type", string(opType)),
		zap.String("target_path", targetPath))

	if e.messenger != nil {
		if err := e.messenger.BroadcastOperation(op); err != nil {
			e.logger.Warn("Failed to broadcast operation",
				zap.String("operation_id", op.ID.String()), zap.Error(err))
		}
	}
	return op, nil
}

// HandleRemoteOperations processes a complete batch of operations received
// from remote replicas. It returns the conflicts that could not be resolved
// automatically; these stay pending until ResolveConflict is called.
func (e *Engine) HandleRemoteOperations(ops []*Operation) ([]*Conflict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ops) == 0 {
		return nil, nil
	}

	e.state = e.state.BeginSync().WithPendingOperations(len(ops))

	complexity := e.analyzer.Classify(ops)
	if e.metrics != nil {
		e.metrics.RecordBatchComplexity(string(complexity))
		e.metrics.RecordEstimatedTransformTime(e.analyzer.EstimateTransformationTime(ops))
	}
	if complexity == ComplexityIntractable {
		for _, reason := range e.analyzer.IdentifyBottlenecks(ops) {
			e.logger.Warn("Intractable batch bottleneck", zap.String("reason", reason))
		}
	}

	ordered, err := e.coordinator.OrderOperations(ops)
	if err != nil {
		e.state = e.state.MarkError(err.Error())
		return nil, err
	}

	conflicts := e.coordinator.DetectConflicts(ordered)
	conflicted := make(map[OperationID]struct{})
	for _, conflict := range conflicts {
		for _, op := range conflict.Operations {
			conflicted[op.ID] = struct{}{}
		}
	}

	// Conflict-free operations converge through sequence transformation.
	clean := make([]*Operation, 0, len(ordered))
	for _, op := range ordered {
		if _, ok := conflicted[op.ID]; !ok {
			clean = append(clean, op)
		}
	}
	transformStart := time.Now()
	transformed, err := e.transformer.TransformOperationSequence(clean)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError("transform")
		}
		e.state = e.state.MarkError(err.Error())
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordTransformDuration(time.Since(transformStart))
	}
	for _, op := range transformed {
		if err := e.applyLocked(op); err != nil {
			e.state = e.state.MarkError(err.Error())
			return nil, err
		}
	}

	var unresolved []*Conflict
	for _, conflict := range conflicts {
		if e.metrics != nil {
			e.metrics.RecordConflictDetected(string(conflict.Type))
		}
		if !e.resolver.CanResolveAutomatically(conflict) {
			e.pending[conflict.ID] = conflict
			unresolved = append(unresolved, conflict)
			e.logger.Info("Conflict requires user decision",
				zap.String("conflict_id", conflict.ID),
				zap.String("conflict_type", string(conflict.Type)),
				zap.String("target_path", conflict.TargetPath))
			continue
		}
		resolveStart := time.Now()
		resolution, err := e.resolver.ResolveConflictAutomatically(conflict)
		if err != nil {
			if e.metrics != nil {
				e.metrics.RecordError("resolution")
			}
			e.state = e.state.MarkError(err.Error())
			return nil, err
		}
		if resolution.ResolvedOperation != nil {
			if err := e.applyLocked(resolution.ResolvedOperation); err != nil {
				e.state = e.state.MarkError(err.Error())
				return nil, err
			}
		}
		if e.metrics != nil {
			e.metrics.RecordConflictResolved(string(resolution.Strategy))
			e.metrics.RecordResolutionDuration(time.Since(resolveStart))
		}
	}

	for _, op := range ordered {
		e.clock = e.clock.Merge(op.VectorClock)
		if op.DeviceID != e.deviceID {
			e.state = e.state.WithPeer(op.DeviceID, op.VectorClock, time.Now())
		}
	}

	e.state = e.state.
		WithLocalClock(e.clock).
		WithPendingOperations(0).
		WithConflictCount(len(e.pending)).
		CompleteSync(time.Now())

	if e.store != nil {
		if err := e.store.SaveSyncState(e.state); err != nil {
			e.logger.Warn("Failed to persist sync state", zap.Error(err))
		}
	}
	return unresolved, nil
}

// ResolveConflict resolves one pending conflict with an explicit strategy.
// A user-supplied payload replaces the conflicting content verbatim.
func (e *Engine) ResolveConflict(conflictID string, strategy ResolutionStrategy, userInput interface{}) (*Resolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	conflict, ok := e.pending[conflictID]
	if !ok {
		return nil, newConflictResolutionError("no pending conflict with ID %s", conflictID)
	}
	resolveStart := time.Now()

	resolution, err := e.resolver.ResolveConflictWithUserInput(conflict, strategy, userInput)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError("resolution")
		}
		return nil, err
	}

	resolved := resolution.ResolvedOperation
	if resolved == nil {
		// User decisions carry the final payload verbatim; apply it through
		// the latest conflicting operation's identity.
		payload, ok := toPayload(resolution.ResolvedValue)
		if !ok {
			return nil, newConflictResolutionError(
				"user input for conflict %s is not an operation payload", conflictID)
		}
		base, err := e.resolver.applyLastWriterWins(conflict.Operations)
		if err != nil {
			return nil, err
		}
		resolved = &Operation{
			ID:                base.ID,
			DeviceID:          base.DeviceID,
			Type:              base.Type,
			TargetPath:        base.TargetPath,
			Payload:           payload,
			VectorClock:       mergedClock(conflict.Operations),
			ParentOperationID: base.ParentOperationID,
		}
	}

	if err := e.applyLocked(resolved); err != nil {
		return nil, err
	}

	delete(e.pending, conflictID)
	e.clock = e.clock.Merge(resolved.VectorClock)
	e.state = e.state.
		WithLocalClock(e.clock).
		WithConflictCount(len(e.pending))

	if e.metrics != nil {
		e.metrics.RecordConflictResolved(string(strategy))
		e.metrics.RecordResolutionDuration(time.Since(resolveStart))
	}
	if e.store != nil {
		if err := e.store.SaveSyncState(e.state); err != nil {
			e.logger.Warn("Failed to persist sync state", zap.Error(err))
		}
	}
	e.logger.Info("Conflict resolved",
		zap.String("conflict_id", conflictID),
		zap.String("strategy", string(strategy)))
	return resolution, nil
}

// PendingConflicts returns the conflicts awaiting a user decision.
func (e *Engine) PendingConflicts() []*Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()

	conflicts := make([]*Conflict, 0, len(e.pending))
	for _, conflict := range e.pending {
		conflicts = append(conflicts, conflict)
	}
	return conflicts
}

// State returns the current sync state snapshot.
func (e *Engine) State() *SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Document returns the current document state.
func (e *Engine) Document() DocumentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.document
}

func (e *Engine) applyLocked(op *Operation) error {
	updated, err := op.ApplyTo(e.document)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError("apply")
		}
		return fmt.Errorf("failed to apply operation %s: %w", op.ID, err)
	}
	e.document = updated
	if e.store != nil {
		if err := e.store.AppendOperation(op); err != nil {
			return fmt.Errorf("failed to persist operation %s: %w", op.ID, err)
		}
	}
	if e.metrics != nil {
		e.metrics.RecordOperation(string(op.Type), op.DeviceID == e.deviceID)
		e.metrics.RecordPayloadSize(int64(op.Payload.Size()))
	}
	return nil
}

func toPayload(value interface{}) (OperationPayload, bool) {
	switch v := value.(type) {
	case OperationPayload:
		return v, true
	case map[string]interface{}:
		return OperationPayload(v), true
	}
	return nil, false
}
