package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/proof-collab/proof-sync/internal/compression"
	"github.com/proof-collab/proof-sync/internal/hashing"
	"github.com/proof-collab/proof-sync/internal/sync"
)

// Store is the SQLite-backed operation log. Payloads above the configured
// threshold are compressed before insert; checksums are computed over the
// uncompressed payload and re-verified on load.
type Store struct {
	db         *DB
	compressor compression.Compressor
	threshold  int
}

// NewStore creates an operation log store. compressor may be nil to disable
// payload compression entirely.
func NewStore(db *DB, compressor compression.Compressor, threshold int) *Store {
	return &Store{db: db, compressor: compressor, threshold: threshold}
}

// AppendOperation persists one operation to the log. Re-appending an
// operation already in the log is a no-op, so replayed batches stay
// idempotent.
func (s *Store) AppendOperation(op *sync.Operation) error {
	clockJSON, err := json.Marshal(op.VectorClock)
	if err != nil {
		return fmt.Errorf("failed to encode vector clock: %w", err)
	}

	var payload []byte
	if op.Payload != nil {
		payload, err = json.Marshal(op.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
	}

	originalSize := len(payload)
	checksum := ""
	if originalSize > 0 {
		checksum = hashing.HashString(payload)
	}

	compressed := false
	algorithm := ""
	if s.compressor != nil && s.compressor.Algorithm() != "none" && originalSize >= s.threshold && s.threshold > 0 {
		blob, cerr := s.compressor.Compress(payload)
		if cerr != nil {
			return fmt.Errorf("failed to compress payload: %w", cerr)
		}
		if len(blob) < originalSize {
			payload = blob
			compressed = true
			algorithm = s.compressor.Algorithm()
		}
	}

	var parent sql.NullString
	if op.ParentOperationID != nil {
		parent = sql.NullString{String: string(*op.ParentOperationID), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO operations
			(operation_id, device_id, operation_type, target_path, vector_clock,
			 parent_operation_id, payload, payload_size, payload_checksum,
			 compressed, compression_algorithm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(op.ID), string(op.DeviceID), string(op.Type), op.TargetPath,
		string(clockJSON), parent, payload, originalSize, checksum,
		boolToInt(compressed), algorithm)
	if err != nil {
		return fmt.Errorf("failed to insert operation %s: %w", op.ID, err)
	}
	return nil
}

// GetOperation loads one operation by ID. Returns sql.ErrNoRows when absent.
func (s *Store) GetOperation(id sync.OperationID) (*sync.Operation, error) {
	row := s.db.QueryRow(`
		SELECT operation_id, device_id, operation_type, target_path, vector_clock,
		       parent_operation_id, payload, payload_size, payload_checksum,
		       compressed, compression_algorithm
		FROM operations WHERE operation_id = ?`, string(id))
	return s.scanOperation(rowScanner{row})
}

// OperationsByPath returns all logged operations touching one target path,
// in log order.
func (s *Store) OperationsByPath(targetPath string) ([]*sync.Operation, error) {
	rows, err := s.db.Query(`
		SELECT operation_id, device_id, operation_type, target_path, vector_clock,
		       parent_operation_id, payload, payload_size, payload_checksum,
		       compressed, compression_algorithm
		FROM operations WHERE target_path = ? ORDER BY sequence`, targetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations by path: %w", err)
	}
	defer rows.Close()
	return s.scanOperations(rows)
}

// UnacknowledgedOperations returns operations not yet confirmed by all
// replicas, in log order.
func (s *Store) UnacknowledgedOperations() ([]*sync.Operation, error) {
	rows, err := s.db.Query(`
		SELECT operation_id, device_id, operation_type, target_path, vector_clock,
		       parent_operation_id, payload, payload_size, payload_checksum,
		       compressed, compression_algorithm
		FROM operations WHERE acknowledged = 0 ORDER BY sequence`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unacknowledged operations: %w", err)
	}
	defer rows.Close()
	return s.scanOperations(rows)
}

// MarkOperationAcknowledged flags an operation as confirmed by all replicas.
func (s *Store) MarkOperationAcknowledged(id sync.OperationID) error {
	result, err := s.db.Exec(`UPDATE operations SET acknowledged = 1 WHERE operation_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to acknowledge operation %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check acknowledge result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("operation %s not found", id)
	}
	return nil
}

// CompactLog removes acknowledged operations, keeping the most recent
// keepCount as a replay window. Returns the number of rows removed.
func (s *Store) CompactLog(keepCount int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM operations
		WHERE acknowledged = 1 AND sequence NOT IN (
			SELECT sequence FROM operations ORDER BY sequence DESC LIMIT ?
		)`, keepCount)
	if err != nil {
		return 0, fmt.Errorf("failed to compact operation log: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count compacted rows: %w", err)
	}
	return removed, nil
}

// OperationCount returns the current log length.
func (s *Store) OperationCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM operations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type rowScanner struct {
	row *sql.Row
}

func (r rowScanner) Scan(dest ...interface{}) error {
	return r.row.Scan(dest...)
}

func (s *Store) scanOperations(rows *sql.Rows) ([]*sync.Operation, error) {
	var ops []*sync.Operation
	for rows.Next() {
		op, err := s.scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	return ops, nil
}

func (s *Store) scanOperation(sc scanner) (*sync.Operation, error) {
	var (
		id, deviceID, opType, targetPath, clockJSON string
		parent                                      sql.NullString
		payload                                     []byte
		payloadSize                                 int
		checksum                                    sql.NullString
		compressedInt                               int
		algorithm                                   sql.NullString
	)
	if err := sc.Scan(&id, &deviceID, &opType, &targetPath, &clockJSON,
		&parent, &payload, &payloadSize, &checksum, &compressedInt, &algorithm); err != nil {
		return nil, err
	}

	var clock sync.VectorClock
	if err := json.Unmarshal([]byte(clockJSON), &clock); err != nil {
		return nil, fmt.Errorf("failed to decode vector clock for %s: %w", id, err)
	}

	if compressedInt != 0 {
		dec, err := compression.NewCompressor(algorithm.String, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to decode payload for %s: %w", id, err)
		}
		payload, err = dec.Decompress(payload, payloadSize)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload for %s: %w", id, err)
		}
	}
	if len(payload) > 0 && checksum.Valid && checksum.String != "" {
		if !hashing.Verify(payload, checksum.String) {
			return nil, fmt.Errorf("payload checksum mismatch for operation %s", id)
		}
	}

	var opPayload sync.OperationPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &opPayload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for %s: %w", id, err)
		}
	}

	var parentID *sync.OperationID
	if parent.Valid {
		p := sync.OperationID(parent.String)
		parentID = &p
	}

	return &sync.Operation{
		ID:                sync.OperationID(id),
		DeviceID:          sync.DeviceID(deviceID),
		Type:              sync.OperationType(opType),
		TargetPath:        targetPath,
		Payload:           opPayload,
		VectorClock:       clock,
		ParentOperationID: parentID,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
