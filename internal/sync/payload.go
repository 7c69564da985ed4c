package sync

import "encoding/json"

// OperationPayload carries the data for one operation. Its shape must match
// the operation's type (validated at construction); beyond that the core
// treats it as opaque. Payloads are never mutated in place: Clone and
// MergedWith return new maps.
type OperationPayload map[string]interface{}

// ValidatePayload checks that a payload has the shape required by the given
// operation type.
func ValidatePayload(opType OperationType, payload OperationPayload) error {
	if !opType.Valid() {
		return newValidationError("unknown operation type %q", opType)
	}

	switch opType {
	case OpCreateStatement, OpUpdateStatement:
		if err := requireString(payload, "content"); err != nil {
			return err
		}
	case OpCreateArgument, OpUpdateArgument:
		if err := requireString(payload, "conclusion"); err != nil {
			return err
		}
	case OpUpdateTreePosition:
		if err := requireNumber(payload, "x"); err != nil {
			return err
		}
		if err := requireNumber(payload, "y"); err != nil {
			return err
		}
	case OpCreateConnection:
		if err := requireString(payload, "sourceId"); err != nil {
			return err
		}
		if err := requireString(payload, "targetId"); err != nil {
			return err
		}
	case OpUpdateMetadata:
		if err := requireString(payload, "key"); err != nil {
			return err
		}
		if _, ok := payload["value"]; !ok {
			return newValidationError("payload for %s is missing field %q", opType, "value")
		}
	}
	// Deletions and tree creation carry no required fields.
	return nil
}

func requireString(payload OperationPayload, field string) error {
	value, ok := payload[field]
	if !ok {
		return newValidationError("payload is missing field %q", field)
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return newValidationError("payload field %q must be a non-empty string", field)
	}
	return nil
}

func requireNumber(payload OperationPayload, field string) error {
	value, ok := payload[field]
	if !ok {
		return newValidationError("payload is missing field %q", field)
	}
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return nil
	}
	return newValidationError("payload field %q must be a number", field)
}

// Clone returns a shallow copy of the payload.
func (p OperationPayload) Clone() OperationPayload {
	if p == nil {
		return nil
	}
	clone := make(OperationPayload, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// MergedWith returns a new payload combining p with other field by field;
// fields from other overwrite fields of p. This is a shallow combine: nested
// values are replaced wholesale, not merged.
func (p OperationPayload) MergedWith(other OperationPayload) OperationPayload {
	merged := p.Clone()
	if merged == nil {
		merged = OperationPayload{}
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Size returns the payload's encoded size in bytes, used by the complexity
// analyzer and the log store's compression threshold.
func (p OperationPayload) Size() int {
	if len(p) == 0 {
		return 0
	}
	data, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return len(data)
}
