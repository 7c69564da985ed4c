package sync

// OperationType is the closed set of edits a device can make to a proof
// document. Each variant carries two static facts: whether it changes the
// document's shape (structural) or its content (semantic), and which other
// variants it commutes with when both target the same path.
type OperationType string

const (
	OpCreateStatement    OperationType = "CREATE_STATEMENT"
	OpUpdateStatement    OperationType = "UPDATE_STATEMENT"
	OpDeleteStatement    OperationType = "DELETE_STATEMENT"
	OpCreateArgument     OperationType = "CREATE_ARGUMENT"
	OpUpdateArgument     OperationType = "UPDATE_ARGUMENT"
	OpDeleteArgument     OperationType = "DELETE_ARGUMENT"
	OpCreateTree         OperationType = "CREATE_TREE"
	OpDeleteTree         OperationType = "DELETE_TREE"
	OpUpdateTreePosition OperationType = "UPDATE_TREE_POSITION"
	OpCreateConnection   OperationType = "CREATE_CONNECTION"
	OpDeleteConnection   OperationType = "DELETE_CONNECTION"
	OpUpdateMetadata     OperationType = "UPDATE_METADATA"
)

var allOperationTypes = map[OperationType]struct{}{
	OpCreateStatement:    {},
	OpUpdateStatement:    {},
	OpDeleteStatement:    {},
	OpCreateArgument:     {},
	OpUpdateArgument:     {},
	OpDeleteArgument:     {},
	OpCreateTree:         {},
	OpDeleteTree:         {},
	OpUpdateTreePosition: {},
	OpCreateConnection:   {},
	OpDeleteConnection:   {},
	OpUpdateMetadata:     {},
}

// Valid reports whether t is a known operation type.
func (t OperationType) Valid() bool {
	_, ok := allOperationTypes[t]
	return ok
}

// IsSemantic reports whether the operation changes document content rather
// than shape.
func (t OperationType) IsSemantic() bool {
	switch t {
	case OpUpdateStatement, OpUpdateArgument, OpUpdateMetadata:
		return true
	}
	return false
}

// IsStructural reports whether the operation changes the document's shape.
func (t OperationType) IsStructural() bool {
	return t.Valid() && !t.IsSemantic()
}

// IsDeletion reports whether the operation removes a node from the document.
func (t OperationType) IsDeletion() bool {
	switch t {
	case OpDeleteStatement, OpDeleteArgument, OpDeleteTree, OpDeleteConnection:
		return true
	}
	return false
}

// samePathCommutes lists operation type pairs that can be reordered freely
// even when both act on the same target path. Pairs are stored in one
// direction; CommutesWith checks both. Deletions never commute, and two
// edits of the same kind on the same node never commute.
var samePathCommutes = map[[2]OperationType]struct{}{
	{OpUpdateTreePosition, OpUpdateStatement}: {},
	{OpUpdateTreePosition, OpUpdateArgument}:  {},
	{OpUpdateTreePosition, OpUpdateMetadata}:  {},
	{OpUpdateTreePosition, OpCreateConnection}: {},
	{OpUpdateMetadata, OpUpdateStatement}:      {},
	{OpUpdateMetadata, OpUpdateArgument}:       {},
	{OpUpdateMetadata, OpCreateConnection}:     {},
}

// CommutesWith reports whether operations of types t and other can be merged
// order-independently. Operations on disjoint paths always commute; same-path
// pairs commute only per the table above.
func (t OperationType) CommutesWith(other OperationType, samePath bool) bool {
	if !samePath {
		return true
	}
	if t.IsDeletion() || other.IsDeletion() {
		return false
	}
	if _, ok := samePathCommutes[[2]OperationType{t, other}]; ok {
		return true
	}
	_, ok := samePathCommutes[[2]OperationType{other, t}]
	return ok
}
