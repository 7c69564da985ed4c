// Package document provides the in-memory proof document aggregate that
// operations are applied against. The sync core only sees it through the
// sync.DocumentState boundary.
package document

import (
	"fmt"
	"strings"

	"github.com/proof-collab/proof-sync/internal/sync"
)

// NodeKind is the kind of node living at a target path.
type NodeKind string

const (
	KindStatement  NodeKind = "statement"
	KindArgument   NodeKind = "argument"
	KindTree       NodeKind = "tree"
	KindConnection NodeKind = "connection"
)

// Node is one addressable element of the proof document.
type Node struct {
	Path   string
	Kind   NodeKind
	Fields map[string]interface{}
}

// Document is an immutable snapshot of the proof document: applying an
// operation returns a new snapshot and leaves the original untouched.
type Document struct {
	nodes map[string]Node
}

// New creates an empty document.
func New() *Document {
	return &Document{nodes: map[string]Node{}}
}

// Apply implements sync.DocumentState. It returns the updated document, or a
// domain error when the operation's target path is invalid for its type.
func (d *Document) Apply(op *sync.Operation) (sync.DocumentState, error) {
	switch op.Type {
	case sync.OpCreateStatement:
		return d.create(op, KindStatement)
	case sync.OpCreateArgument:
		return d.create(op, KindArgument)
	case sync.OpCreateTree:
		return d.create(op, KindTree)
	case sync.OpCreateConnection:
		return d.create(op, KindConnection)
	case sync.OpUpdateStatement, sync.OpUpdateArgument, sync.OpUpdateMetadata, sync.OpUpdateTreePosition:
		return d.update(op)
	case sync.OpDeleteStatement, sync.OpDeleteArgument, sync.OpDeleteTree, sync.OpDeleteConnection:
		return d.delete(op)
	default:
		return nil, fmt.Errorf("document cannot apply operation type %s", op.Type)
	}
}

// Node returns the node at the given path, if any.
func (d *Document) Node(path string) (Node, bool) {
	node, ok := d.nodes[path]
	return node, ok
}

// Len returns the number of nodes in the document.
func (d *Document) Len() int {
	return len(d.nodes)
}

func (d *Document) create(op *sync.Operation, kind NodeKind) (sync.DocumentState, error) {
	if _, exists := d.nodes[op.TargetPath]; exists {
		return nil, fmt.Errorf("cannot create %s: path %s already exists", kind, op.TargetPath)
	}
	next := d.clone()
	next.nodes[op.TargetPath] = Node{
		Path:   op.TargetPath,
		Kind:   kind,
		Fields: copyFields(op.Payload),
	}
	return next, nil
}

func (d *Document) update(op *sync.Operation) (sync.DocumentState, error) {
	node, exists := d.nodes[op.TargetPath]
	if !exists {
		return nil, fmt.Errorf("cannot update: path %s does not exist", op.TargetPath)
	}
	fields := make(map[string]interface{}, len(node.Fields)+len(op.Payload))
	for k, v := range node.Fields {
		fields[k] = v
	}
	for k, v := range op.Payload {
		fields[k] = v
	}
	next := d.clone()
	next.nodes[op.TargetPath] = Node{Path: node.Path, Kind: node.Kind, Fields: fields}
	return next, nil
}

func (d *Document) delete(op *sync.Operation) (sync.DocumentState, error) {
	if _, exists := d.nodes[op.TargetPath]; !exists {
		return nil, fmt.Errorf("cannot delete: path %s does not exist", op.TargetPath)
	}
	next := d.clone()
	delete(next.nodes, op.TargetPath)
	// Deleting a subtree removes everything addressed beneath it.
	prefix := op.TargetPath + "/"
	for path := range next.nodes {
		if strings.HasPrefix(path, prefix) {
			delete(next.nodes, path)
		}
	}
	return next, nil
}

func (d *Document) clone() *Document {
	nodes := make(map[string]Node, len(d.nodes))
	for path, node := range d.nodes {
		nodes[path] = node
	}
	return &Document{nodes: nodes}
}

func copyFields(payload sync.OperationPayload) map[string]interface{} {
	fields := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		fields[k] = v
	}
	return fields
}
