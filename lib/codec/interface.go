package codec

import (
	"errors"
	"fmt"
)

// ErrNotALink is returned by DecodeLink for values that are not well-formed link nodes.
// Callers treat such values as plain data.
var ErrNotALink = errors.New("codec: not a link")

// --------------------------------------------------------------------------
// Node Types
// --------------------------------------------------------------------------

// NodeType distinguishes plain values from link records stored at the same log position.
type NodeType uint8

const (
	NodeTData NodeType = iota + 1 // Plain user value
	NodeTLink                     // Link record
)

func (nt NodeType) String() string {
	switch nt {
	case NodeTData:
		return "Data"
	case NodeTLink:
		return "Link"
	default:
		return fmt.Sprintf("Unknown(%d)", nt)
	}
}

// LinkRecord marks a path as the mount point of another tree.
type LinkRecord struct {
	Key      string // key of the target tree
	Version  uint64 // pinned version of the target, 0 follows the latest version
	Path     string // sub-path inside the target the mount point maps to ("" = root)
	Name     string // path the record is registered at
	Position uint64 // log length right after the record was written
}

// Pinned reports whether the record refers to a fixed historical version of its target.
func (l LinkRecord) Pinned() bool {
	return l.Version != 0
}

// Node is the envelope of every value written to a base tree.
// Exactly one of Value (for NodeTData) and Link (for NodeTLink) is used.
type Node struct {
	Type  NodeType
	Value []byte
	Link  *LinkRecord
}

// DataNode wraps a plain value.
func DataNode(value []byte) Node {
	return Node{Type: NodeTData, Value: value}
}

// LinkNode wraps a link record.
func LinkNode(link LinkRecord) Node {
	return Node{Type: NodeTLink, Link: &link}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICodec encodes and decodes nodes. Encodings must be deterministic: equal nodes
// always produce equal bytes.
type ICodec interface {
	// Encode serializes a node.
	Encode(node Node) (b []byte, err error)
	// Decode deserializes a node of any type.
	Decode(b []byte) (node Node, err error)
	// DecodeLink deserializes a link node. ErrNotALink is returned for anything else.
	DecodeLink(b []byte) (link LinkRecord, err error)
}

// Implementation names a codec.
type Implementation string

const (
	ImplBinary Implementation = "binary"
	ImplCBOR   Implementation = "cbor"
)

// New returns the codec for the given implementation name.
func New(impl Implementation) (ICodec, error) {
	switch impl {
	case ImplBinary, "":
		return NewBinaryCodec(), nil
	case ImplCBOR:
		return NewCBORCodec()
	default:
		return nil, fmt.Errorf("invalid codec %s", impl)
	}
}

// decodeLink is shared by the implementations of DecodeLink
func decodeLink(c ICodec, b []byte) (LinkRecord, error) {
	node, err := c.Decode(b)
	if err != nil {
		return LinkRecord{}, fmt.Errorf("%w: %v", ErrNotALink, err)
	}
	if node.Type != NodeTLink || node.Link == nil {
		return LinkRecord{}, ErrNotALink
	}
	return *node.Link, nil
}
