package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborNode is the wire form of a Node
type cborNode struct {
	Type  NodeType  `cbor:"1,keyasint"`
	Value []byte    `cbor:"2,keyasint,omitempty"`
	Link  *cborLink `cbor:"3,keyasint,omitempty"`
}

type cborLink struct {
	Key      string `cbor:"1,keyasint"`
	Name     string `cbor:"2,keyasint"`
	Version  uint64 `cbor:"3,keyasint,omitempty"`
	Path     string `cbor:"4,keyasint,omitempty"`
	Position uint64 `cbor:"5,keyasint,omitempty"`
}

// cborCodecImpl implements ICodec with core deterministic CBOR (RFC 8949 section 4.2.1)
type cborCodecImpl struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec creates a new codec using deterministic CBOR
func NewCBORCodec() (ICodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &cborCodecImpl{enc: enc, dec: dec}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c *cborCodecImpl) Encode(node Node) ([]byte, error) {
	wire := cborNode{Type: node.Type}
	switch node.Type {
	case NodeTData:
		wire.Value = node.Value
	case NodeTLink:
		if node.Link == nil {
			return nil, fmt.Errorf("link node without link record")
		}
		wire.Link = &cborLink{
			Key:      node.Link.Key,
			Name:     node.Link.Name,
			Version:  node.Link.Version,
			Path:     node.Link.Path,
			Position: node.Link.Position,
		}
	default:
		return nil, fmt.Errorf("unknown node type %s", node.Type)
	}
	return c.enc.Marshal(wire)
}

func (c *cborCodecImpl) Decode(data []byte) (Node, error) {
	var wire cborNode
	if err := c.dec.Unmarshal(data, &wire); err != nil {
		return Node{}, err
	}

	switch wire.Type {
	case NodeTData:
		if wire.Link != nil {
			return Node{}, fmt.Errorf("data node carries a link record")
		}
		if wire.Value == nil {
			wire.Value = []byte{}
		}
		return DataNode(wire.Value), nil
	case NodeTLink:
		if wire.Link == nil {
			return Node{}, fmt.Errorf("link node without link record")
		}
		return LinkNode(LinkRecord{
			Key:      wire.Link.Key,
			Name:     wire.Link.Name,
			Version:  wire.Link.Version,
			Path:     wire.Link.Path,
			Position: wire.Link.Position,
		}), nil
	default:
		return Node{}, fmt.Errorf("unknown node type %d", wire.Type)
	}
}

func (c *cborCodecImpl) DecodeLink(data []byte) (LinkRecord, error) {
	return decodeLink(c, data)
}
