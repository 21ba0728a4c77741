package codec

import (
	"encoding/binary"
	"fmt"
)

// NewBinaryCodec creates a new codec using a compact custom binary format
func NewBinaryCodec() ICodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements ICodec.
//
// Layout of a data node: 1 byte node type, N bytes value.
// Layout of a link node: 1 byte node type, 1 byte flags, then
// key (4 byte length + data), name (4 byte length + data) and the
// optional fields version (8 bytes), path (4 byte length + data) and
// position (8 bytes) in that order if their flag is set. All integers are big endian.
type binaryCodecImpl struct {
}

// Bit flags to indicate which optional link fields are present
const (
	hasVersion  byte = 1 << 0
	hasPath     byte = 1 << 1
	hasPosition byte = 1 << 2
	knownFlags       = hasVersion | hasPath | hasPosition
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Encode(node Node) ([]byte, error) {
	switch node.Type {
	case NodeTData:
		result := make([]byte, 1+len(node.Value))
		result[0] = byte(NodeTData)
		copy(result[1:], node.Value)
		return result, nil
	case NodeTLink:
		if node.Link == nil {
			return nil, fmt.Errorf("link node without link record")
		}
		return c.encodeLink(*node.Link), nil
	default:
		return nil, fmt.Errorf("unknown node type %s", node.Type)
	}
}

func (c binaryCodecImpl) encodeLink(link LinkRecord) []byte {
	// Calculate total size needed
	size := 2 + 4 + len(link.Key) + 4 + len(link.Name)
	var flags byte
	if link.Version != 0 {
		flags |= hasVersion
		size += 8
	}
	if link.Path != "" {
		flags |= hasPath
		size += 4 + len(link.Path)
	}
	if link.Position != 0 {
		flags |= hasPosition
		size += 8
	}

	result := make([]byte, size)
	result[0] = byte(NodeTLink)
	result[1] = flags
	pos := 2

	pos = putString(result, pos, link.Key)
	pos = putString(result, pos, link.Name)

	if flags&hasVersion != 0 {
		binary.BigEndian.PutUint64(result[pos:pos+8], link.Version)
		pos += 8
	}
	if flags&hasPath != 0 {
		pos = putString(result, pos, link.Path)
	}
	if flags&hasPosition != 0 {
		binary.BigEndian.PutUint64(result[pos:pos+8], link.Position)
	}
	return result
}

func (c binaryCodecImpl) Decode(data []byte) (Node, error) {
	if len(data) < 1 {
		return Node{}, fmt.Errorf("data too short for node header")
	}

	switch NodeType(data[0]) {
	case NodeTData:
		value := make([]byte, len(data)-1)
		copy(value, data[1:])
		return DataNode(value), nil
	case NodeTLink:
		link, err := c.decodeLink(data)
		if err != nil {
			return Node{}, err
		}
		return LinkNode(link), nil
	default:
		return Node{}, fmt.Errorf("unknown node type %d", data[0])
	}
}

func (c binaryCodecImpl) decodeLink(data []byte) (LinkRecord, error) {
	var link LinkRecord
	if len(data) < 2 {
		return link, fmt.Errorf("data too short for link flags")
	}
	flags := data[1]
	if flags&^knownFlags != 0 {
		return link, fmt.Errorf("unknown link flags %08b", flags)
	}
	pos := 2

	var err error
	if link.Key, pos, err = getString(data, pos, "key"); err != nil {
		return link, err
	}
	if link.Name, pos, err = getString(data, pos, "name"); err != nil {
		return link, err
	}

	if flags&hasVersion != 0 {
		if pos+8 > len(data) {
			return link, fmt.Errorf("data too short for version")
		}
		link.Version = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}
	if flags&hasPath != 0 {
		if link.Path, pos, err = getString(data, pos, "path"); err != nil {
			return link, err
		}
	}
	if flags&hasPosition != 0 {
		if pos+8 > len(data) {
			return link, fmt.Errorf("data too short for position")
		}
		link.Position = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	if pos != len(data) {
		return link, fmt.Errorf("%d trailing bytes after link record", len(data)-pos)
	}
	return link, nil
}

func (c binaryCodecImpl) DecodeLink(data []byte) (LinkRecord, error) {
	return decodeLink(c, data)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// putString writes a length prefixed string at pos and returns the next position
func putString(buf []byte, pos int, s string) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(s)))
	pos += 4
	copy(buf[pos:pos+len(s)], s)
	return pos + len(s)
}

// getString reads a length prefixed string at pos and returns it with the next position
func getString(data []byte, pos int, field string) (string, int, error) {
	if pos+4 > len(data) {
		return "", pos, fmt.Errorf("data too short for %s length", field)
	}
	l := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+l > len(data) {
		return "", pos, fmt.Errorf("data too short for %s data", field)
	}
	return string(data[pos : pos+l]), pos + l, nil
}
