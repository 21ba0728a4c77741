package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func(t *testing.T) ICodec{
	"Binary": func(t *testing.T) ICodec { return NewBinaryCodec() },
	"CBOR": func(t *testing.T) ICodec {
		c, err := NewCBORCodec()
		require.NoError(t, err)
		return c
	},
}

func TestNodes(t *testing.T) {
	links := []LinkRecord{
		{Key: "feed", Name: "/mt1"},
		{Key: "feed", Name: "/mt1", Version: 7, Path: "/sub/dir", Position: 42},
		{Key: "", Name: ""},
	}

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory(t)

			for _, link := range links {
				b, err := c.Encode(LinkNode(link))
				require.NoError(t, err)

				decoded, err := c.DecodeLink(b)
				require.NoError(t, err)
				assert.Equal(t, link, decoded)

				node, err := c.Decode(b)
				require.NoError(t, err)
				assert.Equal(t, NodeTLink, node.Type)
			}

			b, err := c.Encode(DataNode([]byte("there")))
			require.NoError(t, err)
			node, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, NodeTData, node.Type)
			assert.Equal(t, []byte("there"), node.Value)

			b, err = c.Encode(DataNode(nil))
			require.NoError(t, err)
			node, err = c.Decode(b)
			require.NoError(t, err)
			assert.Empty(t, node.Value)
		})
	}
}

func TestNotALink(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory(t)

			data, err := c.Encode(DataNode([]byte("plain")))
			require.NoError(t, err)

			inputs := [][]byte{
				data,
				nil,
				{0xff, 0x00, 0x01},
				[]byte("definitely not a link"),
			}
			for _, in := range inputs {
				_, err := c.DecodeLink(in)
				assert.ErrorIs(t, err, ErrNotALink, "input %q", in)
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	link := LinkRecord{Key: "k", Name: "/a", Version: 3, Path: "/p", Position: 9}

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory(t)
			first, err := c.Encode(LinkNode(link))
			require.NoError(t, err)
			second, err := c.Encode(LinkNode(link))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestBinaryRejectsTruncatedLink(t *testing.T) {
	c := NewBinaryCodec()
	b, err := c.Encode(LinkNode(LinkRecord{Key: "key", Name: "/name", Version: 1}))
	require.NoError(t, err)

	for i := 1; i < len(b); i++ {
		_, err := c.DecodeLink(b[:i])
		assert.ErrorIs(t, err, ErrNotALink, "prefix of length %d", i)
	}

	_, err = c.DecodeLink(append(b, 0x00))
	assert.ErrorIs(t, err, ErrNotALink)
}

func TestEncodeRejectsInvalidNodes(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory(t)
			_, err := c.Encode(Node{Type: NodeTLink})
			assert.Error(t, err)
			_, err = c.Encode(Node{Type: NodeType(99)})
			assert.Error(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	for _, impl := range []Implementation{"", ImplBinary, ImplCBOR} {
		c, err := New(impl)
		require.NoError(t, err)
		require.NotNil(t, c)
	}
	_, err := New("json")
	require.Error(t, err)
}
