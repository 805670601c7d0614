package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manifestLike struct {
	ID      string            `json:"id"`
	Dims    []uint64          `json:"dims"`
	Attrs   map[string]string `json:"attrs"`
	Written map[string]uint32 `json:"written"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgree(t *testing.T) {
	in := manifestLike{
		ID:      "c0ffee",
		Dims:    []uint64{600, 700},
		Attrs:   map[string]string{"CLASS": "IMAGE"},
		Written: map[string]uint32{"0_0": 42},
	}

	for _, c := range []Codec{JSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Marshal(in)
			require.NoError(t, err)

			var out manifestLike
			require.NoError(t, c.Unmarshal(b, &out))
			assert.Equal(t, in, out)
		})
	}

	// Either codec must read what the other wrote.
	var out manifestLike
	require.NoError(t, JSON{}.Unmarshal(MustMarshal(GoJSON{}, in), &out))
	assert.Equal(t, in, out)
}
