package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("kea raster chunk "), 500)
	noisy := make([]byte, 1000)
	for i := range noisy {
		noisy[i] = byte(i * 17 % 251)
	}

	tests := []struct {
		name  string
		c     Compression
		level int
	}{
		{"none", None, 0},
		{"lz4", LZ4, 0},
		{"lz4-hc", LZ4, 9},
		{"zstd", Zstd, 0},
		{"zstd-1", Zstd, 1},
		{"zstd-19", Zstd, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, data := range [][]byte{compressible, noisy, {}} {
				frame, err := Encode(data, tt.c, tt.level)
				require.NoError(t, err)

				got, err := Decode(frame, tt.c)
				require.NoError(t, err)
				assert.Equal(t, len(data), len(got))
				if len(data) > 0 {
					assert.Equal(t, data, got)
				}
			}
		})
	}
}

func TestEncode_Compresses(t *testing.T) {
	data := bytes.Repeat([]byte("hello world! "), 1000)

	for _, c := range []Compression{LZ4, Zstd} {
		frame, err := Encode(data, c, 0)
		require.NoError(t, err)
		assert.Less(t, len(frame), len(data)/2, c.String())
		assert.NotZero(t, binary.LittleEndian.Uint32(frame[4:]))
	}
}

func TestEncode_RawFallback(t *testing.T) {
	data := []byte("tiny")

	frame, err := Encode(data, Zstd, 0)
	require.NoError(t, err)
	assert.Zero(t, binary.LittleEndian.Uint32(frame[4:]), "short input is stored raw")
	assert.Len(t, frame, headerSize+len(data)+4)
}

func TestDecode_ChecksumMismatch(t *testing.T) {
	frame, err := Encode(bytes.Repeat([]byte{7}, 256), LZ4, 0)
	require.NoError(t, err)

	frame[headerSize] ^= 0xFF

	_, err = Decode(frame, LZ4)
	var mismatch *ChecksumMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.NotEqual(t, mismatch.Expected, mismatch.Actual)
}

func TestDecode_Truncated(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, None)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{None, LZ4, Zstd} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("deflate")
	assert.Error(t, err)
}
