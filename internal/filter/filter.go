package filter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/kea/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the chunk compression algorithm.
type Compression uint8

const (
	// None stores chunks raw.
	None Compression = 0
	// LZ4 favours speed.
	LZ4 Compression = 1
	// Zstd favours ratio.
	Zstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression is the inverse of Compression.String.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	}
	return None, fmt.Errorf("filter: unknown compression %q", s)
}

const headerSize = 8

var (
	// ErrCorrupt is returned for frames whose header is inconsistent with
	// their length or whose payload does not decompress.
	ErrCorrupt = errors.New("filter: corrupt frame")
	// ErrUnknownCompression is returned for an unsupported Compression.
	ErrUnknownCompression = errors.New("filter: unknown compression")
)

// ChecksumMismatchError reports a frame whose stored checksum does not match
// its content.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("filter: checksum mismatch: expected %08x, got %08x", e.Expected, e.Actual)
}

var zstdEncoderPools [zstd.SpeedBestCompression + 1]sync.Pool

var zstdDecoderPool sync.Pool

func zstdLevel(level int) zstd.EncoderLevel {
	if level <= 0 {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(level)
}

func getZstdEncoder(level zstd.EncoderLevel) *zstd.Encoder {
	if v := zstdEncoderPools[level].Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	return enc
}

func putZstdEncoder(level zstd.EncoderLevel, enc *zstd.Encoder) {
	zstdEncoderPools[level].Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	var (
		n   int
		err error
	)
	if level <= 0 {
		var c lz4.Compressor
		n, err = c.CompressBlock(data, dst)
	} else {
		if level > len(lz4Levels) {
			level = len(lz4Levels)
		}
		c := lz4.CompressorHC{Level: lz4Levels[level-1]}
		n, err = c.CompressBlock(data, dst)
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZstd(data []byte, level int) []byte {
	l := zstdLevel(level)
	enc := getZstdEncoder(l)
	defer putZstdEncoder(l, enc)
	return enc.EncodeAll(data, nil)
}

// Encode frames data with the given compression and level. Level 0 selects
// the algorithm's default.
func Encode(data []byte, c Compression, level int) ([]byte, error) {
	var payload []byte

	switch c {
	case None:
	case LZ4:
		if len(data) == 0 {
			break
		}
		compressed, err := compressLZ4(data, level)
		if err != nil {
			return nil, err
		}
		payload = compressed
	case Zstd:
		payload = compressZstd(data, level)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}

	compressedSize := uint32(len(payload))
	if len(payload) == 0 || float64(len(payload)) > float64(len(data))*0.9 {
		payload = data
		compressedSize = 0
	}

	out := make([]byte, headerSize, headerSize+len(payload)+hash.Size)
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], compressedSize)
	out = append(out, payload...)
	return hash.AppendCRC32C(out, out), nil
}

// Decode verifies the frame checksum and returns the decompressed data.
// Raw frames are returned without copying.
func Decode(frame []byte, c Compression) ([]byte, error) {
	body, sum, ok := hash.Split(frame)
	if !ok || len(body) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(frame))
	}
	if actual := hash.CRC32C(body); actual != sum {
		return nil, &ChecksumMismatchError{Expected: sum, Actual: actual}
	}

	uncompressedSize := binary.LittleEndian.Uint32(body[0:])
	compressedSize := binary.LittleEndian.Uint32(body[4:])
	payload := body[headerSize:]

	if compressedSize == 0 {
		if uint32(len(payload)) != uncompressedSize {
			return nil, fmt.Errorf("%w: raw payload %d bytes, header says %d", ErrCorrupt, len(payload), uncompressedSize)
		}
		return payload, nil
	}
	if uint32(len(payload)) != compressedSize {
		return nil, fmt.Errorf("%w: payload %d bytes, header says %d", ErrCorrupt, len(payload), compressedSize)
	}

	out := make([]byte, uncompressedSize)
	switch c {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(payload, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
}
