package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize bounds the memory a single frame may expand to. Larger
// payloads are never compressed.
const MaxDecodedSize = 64 << 20

// ErrTooLarge is returned when encoding a payload that could not be
// decoded again within MaxDecodedSize.
var ErrTooLarge = errors.New("codec: payload exceeds zstd decode limit")

// Zstd compresses payloads with zstd. Encoder and decoder are safe for
// concurrent use through EncodeAll/DecodeAll.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var (
	zstdOnce   sync.Once
	zstdShared *Zstd
	zstdErr    error
)

func sharedZstd() (*Zstd, error) {
	zstdOnce.Do(func() {
		zstdShared, zstdErr = NewZstd()
	})
	return zstdShared, zstdErr
}

// NewZstd creates a zstd codec with default compression level.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd: new encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(MaxDecodedSize),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd: new decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// Encoding returns EncodingZstd.
func (z *Zstd) Encoding() Encoding { return EncodingZstd }

// Encode compresses raw into a single zstd frame.
func (z *Zstd) Encode(raw []byte) ([]byte, error) {
	if len(raw) > MaxDecodedSize {
		return nil, ErrTooLarge
	}
	return z.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Decode decompresses a zstd frame.
func (z *Zstd) Decode(encoded []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(encoded, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: decode: %w", err)
	}
	return out, nil
}
