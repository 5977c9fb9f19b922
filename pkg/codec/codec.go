package codec

import (
	"errors"
	"fmt"
)

// Encoding identifies a content encoding as persisted with a node.
type Encoding string

const (
	// EncodingIdentity stores the payload unchanged.
	EncodingIdentity Encoding = ""

	// EncodingZstd stores the payload as a zstd frame.
	EncodingZstd Encoding = "zstd"
)

// ErrUnknownEncoding is returned for an encoding name with no codec.
var ErrUnknownEncoding = errors.New("codec: unknown encoding")

// Codec transforms payload bytes for storage.
type Codec interface {
	// Encoding returns the persisted encoding name.
	Encoding() Encoding

	// Encode wraps raw payload bytes.
	Encode(raw []byte) ([]byte, error)

	// Decode restores raw payload bytes.
	Decode(encoded []byte) ([]byte, error)
}

// NewWithType returns the codec for the given encoding.
func NewWithType(enc Encoding) (Codec, error) {
	switch enc {
	case EncodingIdentity:
		return Identity{}, nil
	case EncodingZstd:
		z, err := sharedZstd()
		if err != nil {
			return nil, err
		}
		return z, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, string(enc))
	}
}

// Parse converts a configuration value into an Encoding.
// "none" and "identity" are accepted as aliases for the identity encoding.
func Parse(s string) (Encoding, error) {
	switch s {
	case "", "none", "identity":
		return EncodingIdentity, nil
	case string(EncodingZstd):
		return EncodingZstd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// Decode restores raw bytes written with the named encoding.
func Decode(enc Encoding, data []byte) ([]byte, error) {
	c, err := NewWithType(enc)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

// Compact encodes raw with c and keeps the result only when it is not
// larger than the input. Payloads above MaxDecodedSize stay unencoded so
// they can always be read back. It returns the bytes to store and the
// encoding they carry.
func Compact(c Codec, raw []byte) ([]byte, Encoding, error) {
	if c == nil || c.Encoding() == EncodingIdentity || len(raw) > MaxDecodedSize {
		return raw, EncodingIdentity, nil
	}
	encoded, err := c.Encode(raw)
	if err != nil {
		return nil, "", err
	}
	if len(encoded) <= len(raw) {
		return encoded, c.Encoding(), nil
	}
	return raw, EncodingIdentity, nil
}

// Identity is the no-op codec.
type Identity struct{}

// Encoding returns EncodingIdentity.
func (Identity) Encoding() Encoding { return EncodingIdentity }

// Encode returns raw unchanged.
func (Identity) Encode(raw []byte) ([]byte, error) { return raw, nil }

// Decode returns encoded unchanged.
func (Identity) Decode(encoded []byte) ([]byte, error) { return encoded, nil }
