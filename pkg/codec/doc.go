// Package codec provides the content encodings applied to stored payloads.
//
// A node payload is always UTF-8 JSON; a codec may wrap those bytes for
// storage (for example zstd compression) and must restore them exactly.
// The encoding name is persisted next to the payload so that nodes written
// with different settings stay readable:
//
//	c, _ := codec.NewWithType(codec.EncodingZstd)
//	packed, _ := c.Encode(raw)
//	raw, _ = c.Decode(packed)
package codec
