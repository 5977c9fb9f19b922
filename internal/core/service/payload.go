package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

var (
	errInvalidUTF8 = errors.New("payload is not valid UTF-8")
	errInvalidJSON = errors.New("payload is not valid JSON")
)

// encodeValue serializes v to compact UTF-8 JSON without HTML escaping.
func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder terminates every value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// unwrapPayload removes the content encoding and checks the result is
// UTF-8 JSON.
func unwrapPayload(node *domain.Node) ([]byte, error) {
	raw, err := codec.Decode(codec.Encoding(node.ContentEncoding), node.Data)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, errInvalidUTF8
	}
	if !json.Valid(raw) {
		return nil, errInvalidJSON
	}
	return raw, nil
}

// decodeValue decodes JSON into the generic value space:
// nil, bool, json.Number, string, []any and map[string]any.
func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeInto(raw []byte, dst any) error {
	if dst == nil {
		return domain.ErrInvalidArgument.WithDetails("destination must not be nil")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var invalid *json.InvalidUnmarshalError
		if errors.As(err, &invalid) {
			return domain.ErrInvalidArgument.WithDetails("destination must be a non-nil pointer").WithCause(err)
		}
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("value does not fit %T", dst)).WithCause(err)
	}
	return nil
}

func decodeNode(node *domain.Node) (any, error) {
	raw, err := unwrapPayload(node)
	if err != nil {
		return nil, err
	}
	return decodeValue(raw)
}
