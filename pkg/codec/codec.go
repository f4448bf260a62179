// Package codec converts typed values to the opaque bytes held by the cache
// and the append-only log, and back.
//
// The default codec is compact JSON. Encoded values never contain a raw
// newline, which keeps them safe for the line-oriented log format.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrCodec is matched by every *CodecError.
var ErrCodec = errors.New("codec error")

// CodecError reports a failed encode or decode.
type CodecError struct {
	Op  string // "encode" or "decode"
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec %s: %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

// Codec serializes values. Implementations must be safe for concurrent use.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSON is the default Codec.
type JSON struct{}

// Encode returns the compact JSON encoding of v without a trailing newline.
func (JSON) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	return data, nil
}

// Decode parses data into v. Trailing content after the first JSON value is
// rejected.
func (JSON) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return &CodecError{Op: "decode", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &CodecError{Op: "decode", Err: errors.New("unexpected data after value")}
	}
	return nil
}
