// Package wire implements the length-delimited binary framing and the
// deterministic CBOR encoding used for every message exchanged between
// Directory, FailureDetector, and ConsensusAgent processes.
//
// Framing matches the shape documented for consensus-style TCP peers
// elsewhere in the ecosystem: a fixed-width length prefix followed by the
// encoded payload, with a cap on frame size so a malformed or hostile peer
// cannot force an unbounded allocation.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// LengthPrefixSize is the width, in bytes, of the frame length prefix.
const LengthPrefixSize = 4

// MaxFrameLength bounds a single frame's payload. No message in this
// protocol legitimately approaches this size; it exists to reject garbage
// on the wire before it turns into a large allocation.
const MaxFrameLength = 32 * 1024 * 1024

// ErrFrameTooLarge is returned by ReadFrame when a peer announces a frame
// length exceeding MaxFrameLength.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum length")

var (
	encModeOnce sync.Once
	encMode     cbor.EncMode
	encModeErr  error
)

// codecEncMode returns the shared deterministic CBOR encoding mode. Core
// deterministic encoding (RFC 8949 §4.2) fixes map key ordering and integer
// representation, so the same value always serializes to the same bytes —
// the "deterministic binary serialization" spec.md requires of V.
func codecEncMode() (cbor.EncMode, error) {
	encModeOnce.Do(func() {
		opts := cbor.CoreDetEncOptions()
		encMode, encModeErr = opts.EncMode()
	})
	return encMode, encModeErr
}

// Encode serializes v using the shared deterministic CBOR mode.
func Encode[T any](v T) ([]byte, error) {
	mode, err := codecEncMode()
	if err != nil {
		return nil, fmt.Errorf("wire: build encoder: %w", err)
	}
	data, err := mode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return data, nil
}

// Decode deserializes a value of type T from data.
func Decode[T any](data []byte) (T, error) {
	var v T
	if err := cbor.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("wire: decode: %w", err)
	}
	return v, nil
}

// WriteFrame writes payload to w prefixed with its big-endian uint32 length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLength {
		return fmt.Errorf("wire: refusing to write %d byte frame: %w", len(payload), ErrFrameTooLarge)
	}
	var header [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads a single length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return payload, nil
}

// Send encodes v and writes it to w as a single framed message. Each
// connection in this protocol carries exactly one message.
func Send[T any](w io.Writer, v T) error {
	payload, err := Encode(v)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// Receive reads a single framed message from r and decodes it as T.
func Receive[T any](r io.Reader) (T, error) {
	var zero T
	payload, err := ReadFrame(r)
	if err != nil {
		return zero, err
	}
	return Decode[T](payload)
}
