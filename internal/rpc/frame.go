// internal/rpc/frame.go
// Length prefixed framing: a 4-byte big-endian length followed by exactly
// that many bytes of UTF-8 JSON.
package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	headerSize = 4

	// MaxFrameSize bounds the payload a peer may announce.
	MaxFrameSize = 16 << 20
)

// WriteFrame writes payload with its length header in a single write.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("write frame: payload of %d bytes exceeds %d", len(payload), MaxFrameSize)
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and returns its payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaxFrameSize {
		return nil, &DecodeError{Reason: fmt.Sprintf("frame of %d bytes exceeds %d", n, MaxFrameSize)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	if !utf8.Valid(payload) {
		return nil, &DecodeError{Reason: "payload is not valid utf-8"}
	}
	return payload, nil
}

// WriteRequest encodes req and writes it as one frame.
func WriteRequest(w io.Writer, req Request) error {
	payload, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadRequest reads one frame and decodes it as a Request.
func ReadRequest(r io.Reader) (Request, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeRequest(payload)
}

// WriteResponse encodes resp and writes it as one frame.
func WriteResponse(w io.Writer, resp Response) error {
	payload, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadResponse reads one frame and decodes it as a Response.
func ReadResponse(r io.Reader) (Response, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(payload)
}
