package esphome

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// framePreamble is the reserved first byte of every plaintext frame.
	framePreamble byte = 0x00

	// MaxPayloadSize bounds the declared payload length of an inbound frame.
	MaxPayloadSize = 1 << 20
)

// Frame is one native API message: a type number and its protobuf payload.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// ReadFrame reads one frame:
//
//	[0x00][varint payload length][varint message type][payload]
//
// A stream that ends cleanly before the first byte returns io.EOF. Any
// other malformed or truncated frame returns an error wrapping ErrFraming.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	first, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	if first != framePreamble {
		return Frame{}, fmt.Errorf("%w: %w: 0x%02x", ErrFraming, ErrBadPreamble, first)
	}

	length, _, err := ReadVarint(r)
	if err != nil {
		return Frame{}, err
	}
	if length > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: %w: %d bytes", ErrFraming, ErrFrameTooLarge, length)
	}

	msgType, _, err := ReadVarint(r)
	if err != nil {
		return Frame{}, err
	}
	if msgType > math.MaxUint32 {
		return Frame{}, fmt.Errorf("%w: message type %d out of range", ErrFraming, msgType)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: payload truncated", ErrFraming)
		}
		return Frame{}, err
	}

	return Frame{Type: MessageType(msgType), Payload: payload}, nil
}

// AppendFrame appends the encoding of one frame to b.
func AppendFrame(b []byte, msgType MessageType, payload []byte) []byte {
	b = append(b, framePreamble)
	b = AppendVarint(b, uint64(len(payload)))
	b = AppendVarint(b, uint64(msgType))
	return append(b, payload...)
}

// EncodeFrame returns the encoding of one frame.
func EncodeFrame(msgType MessageType, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, len(payload)+8), msgType, payload)
}

// WriteFrame writes one frame with a single Write call and flushes w if it
// is buffered. Callers sharing w must serialise calls themselves.
func WriteFrame(w io.Writer, msgType MessageType, payload []byte) error {
	if _, err := w.Write(EncodeFrame(msgType, payload)); err != nil {
		return err
	}
	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
