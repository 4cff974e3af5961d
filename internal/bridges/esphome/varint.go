package esphome

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxVarintLen is the longest valid encoding of a 64-bit value.
const maxVarintLen = 10

// AppendVarint appends v as unsigned LEB128.
func AppendVarint(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// WriteVarint writes v as unsigned LEB128 one byte at a time.
func WriteVarint(w io.ByteWriter, v uint64) error {
	for v >= 0x80 {
		if err := w.WriteByte(byte(v) | 0x80); err != nil {
			return err
		}
		v >>= 7
	}
	return w.WriteByte(byte(v))
}

// ReadVarint reads one unsigned LEB128 value and reports how many bytes it
// consumed. A stream that ends inside the value, or a value that does not
// fit in 64 bits, fails with ErrFraming. Other reader errors are returned
// unchanged so callers can tell a closed socket from a bad peer.
func ReadVarint(r io.ByteReader) (value uint64, consumed int, err error) {
	var shift uint
	for consumed < maxVarintLen {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, consumed, fmt.Errorf("%w: varint truncated after %d bytes", ErrFraming, consumed)
			}
			return 0, consumed, err
		}
		consumed++

		if consumed == maxVarintLen && b > 1 {
			return 0, consumed, fmt.Errorf("%w: varint overflows 64 bits", ErrFraming)
		}

		value |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return value, consumed, nil
		}
		shift += 7
	}
	return 0, consumed, fmt.Errorf("%w: varint longer than %d bytes", ErrFraming, maxVarintLen)
}
