package sensirion

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WordSize is the number of bytes a data word occupies on the wire (2 data bytes + checksum).
const WordSize = 3

var ErrChecksumMismatch = errors.New("checksum mismatch")
var ErrFrameLength = errors.New("invalid frame length")

// ChecksumError identifies the first word of a reply whose checksum did not match.
type ChecksumError struct {
	// Word is the zero-based index of the offending word in the reply.
	Word int
	Got  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch in word %d: got %#02x, want %#02x", e.Word, e.Got, e.Want)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// EncodeWrite builds the frame for a command followed by its parameter words:
// [cmd_hi, cmd_lo, (param_hi, param_lo, crc)*].
func EncodeWrite(cmd uint16, params ...uint16) []byte {
	frame := make([]byte, 2, 2+len(params)*WordSize)
	binary.BigEndian.PutUint16(frame, cmd)
	return append(frame, EncodeWords(params...)...)
}

// EncodeReadRequest builds the frame that precedes a read: the two command bytes only.
func EncodeReadRequest(cmd uint16) []byte {
	return EncodeWrite(cmd)
}

// EncodeWords serializes words, each followed by its checksum.
func EncodeWords(words ...uint16) []byte {
	out := make([]byte, len(words)*WordSize)
	for i, w := range words {
		group := out[i*WordSize : (i+1)*WordSize]
		binary.BigEndian.PutUint16(group, w)
		group[2] = Checksum(group[:2])
	}
	return out
}

// DecodeWords validates and decodes count checksummed words from raw. It fails on the
// first bad checksum and never returns partially decoded data.
func DecodeWords(raw []byte, count int) ([]uint16, error) {
	if count < 0 || len(raw) != count*WordSize {
		return nil, fmt.Errorf("%w: expected %d bytes for %d words, got %d", ErrFrameLength, count*WordSize, count, len(raw))
	}
	words := make([]uint16, count)
	for i := range count {
		group := raw[i*WordSize : (i+1)*WordSize]
		want := Checksum(group[:2])
		if group[2] != want {
			return nil, &ChecksumError{Word: i, Got: group[2], Want: want}
		}
		words[i] = binary.BigEndian.Uint16(group[:2])
	}
	return words, nil
}

// DecodeWrite splits a written frame into its command and parameter words. It is the
// inverse of EncodeWrite and is what a device (or a simulated one) sees on the bus.
func DecodeWrite(frame []byte) (uint16, []uint16, error) {
	if len(frame) < 2 || (len(frame)-2)%WordSize != 0 {
		return 0, nil, fmt.Errorf("%w: %d bytes is not a command frame", ErrFrameLength, len(frame))
	}
	cmd := binary.BigEndian.Uint16(frame[:2])
	params, err := DecodeWords(frame[2:], (len(frame)-2)/WordSize)
	if err != nil {
		return cmd, nil, err
	}
	return cmd, params, nil
}
