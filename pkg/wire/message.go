package wire

import (
	"encoding/binary"
	"errors"
)

// Framing constants.
const (
	// HeaderSize is the size of the message header in bytes.
	HeaderSize = 8

	// MaxMessageSize is the largest encodable message, bounded by the
	// 16-bit size field in the header.
	MaxMessageSize = 1<<16 - 1

	// MaxStringSize bounds a single string argument (including NUL).
	MaxStringSize = 1 << 12

	// MaxArraySize bounds a single array argument.
	MaxArraySize = 1 << 14
)

// Framing and decoding errors.
var (
	ErrShortMessage = errors.New("wire: buffer holds no complete message")
	ErrInvalidSize  = errors.New("wire: message size invalid")
	ErrTooLarge     = errors.New("wire: message exceeds maximum size")
	ErrBadString    = errors.New("wire: malformed string argument")
	ErrBadArray     = errors.New("wire: malformed array argument")
	ErrBadSignature = errors.New("wire: malformed argument signature")
	ErrNullArgument = errors.New("wire: null value for non-nullable argument")
	ErrNoFd         = errors.New("wire: no file descriptor queued for h argument")
	ErrTrailingData = errors.New("wire: trailing bytes after last argument")
)

// Header is the fixed 8-byte prefix of every message.
type Header struct {
	Object uint32 // target object id
	Opcode uint16 // request or event opcode
	Size   uint16 // total message size including the header
}

// DecodeHeader reads a message header from the front of buf.
// It returns ErrShortMessage if fewer than HeaderSize bytes are available,
// and ErrInvalidSize if the declared size is impossible (below HeaderSize
// or not word aligned).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortMessage
	}
	word := binary.LittleEndian.Uint32(buf[4:8])
	h := Header{
		Object: binary.LittleEndian.Uint32(buf[0:4]),
		Opcode: uint16(word & 0xffff),
		Size:   uint16(word >> 16),
	}
	if h.Size < HeaderSize || h.Size%4 != 0 {
		return Header{}, ErrInvalidSize
	}
	return h, nil
}

// Complete reports whether buf starts with one complete message and, if so,
// its total size. A malformed header is reported as an error so the caller
// can tear the stream down instead of waiting forever.
func Complete(buf []byte) (int, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return 0, err
	}
	if len(buf) < int(h.Size) {
		return 0, ErrShortMessage
	}
	return int(h.Size), nil
}

// Message is one decoded message: its header plus decoded arguments.
type Message struct {
	Header Header
	Args   []Arg
}

// pad returns n rounded up to the next word boundary.
func pad(n int) int {
	return (n + 3) &^ 3
}
