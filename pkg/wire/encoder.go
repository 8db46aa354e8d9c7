package wire

import (
	"encoding/binary"
	"strings"
)

// Encoder is a binary encoder that appends messages to an internal buffer.
// One encoder typically backs one connection's outgoing buffer; encoded
// bytes are drained by the transport on flush.
type Encoder struct {
	buf []byte
	fds []int
}

// NewEncoder creates a new encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Reset resets the encoder to empty state, reusing the underlying buffer.
// Any queued file descriptors are discarded, not closed.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.fds = e.fds[:0]
}

// Bytes returns the encoded bytes. The returned slice is valid until the
// next call to Reset or PutMessage.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Fds returns the file descriptors queued for out-of-band transmission,
// in the order their `h` arguments were encoded.
func (e *Encoder) Fds() []int {
	return e.fds
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Drain removes the first n bytes and the given number of leading fds,
// after a partial flush.
func (e *Encoder) Drain(n, nfds int) {
	e.buf = append(e.buf[:0], e.buf[n:]...)
	e.fds = append(e.fds[:0], e.fds[nfds:]...)
}

// PutMessage encodes one complete message for the given object and opcode.
// The arguments must match the signature in count and kind. On any error
// the encoder's buffer is left untouched.
func (e *Encoder) PutMessage(object uint32, opcode uint16, signature string, args []Arg) error {
	sig, err := parseSignature(signature)
	if err != nil {
		return err
	}
	if len(args) != len(sig) {
		return ErrBadSignature
	}

	start := len(e.buf)
	nfds := len(e.fds)
	e.putUint32(object)
	e.putUint32(0) // size|opcode, patched below

	for i, sa := range sig {
		a := args[i]
		if a.Kind != sa.kind {
			e.rollback(start, nfds)
			return ErrBadSignature
		}
		if a.Null {
			if !sa.nullable {
				e.rollback(start, nfds)
				return ErrNullArgument
			}
			e.putUint32(0)
			continue
		}
		switch sa.kind {
		case KindInt:
			e.putUint32(uint32(a.I))
		case KindUint, KindObject, KindNewID:
			e.putUint32(a.U)
		case KindFixed:
			e.putUint32(uint32(a.F))
		case KindString:
			if len(a.S)+1 > MaxStringSize || strings.IndexByte(a.S, 0) >= 0 {
				e.rollback(start, nfds)
				return ErrBadString
			}
			e.putUint32(uint32(len(a.S) + 1))
			e.buf = append(e.buf, a.S...)
			e.buf = append(e.buf, 0)
			e.padTo4()
		case KindArray:
			if len(a.A) > MaxArraySize {
				e.rollback(start, nfds)
				return ErrBadArray
			}
			e.putUint32(uint32(len(a.A)))
			e.buf = append(e.buf, a.A...)
			e.padTo4()
		case KindFd:
			e.fds = append(e.fds, a.Fd)
		}
	}

	size := len(e.buf) - start
	if size > MaxMessageSize {
		e.rollback(start, nfds)
		return ErrTooLarge
	}
	binary.LittleEndian.PutUint32(e.buf[start+4:], uint32(size)<<16|uint32(opcode))
	return nil
}

func (e *Encoder) putUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) padTo4() {
	for len(e.buf)%4 != 0 {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) rollback(start, nfds int) {
	e.buf = e.buf[:start]
	e.fds = e.fds[:nfds]
}
