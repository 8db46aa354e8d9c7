package wire

import "encoding/binary"

// FdQueue supplies received out-of-band file descriptors to the decoder.
// Pop must return ErrNoFd (or wrap it) when the queue is empty.
type FdQueue interface {
	Pop() (int, error)
}

// DecodeArgs decodes the argument block of one message according to its
// signature. body must be exactly the bytes between the header and the
// declared end of the message. File descriptors for `h` arguments are
// taken from fds, which may be nil when the signature contains no `h`.
func DecodeArgs(body []byte, signature string, fds FdQueue) ([]Arg, error) {
	sig, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}

	d := decoder{buf: body}
	args := make([]Arg, 0, len(sig))
	for _, sa := range sig {
		a := Arg{Kind: sa.kind}
		switch sa.kind {
		case KindInt:
			v, err := d.uint32()
			if err != nil {
				return nil, err
			}
			a.I = int32(v)
		case KindUint, KindObject, KindNewID:
			v, err := d.uint32()
			if err != nil {
				return nil, err
			}
			a.U = v
			if v == 0 && sa.kind != KindUint {
				if !sa.nullable {
					return nil, ErrNullArgument
				}
				a.Null = true
			}
		case KindFixed:
			v, err := d.uint32()
			if err != nil {
				return nil, err
			}
			a.F = Fixed(v)
		case KindString:
			n, err := d.uint32()
			if err != nil {
				return nil, err
			}
			if n == 0 {
				if !sa.nullable {
					return nil, ErrNullArgument
				}
				a.Null = true
				break
			}
			if n > MaxStringSize {
				return nil, ErrBadString
			}
			b, err := d.bytes(int(n))
			if err != nil {
				return nil, ErrBadString
			}
			if b[n-1] != 0 {
				return nil, ErrBadString
			}
			a.S = string(b[:n-1])
		case KindArray:
			n, err := d.uint32()
			if err != nil {
				return nil, err
			}
			if n > MaxArraySize {
				return nil, ErrBadArray
			}
			b, err := d.bytes(int(n))
			if err != nil {
				return nil, ErrBadArray
			}
			a.A = b
		case KindFd:
			if fds == nil {
				return nil, ErrNoFd
			}
			fd, err := fds.Pop()
			if err != nil {
				return nil, err
			}
			a.Fd = fd
		}
		args = append(args, a)
	}
	if d.pos != len(d.buf) {
		return nil, ErrTrailingData
	}
	return args, nil
}

// decoder is a cursor over one message's argument block.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) uint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ErrShortMessage
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// bytes reads n bytes plus word padding. The returned slice references the
// decoder's buffer; callers must copy if they retain it.
func (d *decoder) bytes(n int) ([]byte, error) {
	padded := pad(n)
	if d.pos+padded > len(d.buf) {
		return nil, ErrShortMessage
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += padded
	return b, nil
}
