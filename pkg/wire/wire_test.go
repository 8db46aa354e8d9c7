package wire

import (
	"bytes"
	"errors"
	"testing"
)

type fdStack struct {
	fds []int
}

func (q *fdStack) Pop() (int, error) {
	if len(q.fds) == 0 {
		return -1, ErrNoFd
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, nil
}

func TestHeaderRoundTrip(t *testing.T) {
	e := NewEncoder()
	if err := e.PutMessage(42, 3, "", nil); err != nil {
		t.Fatalf("PutMessage: %v", err)
	}

	h, err := DecodeHeader(e.Bytes())
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h.Object != 42 {
		t.Errorf("Object = %d, want 42", h.Object)
	}
	if h.Opcode != 3 {
		t.Errorf("Opcode = %d, want 3", h.Opcode)
	}
	if h.Size != HeaderSize {
		t.Errorf("Size = %d, want %d", h.Size, HeaderSize)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		sig  string
		args []Arg
	}{
		{"ints", "iu", []Arg{Int(-7), Uint(12)}},
		{"fixed", "f", []Arg{Fix(FixedFromFloat(1.5))}},
		{"string", "s", []Arg{Str("wl_seat")}},
		{"string_pad", "su", []Arg{Str("abc"), Uint(9)}},
		{"null_string", "?s", []Arg{NullStr()}},
		{"objects", "on", []Arg{Object(4), NewID(5)}},
		{"null_object", "?o", []Arg{NullObject()}},
		{"array", "a", []Arg{Array([]byte{1, 2, 3, 4, 5})}},
		{"bind_shape", "usun", []Arg{Uint(1), Str("wl_output"), Uint(3), NewID(8)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEncoder()
			if err := e.PutMessage(1, 0, tc.sig, tc.args); err != nil {
				t.Fatalf("PutMessage: %v", err)
			}
			buf := e.Bytes()
			if len(buf)%4 != 0 {
				t.Fatalf("message not word aligned: %d bytes", len(buf))
			}

			h, err := DecodeHeader(buf)
			if err != nil {
				t.Fatalf("DecodeHeader: %v", err)
			}
			if int(h.Size) != len(buf) {
				t.Fatalf("Size = %d, want %d", h.Size, len(buf))
			}

			args, err := DecodeArgs(buf[HeaderSize:h.Size], tc.sig, nil)
			if err != nil {
				t.Fatalf("DecodeArgs: %v", err)
			}
			if len(args) != len(tc.args) {
				t.Fatalf("decoded %d args, want %d", len(args), len(tc.args))
			}
			for i, want := range tc.args {
				got := args[i]
				if got.Kind != want.Kind || got.Null != want.Null {
					t.Errorf("arg %d = %v, want %v", i, got, want)
					continue
				}
				switch want.Kind {
				case KindInt:
					if got.I != want.I {
						t.Errorf("arg %d = %d, want %d", i, got.I, want.I)
					}
				case KindUint, KindObject, KindNewID:
					if !want.Null && got.U != want.U {
						t.Errorf("arg %d = %d, want %d", i, got.U, want.U)
					}
				case KindFixed:
					if got.F != want.F {
						t.Errorf("arg %d = %v, want %v", i, got.F, want.F)
					}
				case KindString:
					if !want.Null && got.S != want.S {
						t.Errorf("arg %d = %q, want %q", i, got.S, want.S)
					}
				case KindArray:
					if !bytes.Equal(got.A, want.A) {
						t.Errorf("arg %d = %v, want %v", i, got.A, want.A)
					}
				}
			}
		})
	}
}

func TestFdArgument(t *testing.T) {
	e := NewEncoder()
	if err := e.PutMessage(3, 1, "hu", []Arg{Fd(17), Uint(2)}); err != nil {
		t.Fatalf("PutMessage: %v", err)
	}
	if len(e.Fds()) != 1 || e.Fds()[0] != 17 {
		t.Fatalf("Fds() = %v, want [17]", e.Fds())
	}

	buf := e.Bytes()
	h, _ := DecodeHeader(buf)
	// fds occupy no wire bytes
	if h.Size != HeaderSize+4 {
		t.Fatalf("Size = %d, want %d", h.Size, HeaderSize+4)
	}

	q := &fdStack{fds: []int{17}}
	args, err := DecodeArgs(buf[HeaderSize:h.Size], "hu", q)
	if err != nil {
		t.Fatalf("DecodeArgs: %v", err)
	}
	if args[0].Fd != 17 {
		t.Errorf("fd = %d, want 17", args[0].Fd)
	}

	// Missing fd is an error, not a silent zero.
	if _, err := DecodeArgs(buf[HeaderSize:h.Size], "hu", &fdStack{}); !errors.Is(err, ErrNoFd) {
		t.Errorf("DecodeArgs without fd = %v, want ErrNoFd", err)
	}
}

func TestCompleteShortBuffer(t *testing.T) {
	e := NewEncoder()
	if err := e.PutMessage(7, 2, "s", []Arg{Str("partial")}); err != nil {
		t.Fatalf("PutMessage: %v", err)
	}
	full := e.Bytes()

	if n, err := Complete(full); err != nil || n != len(full) {
		t.Fatalf("Complete(full) = %d, %v", n, err)
	}

	// Every truncation of a valid message must report ErrShortMessage.
	for cut := 0; cut < len(full); cut++ {
		if _, err := Complete(full[:cut]); !errors.Is(err, ErrShortMessage) {
			t.Fatalf("Complete(%d bytes) = %v, want ErrShortMessage", cut, err)
		}
	}
}

func TestDecodeHeaderRejectsBadSize(t *testing.T) {
	e := NewEncoder()
	_ = e.PutMessage(1, 0, "u", []Arg{Uint(0)})
	buf := append([]byte(nil), e.Bytes()...)

	// Corrupt the size field to something below the header size.
	buf[6] = 4
	buf[7] = 0
	if _, err := DecodeHeader(buf); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("DecodeHeader = %v, want ErrInvalidSize", err)
	}
}

func TestDecodeArgsRejectsMalformed(t *testing.T) {
	// String whose declared length runs past the body.
	e := NewEncoder()
	_ = e.PutMessage(1, 0, "s", []Arg{Str("hello")})
	buf := append([]byte(nil), e.Bytes()...)
	buf[HeaderSize] = 0xff // length low byte
	h, _ := DecodeHeader(buf)
	if _, err := DecodeArgs(buf[HeaderSize:h.Size], "s", nil); err == nil {
		t.Error("oversized string length accepted")
	}

	// Signature/body mismatch leaves trailing bytes.
	e.Reset()
	_ = e.PutMessage(1, 0, "uu", []Arg{Uint(1), Uint(2)})
	h, _ = DecodeHeader(e.Bytes())
	if _, err := DecodeArgs(e.Bytes()[HeaderSize:h.Size], "u", nil); !errors.Is(err, ErrTrailingData) {
		t.Errorf("DecodeArgs = %v, want ErrTrailingData", err)
	}
}

func TestEncoderRejectsNullForNonNullable(t *testing.T) {
	e := NewEncoder()
	err := e.PutMessage(1, 0, "s", []Arg{NullStr()})
	if !errors.Is(err, ErrNullArgument) {
		t.Fatalf("PutMessage = %v, want ErrNullArgument", err)
	}
	if e.Len() != 0 {
		t.Errorf("failed encode left %d bytes in buffer", e.Len())
	}
}

func TestEncoderDrain(t *testing.T) {
	e := NewEncoder()
	_ = e.PutMessage(1, 0, "h", []Arg{Fd(5)})
	first := e.Len()
	_ = e.PutMessage(2, 0, "u", []Arg{Uint(1)})

	e.Drain(first, 1)
	if len(e.Fds()) != 0 {
		t.Errorf("fds after drain = %v, want none", e.Fds())
	}
	h, err := DecodeHeader(e.Bytes())
	if err != nil {
		t.Fatalf("DecodeHeader after drain: %v", err)
	}
	if h.Object != 2 {
		t.Errorf("remaining message object = %d, want 2", h.Object)
	}
}

func TestFixedConversions(t *testing.T) {
	if got := FixedFromInt(-3).Int(); got != -3 {
		t.Errorf("FixedFromInt(-3).Int() = %d", got)
	}
	if got := FixedFromFloat(2.25).Float(); got != 2.25 {
		t.Errorf("FixedFromFloat(2.25).Float() = %g", got)
	}
}
