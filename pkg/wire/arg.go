package wire

import "fmt"

// ArgKind discriminates the value held by an Arg.
type ArgKind uint8

const (
	KindInt ArgKind = iota + 1
	KindUint
	KindFixed
	KindString
	KindObject
	KindNewID
	KindArray
	KindFd
)

// String returns the signature character for the kind.
func (k ArgKind) String() string {
	switch k {
	case KindInt:
		return "i"
	case KindUint:
		return "u"
	case KindFixed:
		return "f"
	case KindString:
		return "s"
	case KindObject:
		return "o"
	case KindNewID:
		return "n"
	case KindArray:
		return "a"
	case KindFd:
		return "h"
	default:
		return "?"
	}
}

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

// FixedFromFloat converts a float64 to fixed point, truncating toward zero.
func FixedFromFloat(f float64) Fixed {
	return Fixed(f * 256)
}

// Float converts the fixed-point value back to a float64.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

// FixedFromInt converts an integer to fixed point.
func FixedFromInt(i int32) Fixed {
	return Fixed(i << 8)
}

// Int truncates the fixed-point value to an integer.
func (f Fixed) Int() int32 {
	return int32(f) >> 8
}

// Arg is one decoded argument. Kind selects which field is meaningful.
// Null nullable arguments decode with Kind set and Null true.
type Arg struct {
	Kind  ArgKind
	Null  bool
	I     int32
	U     uint32 // also object and new ids
	F     Fixed
	S     string
	A     []byte
	Fd    int
}

// Constructors, one per kind, for building argument lists by hand.

func Int(v int32) Arg      { return Arg{Kind: KindInt, I: v} }
func Uint(v uint32) Arg    { return Arg{Kind: KindUint, U: v} }
func Fix(v Fixed) Arg      { return Arg{Kind: KindFixed, F: v} }
func Str(v string) Arg     { return Arg{Kind: KindString, S: v} }
func Object(id uint32) Arg { return Arg{Kind: KindObject, U: id} }
func NewID(id uint32) Arg  { return Arg{Kind: KindNewID, U: id} }
func Array(v []byte) Arg   { return Arg{Kind: KindArray, A: v} }
func Fd(fd int) Arg        { return Arg{Kind: KindFd, Fd: fd} }

// NullStr is a null string argument for `?s` signature slots.
func NullStr() Arg { return Arg{Kind: KindString, Null: true} }

// NullObject is a null object argument for `?o` signature slots.
func NullObject() Arg { return Arg{Kind: KindObject, Null: true} }

// String renders the argument for debug output.
func (a Arg) String() string {
	if a.Null {
		return "nil"
	}
	switch a.Kind {
	case KindInt:
		return fmt.Sprintf("%d", a.I)
	case KindUint:
		return fmt.Sprintf("%d", a.U)
	case KindFixed:
		return fmt.Sprintf("%g", a.F.Float())
	case KindString:
		return fmt.Sprintf("%q", a.S)
	case KindObject:
		return fmt.Sprintf("obj#%d", a.U)
	case KindNewID:
		return fmt.Sprintf("new#%d", a.U)
	case KindArray:
		return fmt.Sprintf("array[%d]", len(a.A))
	case KindFd:
		return fmt.Sprintf("fd:%d", a.Fd)
	default:
		return "invalid"
	}
}

// sigArg is one parsed signature entry.
type sigArg struct {
	kind     ArgKind
	nullable bool
}

// parseSignature expands a signature string into per-argument entries.
func parseSignature(sig string) ([]sigArg, error) {
	out := make([]sigArg, 0, len(sig))
	nullable := false
	for i := 0; i < len(sig); i++ {
		var k ArgKind
		switch sig[i] {
		case '?':
			nullable = true
			continue
		case 'i':
			k = KindInt
		case 'u':
			k = KindUint
		case 'f':
			k = KindFixed
		case 's':
			k = KindString
		case 'o':
			k = KindObject
		case 'n':
			k = KindNewID
		case 'a':
			k = KindArray
		case 'h':
			k = KindFd
		default:
			return nil, ErrBadSignature
		}
		if nullable && k != KindString && k != KindObject && k != KindArray {
			return nil, ErrBadSignature
		}
		out = append(out, sigArg{kind: k, nullable: nullable})
		nullable = false
	}
	if nullable {
		return nil, ErrBadSignature
	}
	return out, nil
}
