// Package wire implements the binary wire format spoken between a display
// server and its clients.
//
// The format is word-oriented: every message is a whole number of 32-bit
// words, encoded in the host's byte order (little-endian on every platform
// this package supports). File descriptors never appear in the byte stream;
// they travel out-of-band as ancillary socket data and are matched to `h`
// arguments in arrival order.
//
// # Message framing
//
// Every message starts with an 8-byte header:
//
//	┌───────────────────────────────┬───────────────┬───────────────┐
//	│ Object ID                     │ Size          │ Opcode        │
//	│ (4 bytes)                     │ (2 bytes)     │ (2 bytes)     │
//	└───────────────────────────────┴───────────────┴───────────────┘
//	│                                                               │
//	│  Arguments (Size - 8 bytes, word aligned)                     │
//	│                                                               │
//	└───────────────────────────────────────────────────────────────┘
//
// Size counts the header itself, so the smallest legal message is 8 bytes.
// The 16-bit size field bounds a single message at 65535 bytes.
//
// # Argument signatures
//
// Argument layout is driven by a signature string, one character per
// argument:
//
//	i   int32
//	u   uint32
//	f   signed 24.8 fixed point
//	s   string (uint32 length including NUL, then bytes, padded to a word)
//	o   object id (uint32)
//	n   new object id (uint32)
//	a   byte array (uint32 length, then bytes, padded to a word)
//	h   file descriptor (out-of-band, zero bytes on the wire)
//	?   the next argument may be null (strings, objects, arrays)
//
// # Usage
//
//	// Encode
//	e := wire.NewEncoder()
//	fds, err := e.PutMessage(id, opcode, "us", []wire.Arg{
//	    wire.Uint(3), wire.Str("seat0"),
//	})
//
//	// Decode
//	hdr, err := wire.DecodeHeader(buf)
//	args, err := wire.DecodeArgs(buf[wire.HeaderSize:hdr.Size], "us", nil)
//
// The package is transport-agnostic: it never touches sockets. Callers feed
// it byte slices and, for `h` arguments, a queue of received descriptors.
package wire
