// Package rlp implements a decoder for the canonical Recursive Length Prefix
// encoding used throughout the chain's wire and storage formats: block headers,
// receipts, and the changeset records consumed by the history index stage.
//
// The decoder never allocates on the hot path beyond what callers ask for, and
// never partially advances past a decode error: on any non-nil error the cursor
// is left exactly at the byte where the error was detected, which keeps fuzzing
// and crash-recovery behavior deterministic.
package rlp

import (
	"encoding/binary"
	"errors"
)

// Decoding errors form a closed set. Checked with errors.Is.
var (
	ErrOverflow               = errors.New("rlp: integer overflows target width")
	ErrLeadingZero            = errors.New("rlp: leading zero(s)")
	ErrInputTooShort          = errors.New("rlp: input too short")
	ErrNonCanonicalSingleByte = errors.New("rlp: non-canonical single byte")
	ErrNonCanonicalSize       = errors.New("rlp: non-canonical size")
	ErrUnexpectedList         = errors.New("rlp: unexpected list")
)

// ByteView is a window over an underlying byte slice. The decoders never
// write through it, and RemovePrefix never reallocates, only narrows the
// window — mirroring the source's cursor type without resorting to raw
// pointer arithmetic.
type ByteView []byte

// Length returns the number of bytes remaining in the view.
func (b ByteView) Length() int { return len(b) }

// RemovePrefix advances the view's start by n bytes. n must be <= Length().
func (b *ByteView) RemovePrefix(n int) {
	*b = (*b)[n:]
}

// Substr returns the n bytes starting at off without mutating the receiver.
func (b ByteView) Substr(off, n int) ByteView {
	return b[off : off+n]
}

// Header is the decoded RLP prefix: how many payload bytes follow, and
// whether they form a list or a string.
type Header struct {
	PayloadLength uint64
	List          bool
}

// DecodeHeader consumes the length prefix pointed to by from, advancing it
// past the prefix so that PayloadLength bytes of body remain available. On
// error, from is left at the byte where the error was detected.
func DecodeHeader(from *ByteView) (Header, error) {
	var h Header
	if from.Length() == 0 {
		return h, ErrInputTooShort
	}

	b := (*from)[0]
	switch {
	case b < 0x80:
		h.PayloadLength = 1
		// Cursor is NOT advanced: the caller reads the byte itself as body.

	case b < 0xB8:
		from.RemovePrefix(1)
		h.PayloadLength = uint64(b - 0x80)
		if h.PayloadLength == 1 {
			if from.Length() == 0 {
				return h, ErrInputTooShort
			}
			if (*from)[0] < 0x80 {
				return h, ErrNonCanonicalSingleByte
			}
		}

	case b < 0xC0:
		from.RemovePrefix(1)
		lenOfLen := int(b - 0xB7)
		if from.Length() < lenOfLen {
			return h, ErrInputTooShort
		}
		n, err := ReadUint64(from.Substr(0, lenOfLen), false)
		if err != nil {
			return h, err
		}
		h.PayloadLength = n
		from.RemovePrefix(lenOfLen)
		if h.PayloadLength < 56 {
			return h, ErrNonCanonicalSize
		}

	case b < 0xF8:
		from.RemovePrefix(1)
		h.List = true
		h.PayloadLength = uint64(b - 0xC0)

	default:
		from.RemovePrefix(1)
		h.List = true
		lenOfLen := int(b - 0xF7)
		if from.Length() < lenOfLen {
			return h, ErrInputTooShort
		}
		n, err := ReadUint64(from.Substr(0, lenOfLen), false)
		if err != nil {
			return h, err
		}
		h.PayloadLength = n
		from.RemovePrefix(lenOfLen)
		if h.PayloadLength < 56 {
			return h, ErrNonCanonicalSize
		}
	}

	if uint64(from.Length()) < h.PayloadLength {
		return h, ErrInputTooShort
	}
	return h, nil
}

// ReadUint64 decodes a big-endian unsigned integer from a raw byte string,
// the way the body of an RLP string header is interpreted once the header
// itself has already been stripped. allowLeadingZeros permits a high zero
// byte, which is legal for Bytes but not for the RLP-canonical encoding of an
// integer.
func ReadUint64(be ByteView, allowLeadingZeros bool) (uint64, error) {
	const maxBytes = 8
	if be.Length() > maxBytes {
		return 0, ErrOverflow
	}
	if be.Length() == 0 {
		return 0, nil
	}
	if be[0] == 0 && !allowLeadingZeros {
		return 0, ErrLeadingZero
	}
	var buf [maxBytes]byte
	copy(buf[maxBytes-be.Length():], be)
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Uint256 is a minimal 256-bit unsigned integer, stored as four big-endian
// limbs (most significant first) — enough for RLP's canonicalization checks
// without pulling in a full bignum type for this narrow use.
type Uint256 [4]uint64

// ReadUint256 decodes a big-endian unsigned integer up to 256 bits wide.
func ReadUint256(be ByteView, allowLeadingZeros bool) (Uint256, error) {
	const maxBytes = 32
	var out Uint256
	if be.Length() > maxBytes {
		return out, ErrOverflow
	}
	if be.Length() == 0 {
		return out, nil
	}
	if be[0] == 0 && !allowLeadingZeros {
		return out, ErrLeadingZero
	}
	var buf [maxBytes]byte
	copy(buf[maxBytes-be.Length():], be)
	out[0] = binary.BigEndian.Uint64(buf[0:8])
	out[1] = binary.BigEndian.Uint64(buf[8:16])
	out[2] = binary.BigEndian.Uint64(buf[16:24])
	out[3] = binary.BigEndian.Uint64(buf[24:32])
	return out, nil
}

// DecodeBytes decodes a string value, leaving leading zeros intact (they are
// legal in arbitrary byte strings, only integers canonicalize them away).
func DecodeBytes(from *ByteView) ([]byte, error) {
	h, err := DecodeHeader(from)
	if err != nil {
		return nil, err
	}
	if h.List {
		return nil, ErrUnexpectedList
	}
	// Single-byte strings (b < 0x80) were not advanced past by DecodeHeader;
	// every other shape already points at the body.
	if h.PayloadLength == 1 && len(*from) > 0 && (*from)[0] < 0x80 {
		b := (*from)[0]
		from.RemovePrefix(1)
		return []byte{b}, nil
	}
	out := make([]byte, h.PayloadLength)
	copy(out, (*from)[:h.PayloadLength])
	from.RemovePrefix(int(h.PayloadLength))
	return out, nil
}

// DecodeUint64 decodes an RLP-canonical unsigned 64-bit integer.
func DecodeUint64(from *ByteView) (uint64, error) {
	start := *from
	h, err := DecodeHeader(from)
	if err != nil {
		return 0, err
	}
	if h.List {
		return 0, ErrUnexpectedList
	}
	if h.PayloadLength == 1 && len(start) > 0 && start[0] < 0x80 {
		// single-byte string: DecodeHeader left the cursor un-advanced.
		if start[0] == 0 {
			return 0, ErrLeadingZero
		}
		v := uint64(start[0])
		from.RemovePrefix(1)
		return v, nil
	}
	v, err := ReadUint64(from.Substr(0, int(h.PayloadLength)), false)
	if err != nil {
		return 0, err
	}
	from.RemovePrefix(int(h.PayloadLength))
	return v, nil
}

// DecodeUint256 decodes an RLP-canonical unsigned 256-bit integer.
func DecodeUint256(from *ByteView) (Uint256, error) {
	start := *from
	h, err := DecodeHeader(from)
	if err != nil {
		return Uint256{}, err
	}
	if h.List {
		return Uint256{}, ErrUnexpectedList
	}
	if h.PayloadLength == 1 && len(start) > 0 && start[0] < 0x80 {
		if start[0] == 0 {
			return Uint256{}, ErrLeadingZero
		}
		from.RemovePrefix(1)
		return Uint256{0, 0, 0, uint64(start[0])}, nil
	}
	v, err := ReadUint256(from.Substr(0, int(h.PayloadLength)), false)
	if err != nil {
		return Uint256{}, err
	}
	from.RemovePrefix(int(h.PayloadLength))
	return v, nil
}
