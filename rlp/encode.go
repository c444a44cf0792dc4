package rlp

// Encoding is needed only to build the changeset fixtures the history index
// stage reads back; it mirrors the wire format DecodeHeader/DecodeBytes
// expect, not a general-purpose encoder.

// EncodeString returns the canonical RLP encoding of a byte string.
func EncodeString(s []byte) []byte {
	if len(s) == 1 && s[0] < 0x80 {
		return []byte{s[0]}
	}
	if len(s) < 56 {
		out := make([]byte, 0, 1+len(s))
		out = append(out, byte(0x80+len(s)))
		return append(out, s...)
	}
	lenBytes := encodeLength(uint64(len(s)))
	out := make([]byte, 0, 1+len(lenBytes)+len(s))
	out = append(out, byte(0xB7+len(lenBytes)))
	out = append(out, lenBytes...)
	return append(out, s...)
}

// EncodeUint64 returns the canonical RLP encoding of an unsigned integer,
// with leading zero bytes stripped.
func EncodeUint64(n uint64) []byte {
	if n == 0 {
		return []byte{0x80}
	}
	var buf [8]byte
	i := 8
	for n > 0 {
		i--
		buf[i] = byte(n)
		n >>= 8
	}
	return EncodeString(buf[i:])
}

// EncodeList wraps the concatenation of already-encoded items in a list
// prefix.
func EncodeList(items ...[]byte) []byte {
	var total int
	for _, it := range items {
		total += len(it)
	}
	var prefix []byte
	if total < 56 {
		prefix = []byte{byte(0xC0 + total)}
	} else {
		lenBytes := encodeLength(uint64(total))
		prefix = append([]byte{byte(0xF7 + len(lenBytes))}, lenBytes...)
	}
	out := make([]byte, 0, len(prefix)+total)
	out = append(out, prefix...)
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func encodeLength(n uint64) []byte {
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n & 0xFF)}, b...)
		n >>= 8
	}
	if len(b) == 0 {
		b = []byte{0}
	}
	return b
}
