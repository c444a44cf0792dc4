package rlp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeHeaderSingleByte(t *testing.T) {
	v := ByteView{0x00}
	h, err := DecodeHeader(&v)
	require.NoError(t, err)
	require.False(t, h.List)
	require.EqualValues(t, 1, h.PayloadLength)
	require.EqualValues(t, 1, v.Length())

	v = ByteView{0x7F}
	h, err = DecodeHeader(&v)
	require.NoError(t, err)
	require.EqualValues(t, 1, h.PayloadLength)
}

func TestDecodeHeaderShortString(t *testing.T) {
	v := ByteView{0x83, 'd', 'o', 'g'}
	h, err := DecodeHeader(&v)
	require.NoError(t, err)
	require.False(t, h.List)
	require.EqualValues(t, 3, h.PayloadLength)
	require.Equal(t, ByteView{'d', 'o', 'g'}, v)
}

func TestDecodeHeaderShortStringNonCanonical(t *testing.T) {
	// 0x81 followed by a byte < 0x80 should have been single-byte encoded.
	v := ByteView{0x81, 0x00}
	_, err := DecodeHeader(&v)
	require.ErrorIs(t, err, ErrNonCanonicalSingleByte)
}

func TestDecodeHeaderLongStringNonCanonicalSize(t *testing.T) {
	// length-of-length prefix encodes a payload length < 56, which should
	// have used the short-string form instead.
	v := ByteView{0xB8, 0x01, 0x00}
	_, err := DecodeHeader(&v)
	require.ErrorIs(t, err, ErrNonCanonicalSize)
}

func TestDecodeHeaderLongStringLeadingZero(t *testing.T) {
	v := ByteView{0xB9, 0x00, 0x38}
	_, err := DecodeHeader(&v)
	require.ErrorIs(t, err, ErrLeadingZero)
}

func TestDecodeHeaderInputTooShort(t *testing.T) {
	v := ByteView{0x83, 'd', 'o'}
	_, err := DecodeHeader(&v)
	require.ErrorIs(t, err, ErrInputTooShort)

	v = ByteView{}
	_, err = DecodeHeader(&v)
	require.ErrorIs(t, err, ErrInputTooShort)

	v = ByteView{0xB8}
	_, err = DecodeHeader(&v)
	require.ErrorIs(t, err, ErrInputTooShort)
}

func TestDecodeHeaderShortList(t *testing.T) {
	v := ByteView{0xC3, 0x01, 0x02, 0x03}
	h, err := DecodeHeader(&v)
	require.NoError(t, err)
	require.True(t, h.List)
	require.EqualValues(t, 3, h.PayloadLength)
}

func TestDecodeHeaderLongList(t *testing.T) {
	payload := make([]byte, 56)
	v := ByteView(append([]byte{0xF8, 56}, payload...))
	h, err := DecodeHeader(&v)
	require.NoError(t, err)
	require.True(t, h.List)
	require.EqualValues(t, 56, h.PayloadLength)
}

func TestDecodeBytes(t *testing.T) {
	v := ByteView{0x83, 'c', 'a', 't'}
	b, err := DecodeBytes(&v)
	require.NoError(t, err)
	require.Equal(t, []byte("cat"), b)
	require.EqualValues(t, 0, v.Length())
}

func TestDecodeBytesEmptyString(t *testing.T) {
	v := ByteView{0x80}
	b, err := DecodeBytes(&v)
	require.NoError(t, err)
	require.Empty(t, b)
}

func TestDecodeBytesRejectsList(t *testing.T) {
	v := ByteView{0xC0}
	_, err := DecodeBytes(&v)
	require.ErrorIs(t, err, ErrUnexpectedList)
}

func TestDecodeUint64Zero(t *testing.T) {
	v := ByteView{0x80}
	n, err := DecodeUint64(&v)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestDecodeUint64SingleByte(t *testing.T) {
	v := ByteView{0x0F}
	n, err := DecodeUint64(&v)
	require.NoError(t, err)
	require.EqualValues(t, 15, n)
}

func TestDecodeUint64Multibyte(t *testing.T) {
	v := ByteView{0x82, 0x04, 0x00}
	n, err := DecodeUint64(&v)
	require.NoError(t, err)
	require.EqualValues(t, 1024, n)
}

func TestDecodeUint64ZeroByteIsLeadingZero(t *testing.T) {
	v := ByteView{0x00}
	_, err := DecodeUint64(&v)
	require.ErrorIs(t, err, ErrLeadingZero)

	v = ByteView{0x00}
	_, err = DecodeUint256(&v)
	require.ErrorIs(t, err, ErrLeadingZero)
}

func TestDecodeUint64Overflow(t *testing.T) {
	v := ByteView(append([]byte{0x89}, make([]byte, 9)...))
	_, err := DecodeUint64(&v)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestReadUint64LeadingZeroRejected(t *testing.T) {
	_, err := ReadUint64(ByteView{0x00, 0x01}, false)
	require.ErrorIs(t, err, ErrLeadingZero)
}

func TestReadUint64LeadingZeroAllowedForBytes(t *testing.T) {
	n, err := ReadUint64(ByteView{0x00, 0x01}, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestDecodeHeaderErrorLeavesCursorAtFault(t *testing.T) {
	v := ByteView{0x81, 0x00, 0xFF}
	before := len(v)
	_, err := DecodeHeader(&v)
	require.Error(t, err)
	// the cursor stops on the offending body byte 0x00, just past the header
	// byte, and goes no further
	require.LessOrEqual(t, len(v), before)
	require.Equal(t, ByteView{0x00, 0xFF}, v)
}
