package dbutils

import (
	"encoding/binary"

	"github.com/erigontech/erigon-lib/common/length"
)

// NumberLength is the width of a big-endian block number key component.
const NumberLength = 8

// EncodeBlockNumber returns the 8-byte big-endian encoding of a block number,
// the canonical key prefix for per-block changeset rows.
func EncodeBlockNumber(n uint64) []byte {
	b := make([]byte, NumberLength)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// DecodeBlockNumber reverses EncodeBlockNumber.
func DecodeBlockNumber(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// PlainGenerateCompositeStorageKey builds the Change.Key of a plain storage
// changeset entry: address(20) || incarnation(8) || storage key hash(32).
func PlainGenerateCompositeStorageKey(address []byte, incarnation uint64, storageKeyHash []byte) []byte {
	out := make([]byte, length.Addr+length.Incarnation+length.Hash)
	copy(out, address)
	binary.BigEndian.PutUint64(out[length.Addr:], incarnation)
	copy(out[length.Addr+length.Incarnation:], storageKeyHash)
	return out
}

// GenerateCompositeStorageKey builds the hashed-storage variant: address
// hash(32) || incarnation(8) || storage key hash(32).
func GenerateCompositeStorageKey(addressHash []byte, incarnation uint64, storageKeyHash []byte) []byte {
	out := make([]byte, length.Hash+length.Incarnation+length.Hash)
	copy(out, addressHash)
	binary.BigEndian.PutUint64(out[length.Hash:], incarnation)
	copy(out[length.Hash+length.Incarnation:], storageKeyHash)
	return out
}

// PlainParseStoragePrefix splits a plain storage composite key back into its
// address and incarnation components, leaving the storage key hash.
func PlainParseStoragePrefix(prefix []byte) (address []byte, incarnation uint64) {
	address = prefix[:length.Addr]
	incarnation = binary.BigEndian.Uint64(prefix[length.Addr : length.Addr+length.Incarnation])
	return
}

// CompositeKeyWithoutIncarnation strips the middle 8-byte incarnation field
// out of a composite storage key, regardless of whether the leading half is
// a 20-byte address or a 32-byte address hash. Account keys (bare 20- or
// 32-byte values with no incarnation) pass through unchanged.
//
// This mirrors the history key derivation used when indexing changesets: the
// incarnation is re-derivable from plain state and carries no information
// about *which* block changed a key, so it is dropped before the key is used
// to group history entries.
func CompositeKeyWithoutIncarnation(key []byte) []byte {
	switch len(key) {
	case length.Addr + length.Incarnation + length.Hash:
		out := make([]byte, length.Addr+length.Hash)
		copy(out, key[:length.Addr])
		copy(out[length.Addr:], key[length.Addr+length.Incarnation:])
		return out
	case length.Hash + length.Incarnation + length.Hash:
		out := make([]byte, length.Hash+length.Hash)
		copy(out, key[:length.Hash])
		copy(out[length.Hash:], key[length.Hash+length.Incarnation:])
		return out
	default:
		return key
	}
}
