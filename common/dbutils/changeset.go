package dbutils

import (
	"fmt"

	"github.com/fxfactorial/silkworm/rlp"
)

// Change is one (key, value) pair that changed within a single block, as
// recorded in a plain account or storage changeset.
type Change struct {
	Key   []byte
	Value []byte
}

// ChangeSet is every key that changed in one block, in the order they were
// recorded. A single changeset row holds the whole set for that block.
type ChangeSet struct {
	Changes []Change
}

// Walk calls f for every change in the set, stopping at the first error.
func (c ChangeSet) Walk(f func(k, v []byte) error) error {
	for _, ch := range c.Changes {
		if err := f(ch.Key, ch.Value); err != nil {
			return err
		}
	}
	return nil
}

// EncodeChangeSet RLP-encodes a ChangeSet as a list of [key, value] pairs.
func EncodeChangeSet(cs ChangeSet) []byte {
	items := make([][]byte, 0, len(cs.Changes))
	for _, ch := range cs.Changes {
		items = append(items, rlp.EncodeList(rlp.EncodeString(ch.Key), rlp.EncodeString(ch.Value)))
	}
	return rlp.EncodeList(items...)
}

// DecodeChangeSet decodes a changeset RLP blob produced by EncodeChangeSet.
func DecodeChangeSet(b []byte) (ChangeSet, error) {
	v := rlp.ByteView(b)
	h, err := rlp.DecodeHeader(&v)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("dbutils: decode changeset outer list: %w", err)
	}
	if !h.List {
		return ChangeSet{}, rlp.ErrUnexpectedList
	}
	body := v.Substr(0, int(h.PayloadLength))
	var cs ChangeSet
	for body.Length() > 0 {
		pairHeader, err := rlp.DecodeHeader(&body)
		if err != nil {
			return ChangeSet{}, fmt.Errorf("dbutils: decode change entry: %w", err)
		}
		if !pairHeader.List {
			return ChangeSet{}, rlp.ErrUnexpectedList
		}
		pair := body.Substr(0, int(pairHeader.PayloadLength))
		key, err := rlp.DecodeBytes(&pair)
		if err != nil {
			return ChangeSet{}, fmt.Errorf("dbutils: decode change key: %w", err)
		}
		val, err := rlp.DecodeBytes(&pair)
		if err != nil {
			return ChangeSet{}, fmt.Errorf("dbutils: decode change value: %w", err)
		}
		cs.Changes = append(cs.Changes, Change{Key: key, Value: val})
		body.RemovePrefix(int(pairHeader.PayloadLength))
	}
	return cs, nil
}
