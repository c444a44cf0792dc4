// Package kv defines the minimal transactional key/value store contract the
// staged sync core needs. The real backing engine (an LMDB/mdbx family store)
// is out of scope; only this contract and an in-memory reference
// implementation for tests live here.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound names the "absent" outcome, as distinct from a fatal store
// error the caller must abort on. The in-memory implementation does not
// return it: GetOne reports an absent key as a nil value with a nil error,
// and cursors report the end of a table as a nil key.
var ErrKeyNotFound = errors.New("kv: key not found")

// Getter reads point values from a named table within a transaction.
type Getter interface {
	GetOne(table string, key []byte) ([]byte, error)
}

// Putter writes point values into a named table within a transaction.
type Putter interface {
	Put(table string, key, value []byte) error
}

// Cursor iterates a table in key order, starting wherever Seek last placed it.
type Cursor interface {
	Seek(seek []byte) (key, value []byte, err error)
	Next() (key, value []byte, err error)
	Close()
}

// RwCursor is a Cursor that can also mutate the table it iterates.
type RwCursor interface {
	Cursor
	Put(key, value []byte) error
	Delete(key []byte) error
	Append(key, value []byte) error
}

// Tx is a read-only transaction.
type Tx interface {
	Getter
	Cursor(table string) (Cursor, error)
	Count(table string) (uint64, error)
	Rollback()
}

// RwTx is a read-write transaction, committed explicitly by the caller.
type RwTx interface {
	Tx
	Putter
	RwCursor(table string) (RwCursor, error)
	CreateTable(table string) error
	Commit() error
}

// RwDB opens transactions against the underlying store. It plays the role
// the real mdbx environment plays in production; here it is backed by an
// in-memory implementation used by tests and by both CLI commands.
type RwDB interface {
	BeginRo(ctx context.Context) (Tx, error)
	BeginRw(ctx context.Context) (RwTx, error)
	Close()
}
