package kv

import (
	"context"
	"sort"
	"sync"
)

// memDB is a process-local, sorted-map backed RwDB used by stage tests and
// by both CLI commands. It gives the same ordering and NotFound semantics
// the real store contract requires without depending on the store engine
// itself, which is explicitly out of scope.
type memDB struct {
	mu     sync.Mutex
	tables map[string]map[string][]byte
}

// NewMemDB returns an empty in-memory RwDB.
func NewMemDB() RwDB {
	return &memDB{tables: make(map[string]map[string][]byte)}
}

func (d *memDB) BeginRo(_ context.Context) (Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &memTx{db: d, snapshot: d.snapshotLocked()}, nil
}

// BeginRw snapshots the current tables and hands the copy to the caller;
// it does not hold the store locked for the transaction's lifetime, so
// concurrent writers last-write-wins on Commit rather than serializing like
// the real store would.
func (d *memDB) BeginRw(_ context.Context) (RwTx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &memRwTx{memTx: memTx{db: d, snapshot: d.snapshotLocked()}}, nil
}

func (d *memDB) Close() {}

func (d *memDB) snapshotLocked() map[string]map[string][]byte {
	out := make(map[string]map[string][]byte, len(d.tables))
	for t, rows := range d.tables {
		cp := make(map[string][]byte, len(rows))
		for k, v := range rows {
			cp[k] = v
		}
		out[t] = cp
	}
	return out
}

type memTx struct {
	db       *memDB
	snapshot map[string]map[string][]byte
}

func (tx *memTx) GetOne(table string, key []byte) ([]byte, error) {
	rows, ok := tx.snapshot[table]
	if !ok {
		return nil, nil
	}
	v, ok := rows[string(key)]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (tx *memTx) Count(table string) (uint64, error) {
	return uint64(len(tx.snapshot[table])), nil
}

func (tx *memTx) Cursor(table string) (Cursor, error) {
	rows := tx.snapshot[table]
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memCursor{rows: rows, keys: keys}, nil
}

func (tx *memTx) Rollback() {}

type memRwTx struct {
	memTx
}

func (tx *memRwTx) Put(table string, key, value []byte) error {
	rows, ok := tx.snapshot[table]
	if !ok {
		rows = make(map[string][]byte)
		tx.snapshot[table] = rows
	}
	rows[string(key)] = append([]byte(nil), value...)
	return nil
}

func (tx *memRwTx) CreateTable(table string) error {
	if _, ok := tx.snapshot[table]; !ok {
		tx.snapshot[table] = make(map[string][]byte)
	}
	return nil
}

func (tx *memRwTx) RwCursor(table string) (RwCursor, error) {
	rows, ok := tx.snapshot[table]
	if !ok {
		rows = make(map[string][]byte)
		tx.snapshot[table] = rows
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memCursor{rows: rows, keys: keys, writable: true}, nil
}

func (tx *memRwTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.tables = tx.snapshot
	return nil
}

type memCursor struct {
	rows     map[string][]byte
	keys     []string
	writable bool
	pos      int
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte, error) {
	target := string(seek)
	c.pos = sort.SearchStrings(c.keys, target)
	return c.current()
}

func (c *memCursor) Next() ([]byte, []byte, error) {
	c.pos++
	return c.current()
}

func (c *memCursor) current() ([]byte, []byte, error) {
	if c.pos >= len(c.keys) {
		return nil, nil, nil
	}
	k := c.keys[c.pos]
	return []byte(k), c.rows[k], nil
}

func (c *memCursor) Put(key, value []byte) error {
	k := string(key)
	if _, exists := c.rows[k]; !exists {
		c.keys = insertSorted(c.keys, k)
	}
	c.rows[k] = append([]byte(nil), value...)
	return nil
}

func (c *memCursor) Append(key, value []byte) error {
	return c.Put(key, value)
}

func (c *memCursor) Delete(key []byte) error {
	k := string(key)
	delete(c.rows, k)
	for i, kk := range c.keys {
		if kk == k {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	return nil
}

func (c *memCursor) Close() {}

func insertSorted(keys []string, k string) []string {
	i := sort.SearchStrings(keys, k)
	keys = append(keys, "")
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	return keys
}
