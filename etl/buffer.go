package etl

// buffer accumulates entries in RAM until their total encoded size crosses a
// threshold, at which point the collector flushes it to a run file.
type buffer struct {
	entries []entry
	size    int
}

func newBuffer() *buffer {
	return &buffer{}
}

func (b *buffer) Put(k, v []byte) {
	// copy both slices: callers frequently reuse scratch buffers across
	// calls (e.g. when decoding changeset entries in a loop).
	kc := append([]byte(nil), k...)
	vc := append([]byte(nil), v...)
	b.entries = append(b.entries, entry{K: kc, V: vc})
	b.size += len(kc) + len(vc)
}

func (b *buffer) Len() int { return len(b.entries) }

func (b *buffer) SizeBytes() int { return b.size }

func (b *buffer) Reset() {
	b.entries = b.entries[:0]
	b.size = 0
}

// Sorted returns the buffer's entries sorted by key, stable against ties so
// that insertion order among equal keys is preserved for multi-value tables.
func (b *buffer) Sorted() []entry {
	sortEntries(b.entries)
	return b.entries
}
