package etl

import "container/heap"

// heapItem is one run file's current head entry, tagged with which provider
// it came from so the merge loop can pull the next one after popping it.
type heapItem struct {
	entry
	providerIdx int
}

// entryHeap is a min-heap over heapItems ordered by key, breaking ties by
// providerIdx so entries flushed earlier (lower-numbered providers) come
// first — the same tie-break the teacher's collector heap uses to keep
// multi-value loads stable.
type entryHeap []heapItem

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	c := compareEntries(h[i].entry, h[j].entry)
	if c != 0 {
		return c < 0
	}
	return h[i].providerIdx < h[j].providerIdx
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(heapItem))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*entryHeap)(nil)
