// Package bitmapdb implements the chunking and lookup operations the history
// index stage performs on Roaring64 bitmaps of block numbers.
package bitmapdb

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// CutLeft extracts and removes a size-bounded prefix of bm, returning the
// extracted elements as a fresh bitmap and leaving bm holding the remainder.
// If bm's serialized size (in bytes) is already <= sizeLimit, the entire
// bitmap is extracted and bm becomes empty. An empty bm yields nil.
//
// The original implementation this is modeled on has a bug in that "fits
// entirely" branch: it builds the returned copy but never removes the
// elements from the input, so a caller that keeps iterating on bm reprocesses
// data it already flushed. Removal always happens here.
func CutLeft(bm *roaring64.Bitmap, sizeLimit uint64) *roaring64.Bitmap {
	if bm.IsEmpty() {
		return nil
	}

	if bm.GetSerializedSizeInBytes() <= sizeLimit {
		out := bm.Clone()
		bm.Clear()
		return out
	}

	// Binary search over cardinality for the largest prefix whose serialized
	// size still fits under sizeLimit.
	it := bm.Iterator()
	elems := make([]uint64, 0, bm.GetCardinality())
	for it.HasNext() {
		elems = append(elems, it.Next())
	}

	lo, hi := 0, len(elems)-1
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := roaring64.New()
		candidate.AddMany(elems[:mid+1])
		if candidate.GetSerializedSizeInBytes() <= sizeLimit {
			best = mid + 1
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == 0 {
		best = 1 // always make progress, even if a single element exceeds the limit
	}

	out := roaring64.New()
	out.AddMany(elems[:best])

	for _, e := range elems[:best] {
		bm.Remove(e)
	}

	return out
}

// SeekInBitmap64 returns the smallest element in bm strictly greater than
// cap and whether one exists.
func SeekInBitmap64(bm *roaring64.Bitmap, cap uint64) (uint64, bool) {
	it := bm.Iterator()
	it.AdvanceIfNeeded(cap + 1)
	if !it.HasNext() {
		return 0, false
	}
	return it.Next(), true
}
