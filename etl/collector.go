package etl

import (
	"container/heap"
	"io"
	"os"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/erigontech/erigon-lib/metrics"
	"golang.org/x/sync/errgroup"
)

var runFilesFlushedTotal = metrics.NewCounter("etl_run_files_flushed_total")

// Collector accumulates entries via Collect, spilling sorted run files to
// disk once the in-RAM buffer crosses BufferFlushSizeBytes, and later
// streams them back in merged key order via Load.
type Collector struct {
	dir                  string
	bufferFlushSizeBytes int
	buf                  *buffer
	runFilePaths         []string
	logPrefix            string

	flushed int
}

// NewCollector creates a Collector that spills run files into dir.
// bufferFlushSizeBytes bounds how much entry data is held in RAM before a
// flush, matching the teacher's etl.Collector(datadir, bufferOptimalSize)
// shape.
func NewCollector(logPrefix, dir string, bufferFlushSizeBytes int) *Collector {
	return &Collector{
		dir:                  dir,
		bufferFlushSizeBytes: bufferFlushSizeBytes,
		buf:                  newBuffer(),
		logPrefix:            logPrefix,
	}
}

// Collect adds one entry, flushing the in-RAM buffer to a run file if it has
// grown past the configured threshold.
func (c *Collector) Collect(k, v []byte) error {
	c.buf.Put(k, v)
	if c.buf.SizeBytes() >= c.bufferFlushSizeBytes {
		return c.flush()
	}
	return nil
}

func (c *Collector) flush() error {
	if c.buf.Len() == 0 {
		return nil
	}
	path, err := flushBuffer(c.dir, c.buf.Sorted())
	if err != nil {
		return err
	}
	c.runFilePaths = append(c.runFilePaths, path)
	c.flushed++
	runFilesFlushedTotal.Inc()
	log.Debug("[" + c.logPrefix + "] flushed run file", "n", c.flushed, "entries", c.buf.Len())
	c.buf.Reset()
	return nil
}

// Load merges every run file plus the remaining in-RAM buffer in key order,
// passes each entry through loadFunc, and writes whatever loadFunc emits
// into sink according to mode.
func (c *Collector) Load(sink Sink, loadFunc LoadFunc, mode LoadMode) error {
	if loadFunc == nil {
		loadFunc = IdentityLoad
	}

	providers := make([]*provider, 0, len(c.runFilePaths))
	defer func() { closeProvidersConcurrently(providers) }()
	for _, path := range c.runFilePaths {
		p, err := newProvider(path)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	c.runFilePaths = nil

	// The remaining in-RAM buffer is treated as one more (already sorted,
	// in-memory) provider so it merges on equal footing with the run files.
	memEntries := c.buf.Sorted()
	memIdx := 0
	memProviderIdx := len(providers)

	h := &entryHeap{}
	heap.Init(h)

	pull := func(providerIdx int) error {
		if providerIdx == memProviderIdx {
			if memIdx < len(memEntries) {
				heap.Push(h, heapItem{entry: memEntries[memIdx], providerIdx: providerIdx})
				memIdx++
			}
			return nil
		}
		e, err := providers[providerIdx].next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		heap.Push(h, heapItem{entry: e, providerIdx: providerIdx})
		return nil
	}

	for i := range providers {
		if err := pull(i); err != nil {
			return err
		}
	}
	if err := pull(memProviderIdx); err != nil {
		return err
	}

	var lastKey []byte
	haveLastKey := false

	for h.Len() > 0 {
		top := heap.Pop(h).(heapItem)
		if err := pull(top.providerIdx); err != nil {
			return err
		}

		if err := loadFunc(top.K, top.V, func(k, v []byte) error {
			switch mode {
			case AppendDup:
				if haveLastKey && compareKeys(k, lastKey) < 0 {
					return errNonIncreasingKey
				}
				lastKey = append(lastKey[:0], k...)
				haveLastKey = true
				return sink.Append(k, v)
			default:
				return sink.Put(k, v)
			}
		}); err != nil {
			return err
		}
	}

	return nil
}

// Close discards any run files the Collector has written without loading
// them, used when a stage aborts partway through an extract phase.
func (c *Collector) Close() {
	for _, path := range c.runFilePaths {
		os.Remove(path)
	}
	c.runFilePaths = nil
	c.buf.Reset()
}

func compareKeys(a, b []byte) int {
	return compareEntries(entry{K: a}, entry{K: b})
}

// closeProvidersConcurrently closes every run file's backing os.File and
// deletes it from disk. Spill directories can hold thousands of run files
// on a large history-index run, so teardown fans out instead of closing
// them one at a time.
func closeProvidersConcurrently(providers []*provider) {
	var g errgroup.Group
	for _, p := range providers {
		p := p
		g.Go(func() error {
			return p.Close()
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("etl: error closing run file providers", "err", err)
	}
}
