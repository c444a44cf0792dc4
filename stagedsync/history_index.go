package stagedsync

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/fxfactorial/silkworm/common/dbutils"
	"github.com/fxfactorial/silkworm/etl"
	"github.com/fxfactorial/silkworm/kv"
	"github.com/fxfactorial/silkworm/kv/bitmapdb"
	"github.com/fxfactorial/silkworm/stages"
)

// sentinelTailSuffix marks the open, still-growing rightmost chunk of a
// key's history index: the one new block numbers are merged into.
const sentinelTailSuffix = ^uint64(0)

// HistoryIndexConfig bounds memory use and output chunk size for one run of
// the History Index stage.
type HistoryIndexConfig struct {
	// BitmapBufferSizeLimitBytes bounds the approximate size of the in-RAM
	// per-key bitmap accumulator before it is spilled into the ETL collector.
	BitmapBufferSizeLimitBytes int
	// ETLBufferFlushSizeBytes bounds the ETL collector's own in-RAM buffer.
	ETLBufferFlushSizeBytes int
	// ChunkSizeLimitBytes bounds a single on-disk history chunk's serialized
	// size.
	ChunkSizeLimitBytes uint64
	// ETLTempDir is where the ETL collector spills its run files. Empty
	// means the OS default temp directory.
	ETLTempDir string
	// Full forces the stage to re-extract from block 0 regardless of the
	// stage's durable progress cursor. The caller is responsible for
	// pre-clearing the history table before a full run.
	Full bool
}

// DefaultHistoryIndexConfig matches the constants the original history
// indexer used: a 256 MiB extraction buffer, a 512 MiB ETL spill threshold,
// and 1950-byte output chunks (comfortably under typical page-size limits).
func DefaultHistoryIndexConfig() HistoryIndexConfig {
	return HistoryIndexConfig{
		BitmapBufferSizeLimitBytes: 256 * 1024 * 1024,
		ETLBufferFlushSizeBytes:    512 * 1024 * 1024,
		ChunkSizeLimitBytes:        1950,
	}
}

// HistoryIndexStage names which changeset table a call to
// HistoryIndexStage.Run reads from, and which history table and progress
// cursor it writes to.
type HistoryIndexStage struct {
	ChangeSetTable string
	HistoryTable   string
	Stage          stages.SyncStage
}

// AccountHistoryIndexStage reads PlainAccountChangeSet and writes hAT.
func AccountHistoryIndexStage() HistoryIndexStage {
	return HistoryIndexStage{
		ChangeSetTable: dbutils.PlainAccountChangeSetBucket,
		HistoryTable:   dbutils.AccountsHistoryBucket,
		Stage:          stages.AccountHistoryIndex,
	}
}

// StorageHistoryIndexStage reads PlainStorageChangeSet and writes hST.
func StorageHistoryIndexStage() HistoryIndexStage {
	return HistoryIndexStage{
		ChangeSetTable: dbutils.PlainStorageChangeSetBucket,
		HistoryTable:   dbutils.StorageHistoryBucket,
		Stage:          stages.StorageHistoryIndex,
	}
}

// Run extracts changed keys from s.ChangeSetTable for every block in
// (previousProgress, toBlock], accumulates per-key Roaring64 bitmaps of the
// blocks that touched them, and merges those bitmaps into s.HistoryTable's
// chunked on-disk representation.
func (s HistoryIndexStage) Run(ctx context.Context, db kv.RwDB, toBlock uint64, cfg HistoryIndexConfig) (uint64, error) {
	logPrefix := string(s.Stage)

	roTx, err := db.BeginRo(ctx)
	if err != nil {
		return 0, err
	}
	previousProgress, err := stages.GetStageProgress(roTx, s.Stage)
	if err != nil {
		roTx.Rollback()
		return 0, err
	}
	if cfg.Full {
		previousProgress = 0
	}
	if previousProgress >= toBlock {
		roTx.Rollback()
		log.Info(fmt.Sprintf("[%s] Nothing to process", logPrefix))
		return previousProgress, nil
	}

	collector := etl.NewCollector(logPrefix, cfg.ETLTempDir, cfg.ETLBufferFlushSizeBytes)
	defer collector.Close()

	acc := newBitmapAccumulator(cfg.BitmapBufferSizeLimitBytes)
	flushAccumulator := func() error {
		return acc.flush(collector)
	}

	cursor, err := roTx.Cursor(s.ChangeSetTable)
	if err != nil {
		roTx.Rollback()
		return 0, err
	}

	fromKey := dbutils.EncodeBlockNumber(previousProgress + 1)
	toKey := dbutils.EncodeBlockNumber(toBlock)

	for k, v, err := cursor.Seek(fromKey); k != nil; k, v, err = cursor.Next() {
		if err != nil {
			roTx.Rollback()
			return previousProgress, err
		}
		if bytes.Compare(k, toKey) > 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			roTx.Rollback()
			return previousProgress, err
		}

		blockNumber := dbutils.DecodeBlockNumber(k)
		cs, err := dbutils.DecodeChangeSet(v)
		if err != nil {
			roTx.Rollback()
			return previousProgress, fmt.Errorf("stagedsync: decode changeset at block %d: %w", blockNumber, err)
		}

		for _, change := range cs.Changes {
			historyKey := dbutils.CompositeKeyWithoutIncarnation(change.Key)
			acc.add(historyKey, blockNumber)
		}

		if acc.full() {
			if err := flushAccumulator(); err != nil {
				roTx.Rollback()
				return previousProgress, err
			}
		}
	}
	cursor.Close()

	if err := flushAccumulator(); err != nil {
		roTx.Rollback()
		return previousProgress, err
	}
	roTx.Rollback()

	rwTx, err := db.BeginRw(ctx)
	if err != nil {
		return previousProgress, err
	}

	count, err := rwTx.Count(s.HistoryTable)
	if err != nil {
		rwTx.Rollback()
		return previousProgress, err
	}
	mode := etl.Upsert
	if count == 0 {
		mode = etl.AppendDup
	}

	merger, err := newHistoryMerger(rwTx, s.HistoryTable, cfg.ChunkSizeLimitBytes)
	if err != nil {
		rwTx.Rollback()
		return previousProgress, err
	}
	if err := collector.Load(merger.sink(), merger.loadFunc, mode); err != nil {
		merger.cur.Close()
		rwTx.Rollback()
		return previousProgress, err
	}
	if err := merger.finish(); err != nil {
		merger.cur.Close()
		rwTx.Rollback()
		return previousProgress, err
	}
	merger.cur.Close()

	if err := stages.SaveStageProgress(rwTx, s.Stage, toBlock); err != nil {
		rwTx.Rollback()
		return previousProgress, err
	}
	if err := rwTx.Commit(); err != nil {
		return previousProgress, err
	}

	setStageHeight(string(s.Stage), toBlock)
	log.Info(fmt.Sprintf("[%s] Index built up to block %d", logPrefix, toBlock))
	return toBlock, nil
}

// bitmapAccumulator holds per-key Roaring64 bitmaps in RAM during extract,
// tracking an approximate byte cost so the caller can bound memory use.
type bitmapAccumulator struct {
	limit     int
	sizeBytes int
	bitmaps   map[string]*roaring64.Bitmap
}

func newBitmapAccumulator(limit int) *bitmapAccumulator {
	return &bitmapAccumulator{limit: limit, bitmaps: make(map[string]*roaring64.Bitmap)}
}

func (a *bitmapAccumulator) full() bool {
	return a.sizeBytes >= a.limit
}

func (a *bitmapAccumulator) add(key []byte, blockNumber uint64) {
	bm, ok := a.bitmaps[string(key)]
	if !ok {
		bm = roaring64.New()
		a.bitmaps[string(key)] = bm
		a.sizeBytes += len(key)
	}
	if !bm.Contains(blockNumber) {
		bm.Add(blockNumber)
		a.sizeBytes += 8
	}
}

func (a *bitmapAccumulator) flush(collector *etl.Collector) error {
	for key, bm := range a.bitmaps {
		var buf bytes.Buffer
		if _, err := bm.WriteTo(&buf); err != nil {
			return err
		}
		if err := collector.Collect([]byte(key), buf.Bytes()); err != nil {
			return err
		}
	}
	a.bitmaps = make(map[string]*roaring64.Bitmap)
	a.sizeBytes = 0
	return nil
}

// historyMerger groups the ETL-merged (historyKey, serialized-fragment)
// stream by key, ORs every fragment for a key together with whatever tail
// chunk already exists on disk, and re-chunks the result. Chunks are emitted
// through the Load callback's next function into a cursor-backed Sink, so
// the append-dup ordering check Collector.Load enforces actually applies to
// them.
type historyMerger struct {
	tx         kv.RwTx
	table      string
	chunkLimit uint64
	cur        kv.RwCursor

	curKey    []byte
	curBitmap *roaring64.Bitmap
	lastNext  etl.LoadNextFunc
}

func newHistoryMerger(tx kv.RwTx, table string, chunkLimit uint64) (*historyMerger, error) {
	cur, err := tx.RwCursor(table)
	if err != nil {
		return nil, err
	}
	return &historyMerger{tx: tx, table: table, chunkLimit: chunkLimit, cur: cur}, nil
}

// sink returns the etl.Sink that Collector.Load writes chunks through.
func (m *historyMerger) sink() etl.Sink {
	return historySink{cur: m.cur}
}

func (m *historyMerger) loadFunc(k, v []byte, next etl.LoadNextFunc) error {
	if m.curKey != nil && !bytes.Equal(k, m.curKey) {
		if err := m.flushCurrent(next); err != nil {
			return err
		}
	}
	if m.curBitmap == nil {
		m.curKey = append([]byte(nil), k...)
		m.curBitmap = roaring64.New()
		if err := m.loadExistingTail(m.curKey, m.curBitmap); err != nil {
			return err
		}
	}
	fragment := roaring64.New()
	if _, err := fragment.ReadFrom(bytes.NewReader(v)); err != nil {
		return fmt.Errorf("stagedsync: decode history fragment: %w", err)
	}
	m.curBitmap.Or(fragment)
	m.lastNext = next
	return nil
}

func (m *historyMerger) loadExistingTail(key []byte, into *roaring64.Bitmap) error {
	tailKey := historyChunkKey(key, sentinelTailSuffix)
	existing, err := m.tx.GetOne(m.table, tailKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	tail := roaring64.New()
	if _, err := tail.ReadFrom(bytes.NewReader(existing)); err != nil {
		return fmt.Errorf("stagedsync: decode existing tail chunk: %w", err)
	}
	into.Or(tail)
	return nil
}

func (m *historyMerger) flushCurrent(next etl.LoadNextFunc) error {
	if m.curBitmap == nil {
		return nil
	}
	bm := m.curBitmap
	key := m.curKey
	m.curBitmap = nil
	m.curKey = nil

	for !bm.IsEmpty() {
		chunk := bitmapdb.CutLeft(bm, m.chunkLimit)
		var suffix uint64
		if bm.IsEmpty() {
			suffix = sentinelTailSuffix
		} else {
			suffix = chunk.Maximum()
		}
		var buf bytes.Buffer
		if _, err := chunk.WriteTo(&buf); err != nil {
			return err
		}
		if err := next(historyChunkKey(key, suffix), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// finish flushes whatever key the final loadFunc call accumulated, since
// Collector.Load has no "stream ended" callback of its own.
func (m *historyMerger) finish() error {
	if m.curBitmap == nil {
		return nil
	}
	if m.lastNext == nil {
		return fmt.Errorf("stagedsync: history merger has pending state with no next callback")
	}
	return m.flushCurrent(m.lastNext)
}

func historyChunkKey(historyKey []byte, suffix uint64) []byte {
	out := make([]byte, len(historyKey)+8)
	copy(out, historyKey)
	binary.BigEndian.PutUint64(out[len(historyKey):], suffix)
	return out
}

// historySink writes chunks emitted by historyMerger's loadFunc into the
// history table through a cursor, giving Collector.Load's append-dup
// monotonicity check a real destination to enforce.
type historySink struct {
	cur kv.RwCursor
}

func (s historySink) Put(k, v []byte) error    { return s.cur.Put(k, v) }
func (s historySink) Append(k, v []byte) error { return s.cur.Append(k, v) }
