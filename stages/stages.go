// Package stages defines the stage identifiers of the staged sync core and
// the durable per-stage block-height cursor stored for each of them.
package stages

import (
	"encoding/binary"

	"github.com/fxfactorial/silkworm/common/dbutils"
	"github.com/fxfactorial/silkworm/kv"
)

// SyncStage identifies one stage in the fixed processing sequence. The
// string value is the key under which its progress is persisted, so it must
// never change once a database has stages stored under it.
type SyncStage string

const (
	Execution           SyncStage = "Execution"
	AccountHistoryIndex SyncStage = "AccountHistoryIndex"
	StorageHistoryIndex SyncStage = "StorageHistoryIndex"
)

// GetStageProgress returns the highest block number this stage has durably
// processed, or 0 if the stage has never run.
func GetStageProgress(tx kv.Tx, stage SyncStage) (uint64, error) {
	v, err := tx.GetOne(dbutils.SyncStageProgressBucket, []byte(stage))
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(v), nil
}

// SaveStageProgress durably records the highest block number this stage has
// processed.
func SaveStageProgress(tx kv.RwTx, stage SyncStage, progress uint64) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, progress)
	return tx.Put(dbutils.SyncStageProgressBucket, []byte(stage), v)
}
