// Package stagedsync implements the stages that drive the chain data plane:
// the Execution stage, which replays blocks through an external executor,
// and the History Index stage, which builds per-key change bitmaps from the
// changesets Execution leaves behind.
package stagedsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/fxfactorial/silkworm/common/dbutils"
	"github.com/fxfactorial/silkworm/execution"
	"github.com/fxfactorial/silkworm/kv"
	"github.com/fxfactorial/silkworm/stages"
)

// ErrLegacyReceiptsUnsupported is returned when the database was populated
// with receipts written before the CBOR/separate-logs migrations ran. The
// caller (cmd/execute) maps this to its documented exit code.
var ErrLegacyReceiptsUnsupported = errors.New("stagedsync: legacy stored receipts are not supported")

// CheckLegacyReceiptsPrecondition fails fast if the database claims to write
// receipts (smReceipts == 0x01 in DatabaseInfo) but is missing either of the
// two migrations that made the modern receipt encoding possible.
func CheckLegacyReceiptsPrecondition(tx kv.Tx) (writeReceipts bool, err error) {
	v, err := tx.GetOne(dbutils.DatabaseInfoBucket, []byte(dbutils.StorageModeReceiptsKey))
	if err != nil {
		return false, err
	}
	writeReceipts = len(v) == 1 && v[0] == 0x01
	if !writeReceipts {
		return false, nil
	}

	cbor, err := tx.GetOne(dbutils.MigrationsBucket, []byte(dbutils.MigrationReceiptsCBOREncode))
	if err != nil {
		return false, err
	}
	sep, err := tx.GetOne(dbutils.MigrationsBucket, []byte(dbutils.MigrationReceiptsStoreLogsSeparately))
	if err != nil {
		return false, err
	}
	if cbor == nil || sep == nil {
		return false, ErrLegacyReceiptsUnsupported
	}
	return true, nil
}

// ExecutionConfig bounds a single run of the Execution stage driver.
type ExecutionConfig struct {
	ChainID        uint64
	ToBlock        uint64 // inclusive; used as given, so zero executes nothing
	BatchSizeBytes uint64
}

// RunExecutionStage advances the Execution stage's durable cursor by
// repeatedly calling exec in size-bounded batches, committing a transaction
// after each batch the way the original driver commits once per
// silkworm_execute_blocks call. It stops cleanly when the executor reports
// BlockNotFound and returns an error for any other non-Success status.
func RunExecutionStage(ctx context.Context, db kv.RwDB, exec execution.Executor, cfg ExecutionConfig) (uint64, error) {
	const logPrefix = "Execution"

	tx, err := db.BeginRw(ctx)
	if err != nil {
		return 0, err
	}
	writeReceipts, err := CheckLegacyReceiptsPrecondition(tx)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	previousProgress, err := stages.GetStageProgress(tx, stages.Execution)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	tx.Rollback()

	currentProgress := previousProgress

	for blockNumber := previousProgress + 1; blockNumber <= cfg.ToBlock; blockNumber = currentProgress + 1 {
		if err := ctx.Err(); err != nil {
			return currentProgress, err
		}

		tx, err := db.BeginRw(ctx)
		if err != nil {
			return currentProgress, err
		}

		status, lastExecuted, err := exec.ExecuteBlocks(tx, cfg.ChainID, blockNumber, cfg.ToBlock, cfg.BatchSizeBytes, writeReceipts)
		if err != nil {
			tx.Rollback()
			return currentProgress, err
		}
		if status.Fatal() {
			tx.Rollback()
			return currentProgress, fmt.Errorf("stagedsync: executor reported %s at block %d", status, blockNumber)
		}

		currentProgress = lastExecuted
		if err := stages.SaveStageProgress(tx, stages.Execution, currentProgress); err != nil {
			tx.Rollback()
			return currentProgress, err
		}
		if err := tx.Commit(); err != nil {
			return currentProgress, err
		}
		setStageHeight(string(stages.Execution), currentProgress)

		if status == execution.StatusBlockNotFound {
			break
		}
		log.Info(fmt.Sprintf("[%s] Blocks <= %d committed", logPrefix, currentProgress))
	}

	if currentProgress > previousProgress {
		log.Info(fmt.Sprintf("[%s] All blocks <= %d executed and committed", logPrefix, currentProgress))
	} else {
		log.Info(fmt.Sprintf("[%s] Nothing to execute", logPrefix))
	}

	return currentProgress, nil
}
