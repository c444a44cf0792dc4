package stagedsync

import (
	"context"
	"testing"

	"github.com/fxfactorial/silkworm/common/dbutils"
	"github.com/fxfactorial/silkworm/execution"
	"github.com/fxfactorial/silkworm/kv"
	"github.com/fxfactorial/silkworm/stages"
	"github.com/stretchr/testify/require"
)

func TestCheckLegacyReceiptsPreconditionPassesWhenNotWriting(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()
	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()

	writeReceipts, err := CheckLegacyReceiptsPrecondition(ro)
	require.NoError(t, err)
	require.False(t, writeReceipts)
}

func TestCheckLegacyReceiptsPreconditionFailsWithoutMigrations(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Put(dbutils.DatabaseInfoBucket, []byte(dbutils.StorageModeReceiptsKey), []byte{0x01}))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	_, err = CheckLegacyReceiptsPrecondition(ro)
	require.ErrorIs(t, err, ErrLegacyReceiptsUnsupported)
}

func TestCheckLegacyReceiptsPreconditionPassesWithMigrations(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, rw.Put(dbutils.DatabaseInfoBucket, []byte(dbutils.StorageModeReceiptsKey), []byte{0x01}))
	require.NoError(t, rw.Put(dbutils.MigrationsBucket, []byte(dbutils.MigrationReceiptsCBOREncode), []byte{0x01}))
	require.NoError(t, rw.Put(dbutils.MigrationsBucket, []byte(dbutils.MigrationReceiptsStoreLogsSeparately), []byte{0x01}))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	writeReceipts, err := CheckLegacyReceiptsPrecondition(ro)
	require.NoError(t, err)
	require.True(t, writeReceipts)
}

func TestRunExecutionStageAdvancesAndCommitsProgress(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()
	mock := &execution.MockExecutor{HighestAvailableBlock: 100, BatchBlocks: 10}

	progress, err := RunExecutionStage(ctx, db, mock, ExecutionConfig{ChainID: 1, ToBlock: 100, BatchSizeBytes: 512 << 20})
	require.NoError(t, err)
	require.EqualValues(t, 100, progress)
	require.Greater(t, len(mock.Calls), 1)

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	stored, err := stages.GetStageProgress(ro, stages.Execution)
	require.NoError(t, err)
	require.EqualValues(t, 100, stored)
}

func TestRunExecutionStageStopsAtBlockNotFound(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()
	mock := &execution.MockExecutor{HighestAvailableBlock: 50}

	progress, err := RunExecutionStage(ctx, db, mock, ExecutionConfig{ChainID: 1, ToBlock: 1000, BatchSizeBytes: 512 << 20})
	require.NoError(t, err)
	require.EqualValues(t, 50, progress)
}

func TestRunExecutionStageResumesFromPriorProgress(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()
	mock := &execution.MockExecutor{HighestAvailableBlock: 1000}

	_, err := RunExecutionStage(ctx, db, mock, ExecutionConfig{ChainID: 1, ToBlock: 50, BatchSizeBytes: 512 << 20})
	require.NoError(t, err)

	firstRunCalls := len(mock.Calls)

	_, err = RunExecutionStage(ctx, db, mock, ExecutionConfig{ChainID: 1, ToBlock: 100, BatchSizeBytes: 512 << 20})
	require.NoError(t, err)

	require.EqualValues(t, 1, mock.Calls[0].From)
	require.EqualValues(t, 51, mock.Calls[firstRunCalls].From)
}

func TestRunExecutionStageAbortsOnFatalStatus(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()
	mock := &execution.MockExecutor{HighestAvailableBlock: 100, FailAt: 5}

	_, err := RunExecutionStage(ctx, db, mock, ExecutionConfig{ChainID: 1, ToBlock: 100, BatchSizeBytes: 512 << 20})
	require.Error(t, err)

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	defer ro.Rollback()
	stored, err := stages.GetStageProgress(ro, stages.Execution)
	require.NoError(t, err)
	require.Zero(t, stored)
}
