package stages

import (
	"context"
	"testing"

	"github.com/fxfactorial/silkworm/kv"
	"github.com/stretchr/testify/require"
)

func TestGetStageProgressDefaultsToZero(t *testing.T) {
	db := kv.NewMemDB()
	tx, err := db.BeginRo(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	p, err := GetStageProgress(tx, Execution)
	require.NoError(t, err)
	require.Zero(t, p)
}

func TestSaveAndGetStageProgress(t *testing.T) {
	db := kv.NewMemDB()
	ctx := context.Background()

	rw, err := db.BeginRw(ctx)
	require.NoError(t, err)
	require.NoError(t, SaveStageProgress(rw, Execution, 12345))
	require.NoError(t, rw.Commit())

	ro, err := db.BeginRo(ctx)
	require.NoError(t, err)
	p, err := GetStageProgress(ro, Execution)
	require.NoError(t, err)
	require.EqualValues(t, 12345, p)

	// a different stage's progress is independent
	p2, err := GetStageProgress(ro, AccountHistoryIndex)
	require.NoError(t, err)
	require.Zero(t, p2)
}
