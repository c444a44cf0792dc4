// Command historyindex runs the account or storage History Index stage up
// to the Execution stage's progress. It runs against a fresh in-memory
// store: --datadir is only checked for existence, and nothing is read from
// or written to it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/fxfactorial/silkworm/kv"
	"github.com/fxfactorial/silkworm/stagedsync"
	"github.com/fxfactorial/silkworm/stages"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		datadir string
		full    bool
		storage bool
	)

	cmd := &cobra.Command{
		Use:           "historyindex",
		Short:         "Build the account or storage history index",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datadir); err != nil {
				return fmt.Errorf("can't find a valid data directory at %s", datadir)
			}

			db := kv.NewMemDB() // the real mdbx-backed store is out of scope; see DESIGN.md
			ctx := cmd.Context()
			cfg := stagedsync.DefaultHistoryIndexConfig()
			cfg.Full = full

			ro, err := db.BeginRo(ctx)
			if err != nil {
				return err
			}
			toBlock, err := stages.GetStageProgress(ro, stages.Execution)
			ro.Rollback()
			if err != nil {
				return err
			}

			stage := stagedsync.AccountHistoryIndexStage()
			if storage {
				stage = stagedsync.StorageHistoryIndexStage()
			}
			_, err = stage.Run(ctx, db, toBlock, cfg)
			return err
		},
	}

	cmd.Flags().StringVarP(&datadir, "datadir", "d", "", "path to a database populated by the chain sync pipeline")
	must(cmd.MarkFlagRequired("datadir"))
	cmd.Flags().BoolVar(&full, "full", false, "rebuild the index from block 0 instead of resuming from its progress cursor")
	cmd.Flags().BoolVar(&storage, "storage", false, "build the storage history index instead of the account history index")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Error("historyindex failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		return -5
	}
	return 0
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
