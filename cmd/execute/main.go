// Command execute runs the Execution stage driver, advancing the Execution
// stage's cursor one committed batch at a time. It runs against a fresh
// in-memory store and the mock executor: --datadir is only checked for
// existence, and nothing is read from or written to it.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/fxfactorial/silkworm/execution"
	"github.com/fxfactorial/silkworm/kv"
	"github.com/fxfactorial/silkworm/stagedsync"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		datadir   string
		toBlock   uint64
		batchSize datasize.ByteSize
		chainID   uint64
	)

	cmd := &cobra.Command{
		Use:           "execute",
		Short:         "Execute Ethereum blocks and write the result into the DB",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datadir); err != nil {
				fmt.Fprintf(os.Stderr, "Can't find a valid data directory at %s\n", datadir)
				return errExitCode(-2)
			}

			db := kv.NewMemDB() // the real mdbx-backed store is out of scope; see DESIGN.md
			exec := &execution.MockExecutor{HighestAvailableBlock: math.MaxUint64}

			log.Info(fmt.Sprintf("Starting block execution. datadir: %s", datadir))

			cfg := stagedsync.ExecutionConfig{
				ChainID:        chainID,
				ToBlock:        toBlock,
				BatchSizeBytes: uint64(batchSize.Bytes()),
			}
			_, err := stagedsync.RunExecutionStage(cmd.Context(), db, exec, cfg)
			if err != nil {
				if errors.Is(err, stagedsync.ErrLegacyReceiptsUnsupported) {
					fmt.Fprintln(os.Stderr, "Legacy stored receipts are not supported")
					return errExitCode(-1)
				}
				fmt.Fprintf(os.Stderr, "Unexpected error: %v\n", err)
				return errExitCode(-2)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&datadir, "datadir", "d", "", "path to a database populated by the chain sync pipeline")
	must(cmd.MarkFlagRequired("datadir"))
	cmd.Flags().Uint64Var(&toBlock, "to", math.MaxUint64, "block to execute up to")
	cmd.Flags().Var(&batchSizeFlag{&batchSize}, "batch-mib", "batch size of DB changes to accumulate before committing")
	batchSize = 512 * datasize.MB
	cmd.Flags().Uint64Var(&chainID, "chain-id", 1, "chain id to execute against")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if code, ok := asExitCode(err); ok {
			return code
		}
		fmt.Fprintln(os.Stderr, err)
		return -2
	}
	return 0
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string { return fmt.Sprintf("exit code %d", int(e)) }

func errExitCode(code int) error { return exitCodeError(code) }

func asExitCode(err error) (int, bool) {
	var e exitCodeError
	if errors.As(err, &e) {
		return int(e), true
	}
	return 0, false
}

// batchSizeFlag adapts a datasize.ByteSize into cobra's pflag.Value.
type batchSizeFlag struct {
	v *datasize.ByteSize
}

func (f *batchSizeFlag) String() string {
	if f.v == nil {
		return ""
	}
	return f.v.HumanReadable()
}

func (f *batchSizeFlag) Set(s string) error {
	return f.v.UnmarshalText([]byte(s))
}

func (f *batchSizeFlag) Type() string { return "byteSize" }
