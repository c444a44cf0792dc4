// Package execution defines the contract of the block executor the
// Execution stage driver calls into. The executor itself — the EVM, state
// transition logic, receipt generation — is out of scope; only this
// interface and a deterministic mock implementation for driver tests live
// here.
package execution

import "github.com/fxfactorial/silkworm/kv"

// Status is the closed set of outcomes an executor call can report.
type Status int

const (
	StatusSuccess Status = iota
	StatusBlockNotFound
	StatusInvalidBlock
	StatusDecodingError
	StatusUnknownError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusBlockNotFound:
		return "BlockNotFound"
	case StatusInvalidBlock:
		return "InvalidBlock"
	case StatusDecodingError:
		return "DecodingError"
	default:
		return "UnknownError"
	}
}

// Fatal reports whether status is anything other than Success or
// BlockNotFound — the two outcomes the driver treats as ordinary control
// flow rather than an abort condition.
func (s Status) Fatal() bool {
	return s != StatusSuccess && s != StatusBlockNotFound
}

// Executor executes a contiguous range of blocks [from, to] against an open
// read-write transaction, stopping early if it runs out of input or exceeds
// batchSizeBytes of accumulated state changes.
type Executor interface {
	ExecuteBlocks(tx kv.RwTx, chainID uint64, from, to uint64, batchSizeBytes uint64, writeReceipts bool) (status Status, lastExecuted uint64, err error)
}
