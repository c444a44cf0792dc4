package execution

import "github.com/fxfactorial/silkworm/kv"

// MockExecutor is a deterministic stand-in for the real executor, used to
// exercise the Execution stage driver without an EVM. It "executes" a fixed
// highest available block number, advancing in batches of BatchBlocks blocks
// regardless of batchSizeBytes, and reports BlockNotFound once from exceeds
// the available range.
type MockExecutor struct {
	// HighestAvailableBlock is the last block this executor knows about;
	// requests for blocks beyond it report StatusBlockNotFound.
	HighestAvailableBlock uint64
	// BatchBlocks caps how many blocks are executed per call, simulating the
	// real executor's batch-size-triggered early return. Zero means
	// unbounded (limited only by to/HighestAvailableBlock).
	BatchBlocks uint64
	// FailAt, if nonzero, makes the call covering that block number return
	// StatusInvalidBlock instead of advancing.
	FailAt uint64

	Calls []Call
}

// Call records one invocation of ExecuteBlocks for test assertions.
type Call struct {
	From, To       uint64
	BatchSizeBytes uint64
}

func (m *MockExecutor) ExecuteBlocks(_ kv.RwTx, _ uint64, from, to uint64, batchSizeBytes uint64, _ bool) (Status, uint64, error) {
	m.Calls = append(m.Calls, Call{From: from, To: to, BatchSizeBytes: batchSizeBytes})

	if m.FailAt != 0 && from <= m.FailAt && m.FailAt <= to {
		return StatusInvalidBlock, from - 1, nil
	}

	if from > m.HighestAvailableBlock {
		return StatusBlockNotFound, from - 1, nil
	}

	end := to
	if end > m.HighestAvailableBlock {
		end = m.HighestAvailableBlock
	}
	if m.BatchBlocks != 0 && end-from+1 > m.BatchBlocks {
		end = from + m.BatchBlocks - 1
	}
	return StatusSuccess, end, nil
}
