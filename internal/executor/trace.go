package executor

import (
	"context"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// TraceResult pairs one transaction's execution outcome with its
// trace, preserving input order for trace_call_many (§4.4).
type TraceResult struct {
	Outcome *CallOutcome
	Err     error
	GasUsed uint64
	Traces  []Trace
}

// TraceRequest is one call's worth of trace_call/trace_call_many
// input: the transaction, the trace types requested for it, and its
// own meta keys, mirroring the original bridge's per-call
// (tx, traceTypes, metaKeys) tuple rather than one setting shared
// across a whole batch.
type TraceRequest struct {
	Tx         rpctypes.RPCTransaction
	TraceTypes []string
	MetaKeys   []string
}

// TraceCallMany executes each call against the same forked state root
// and returns results positionally, per §4.4 and the ordering
// guarantee of §5. It routes through Engine.Trace so the traces
// collected are the upstream's own trace_call/trace_callMany payload.
func (e *Executor) TraceCallMany(ctx context.Context, calls []TraceRequest, block rpctypes.BlockID) ([]TraceResult, error) {
	stateRoot, _, err := ResolveBlockToStateRoot(ctx, e.Ledger, block)
	if err != nil {
		return nil, err
	}

	params := make([]TraceCallParams, len(calls))
	for i, c := range calls {
		callParams := DefaultCallParams(c.Tx, nil)
		callParams.GasPrice = 0

		metaKeys, _ := e.injectMetaKeys(ctx, callParams, c.MetaKeys)
		params[i] = TraceCallParams{Call: callParams, MetaKeys: metaKeys, TraceTypes: c.TraceTypes}
	}

	execResults, err := e.Engine.Trace(ctx, stateRoot, params)
	if err != nil {
		return nil, bridgeerr.EvmStateError(err)
	}

	results := make([]TraceResult, len(execResults))
	for i, r := range execResults {
		outcome, splitErr := splitExitReason(r.Reason, r.Output)
		results[i] = TraceResult{Outcome: outcome, Err: splitErr, GasUsed: r.GasUsed, Traces: r.Traces}
	}
	return results, nil
}

// TraceReplayTransaction re-executes an already-located transaction
// against its parent block's state root (§4.4). The caller is
// responsible for locating tx by hash (pool-first, then upstream, per
// §4.5). A transaction with no recorded block is "absent", not an
// error: this returns nil without executing anything.
func (e *Executor) TraceReplayTransaction(ctx context.Context, tx rpctypes.RPCTransaction, traceTypes []string, metaKeys []string) (*TraceResult, error) {
	if tx.BlockNumber == nil {
		return nil, nil
	}

	number := (*tx.BlockNumber).ToInt().Uint64()
	parentID := parentBlockID(number)

	results, err := e.TraceCallMany(ctx, []TraceRequest{{Tx: tx, TraceTypes: traceTypes, MetaKeys: metaKeys}}, parentID)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// TraceReplayBlock fetches the block (full=true) and replays its
// transactions against the parent block's state (§4.4), applying the
// same trace types and meta keys to every transaction in the block,
// matching the original bridge's single trace_replayBlockTransactions
// call over the whole block. Fails with Unimplemented when the block
// has no full transaction list.
func (e *Executor) TraceReplayBlock(ctx context.Context, number uint64, traceTypes []string, metaKeys []string) ([]TraceResult, error) {
	txs, full, err := e.Ledger.BlockTransactions(ctx, number)
	if err != nil {
		return nil, bridgeerr.EvmStateError(err)
	}
	if !full {
		return nil, bridgeerr.Unimplemented("trace_replayBlockTransactions")
	}

	parentID := parentBlockID(number)
	requests := make([]TraceRequest, len(txs))
	for i, tx := range txs {
		requests[i] = TraceRequest{Tx: tx, TraceTypes: traceTypes, MetaKeys: metaKeys}
	}
	return e.TraceCallMany(ctx, requests, parentID)
}

func parentBlockID(number uint64) rpctypes.BlockID {
	if number == 0 {
		return rpctypes.BlockIDNumber(0)
	}
	return rpctypes.BlockIDNumber(number - 1)
}
