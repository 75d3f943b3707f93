// Package upstreamengine adapts the Solana-style upstream (C2) to the
// executor's Ledger and Engine interfaces (C5). The embedded EVM and
// its state trie live entirely behind the upstream's own eth_* and
// trace_* methods; this package only reshapes those answers into the
// executor's narrower, typed contracts.
package upstreamengine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/velas/evm-bridge/internal/executor"
	"github.com/velas/evm-bridge/internal/upstream"
	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// Ledger implements executor.Ledger against an upstream.Client.
type Ledger struct {
	Upstream *upstream.Client
}

func NewLedger(u *upstream.Client) *Ledger { return &Ledger{Upstream: u} }

func (l *Ledger) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	return l.Upstream.BlockNumber(ctx)
}

// FirstAvailableBlockNumber resolves the "earliest" tag to the lowest
// block the upstream still retains, via Solana's own
// getFirstAvailableBlock method: the retrieved source's evm_rpc_impl
// has no dedicated "first available EVM block" helper of its own, so
// this reuses the cluster's native notion of its earliest retained
// slot rather than inventing a bridge-local one.
func (l *Ledger) FirstAvailableBlockNumber(ctx context.Context) (uint64, error) {
	return l.Upstream.GetFirstAvailableBlock(ctx)
}

func (l *Ledger) HeaderByNumber(ctx context.Context, number uint64) (*executor.BlockHeader, error) {
	raw, err := l.Upstream.GetBlockByNumber(ctx, hexutil.Uint64(number), false)
	if err != nil {
		return nil, err
	}
	return headerFromRaw(raw)
}

func (l *Ledger) HeaderByHash(ctx context.Context, hash common.Hash) (*executor.BlockHeader, error) {
	raw, err := l.Upstream.GetBlockByHash(ctx, hash, false)
	if err != nil {
		return nil, err
	}
	return headerFromRaw(raw)
}

func (l *Ledger) AccountFor(ctx context.Context, pubkey string) (json.RawMessage, error) {
	return l.Upstream.GetAccountInfo(ctx, pubkey)
}

// TransactionBlockNumber locates hash's containing block by asking the
// upstream for the transaction's own receipt-free record (§4.4).
func (l *Ledger) TransactionBlockNumber(ctx context.Context, hash common.Hash) (uint64, bool, error) {
	raw, err := l.Upstream.GetTransactionByHash(ctx, hash)
	if err != nil {
		return 0, false, err
	}
	if raw == nil || string(raw) == "null" {
		return 0, false, nil
	}
	var tx rpctypes.RPCTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return 0, false, bridgeerr.RlpError(raw, err)
	}
	if tx.BlockNumber == nil {
		return 0, false, nil
	}
	return (*big.Int)(tx.BlockNumber).Uint64(), true, nil
}

// BlockTransactions fetches number's full transaction list (§4.4
// trace_replayBlockTransactions).
func (l *Ledger) BlockTransactions(ctx context.Context, number uint64) ([]rpctypes.RPCTransaction, bool, error) {
	raw, err := l.Upstream.GetBlockByNumber(ctx, hexutil.Uint64(number), true)
	if err != nil {
		return nil, false, err
	}
	if raw == nil || string(raw) == "null" {
		return nil, false, bridgeerr.BlockNotFound()
	}
	var block struct {
		Transactions []rpctypes.RPCTransaction `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, false, bridgeerr.RlpError(raw, err)
	}
	return block.Transactions, true, nil
}

func headerFromRaw(raw json.RawMessage) (*executor.BlockHeader, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var b struct {
		Number    *hexutil.Big `json:"number"`
		Hash      *common.Hash `json:"hash"`
		StateRoot common.Hash  `json:"stateRoot"`
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, bridgeerr.RlpError(raw, err)
	}
	if b.Number == nil {
		return nil, nil
	}
	header := &executor.BlockHeader{
		Number:    (*big.Int)(b.Number).Uint64(),
		StateRoot: b.StateRoot,
	}
	if b.Hash != nil {
		header.Hash = *b.Hash
		// The trie itself lives entirely inside the upstream engine
		// (§1 Non-goals), so this adapter has no independent state
		// root to fork from. It pins subsequent calls by block hash
		// instead, and threads that value through Execute's stateRoot
		// parameter as the addressing key the upstream actually
		// understands.
		header.StateRoot = *b.Hash
	}
	return header, nil
}

// Engine implements executor.Engine by delegating execution to the
// upstream's eth_call / eth_estimateGas, since the EVM interpreter and
// state trie are the upstream's responsibility (§1 Non-goals). It
// forwards the meta keys in the call object's metaKeys field so the
// upstream's own engine can resolve the native-token transfer shortcut
// of §4.4. eth_call is pinned by block hash (see blockPin);
// eth_estimateGas is sent without a block argument.
type Engine struct {
	Upstream *upstream.Client
}

func NewEngine(u *upstream.Client) *Engine { return &Engine{Upstream: u} }

type callRequest struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas,omitempty"`
	GasPrice hexutil.Uint64  `json:"gasPrice,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Meta     []string        `json:"metaKeys,omitempty"`
}

func (e *Engine) Execute(ctx context.Context, stateRoot common.Hash, call executor.CallParams, metaKeys []string, cfg executor.ExecConfig) (executor.ExitReason, []byte, uint64, error) {
	req := toCallRequest(call, metaKeys)
	if cfg.Estimate {
		req.GasPrice = 0
	}

	pin := blockPin(stateRoot)

	if cfg.Estimate {
		gas, err := e.Upstream.EstimateGas(ctx, req)
		if err != nil {
			reason, output, _ := splitError(err)
			return reason, output, 0, fatalErr(reason, err)
		}
		return executor.ExitReason{Kind: executor.ExitSucceed}, nil, gas, nil
	}

	output, err := e.Upstream.Call(ctx, req, pin)
	if err != nil {
		reason, out, gasUsed := splitError(err)
		return reason, out, gasUsed, fatalErr(reason, err)
	}
	return executor.ExitReason{Kind: executor.ExitSucceed}, output, call.Gas, nil
}

// Trace answers the trace_* family by delegating to the upstream's own
// trace_call (single) or trace_callMany (batch) RPC method, so the
// traces returned are the upstream engine's real pass-through payload
// rather than always nil (§4.4).
func (e *Engine) Trace(ctx context.Context, stateRoot common.Hash, calls []executor.TraceCallParams) ([]executor.TraceExecResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	pin := blockPin(stateRoot)
	if len(calls) == 1 {
		return []executor.TraceExecResult{e.traceOne(ctx, pin, calls[0])}, nil
	}
	return e.traceMany(ctx, pin, calls), nil
}

func (e *Engine) traceOne(ctx context.Context, pin interface{}, c executor.TraceCallParams) executor.TraceExecResult {
	req := toCallRequest(c.Call, c.MetaKeys)
	raw, err := e.Upstream.TraceCall(ctx, req, c.TraceTypes, pin)
	if err != nil {
		reason, output, gasUsed := splitError(err)
		return executor.TraceExecResult{Reason: reason, Output: output, GasUsed: gasUsed}
	}
	return decodeTraceResult(raw)
}

func (e *Engine) traceMany(ctx context.Context, pin interface{}, calls []executor.TraceCallParams) []executor.TraceExecResult {
	batch := make([]traceManyEntry, len(calls))
	for i, c := range calls {
		batch[i] = traceManyEntry{Call: toCallRequest(c.Call, c.MetaKeys), TraceTypes: c.TraceTypes}
	}
	raw, err := e.Upstream.TraceCallMany(ctx, batch, pin)
	if err != nil {
		reason, output, gasUsed := splitError(err)
		out := make([]executor.TraceExecResult, len(calls))
		for i := range out {
			out[i] = executor.TraceExecResult{Reason: reason, Output: output, GasUsed: gasUsed}
		}
		return out
	}
	return decodeTraceResultsMany(raw, len(calls))
}

func toCallRequest(call executor.CallParams, metaKeys []string) callRequest {
	req := callRequest{
		From:     call.From,
		To:       call.To,
		Gas:      hexutil.Uint64(call.Gas),
		GasPrice: hexutil.Uint64(call.GasPrice),
		Data:     call.Input,
		Meta:     metaKeys,
	}
	if call.Value != nil {
		v := hexutil.Big(*call.Value)
		req.Value = &v
	}
	return req
}

// traceManyEntry is the wire shape of one trace_callMany batch element:
// a call object paired with its own trace-type selection.
type traceManyEntry struct {
	Call       callRequest
	TraceTypes []string
}

func (t traceManyEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{t.Call, t.TraceTypes})
}

// traceCallResponse is the upstream's trace_call/trace_callMany
// element shape: the trace payload is opaque and passed straight
// through (§4.4 "produced entirely by the upstream").
type traceCallResponse struct {
	Output hexutil.Bytes   `json:"output"`
	Trace  json.RawMessage `json:"trace"`
}

func decodeTraceResult(raw json.RawMessage) executor.TraceExecResult {
	var resp traceCallResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return executor.TraceExecResult{Reason: executor.ExitReason{Kind: executor.ExitSucceed}, Traces: []executor.Trace{raw}}
	}
	var traces []executor.Trace
	if len(resp.Trace) > 0 {
		traces = []executor.Trace{resp.Trace}
	}
	return executor.TraceExecResult{Reason: executor.ExitReason{Kind: executor.ExitSucceed}, Output: resp.Output, Traces: traces}
}

func decodeTraceResultsMany(raw json.RawMessage, n int) []executor.TraceExecResult {
	var resps []traceCallResponse
	if err := json.Unmarshal(raw, &resps); err != nil || len(resps) != n {
		out := make([]executor.TraceExecResult, n)
		for i := range out {
			out[i] = executor.TraceExecResult{Reason: executor.ExitReason{Kind: executor.ExitSucceed}, Traces: []executor.Trace{raw}}
		}
		return out
	}
	out := make([]executor.TraceExecResult, n)
	for i, r := range resps {
		var traces []executor.Trace
		if len(r.Trace) > 0 {
			traces = []executor.Trace{r.Trace}
		}
		out[i] = executor.TraceExecResult{Reason: executor.ExitReason{Kind: executor.ExitSucceed}, Output: r.Output, Traces: traces}
	}
	return out
}

// blockPin addresses an eth_call/eth_estimateGas by the state root the
// executor resolved, treated as the block hash the upstream actually
// indexes (see headerFromRaw).
func blockPin(stateRoot common.Hash) interface{} {
	if stateRoot == (common.Hash{}) {
		return "latest"
	}
	return map[string]common.Hash{"blockHash": stateRoot}
}

// splitError maps an upstream.translate error (already typed as a
// bridgeerr.Error) down to the executor's exit taxonomy when it
// represents a call-level failure rather than a transport failure.
func splitError(err error) (executor.ExitReason, []byte, uint64) {
	if bridgeErr, ok := err.(*bridgeerr.Error); ok {
		switch bridgeErr.Code {
		case bridgeerr.CodeCallRevert:
			return executor.ExitReason{Kind: executor.ExitRevert, Err: bridgeErr}, nil, 0
		case bridgeerr.CodeCallError:
			return executor.ExitReason{Kind: executor.ExitError, Err: bridgeErr}, nil, 0
		}
	}
	return executor.ExitReason{Kind: executor.ExitFatal, Err: err}, nil, 0
}

// fatalErr surfaces a genuine Go error only for the Fatal kind
// (transport/translation failure); Revert/Error kinds carry their
// cause on the ExitReason itself and return nil here.
func fatalErr(reason executor.ExitReason, err error) error {
	if reason.Kind == executor.ExitFatal {
		return fmt.Errorf("engine execute: %w", err)
	}
	return nil
}
