// Package executor implements the speculative executor (C5):
// block-to-state-root resolution, state forking, per-transaction
// parameter defaulting, and meta-key injection. The EVM engine itself
// (opcode interpretation, gas accounting, state trie) is an external
// collaborator reached only through the two interfaces below.
package executor

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// BlockHeader is the minimal header view the executor needs to
// resolve block identifiers to state roots (§4.4).
type BlockHeader struct {
	Number    uint64
	Hash      common.Hash
	StateRoot common.Hash
}

// Ledger is the bank/EVM-state reader the executor forks from.
type Ledger interface {
	CurrentBlockNumber(ctx context.Context) (uint64, error)
	FirstAvailableBlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (*BlockHeader, error)
	HeaderByHash(ctx context.Context, hash common.Hash) (*BlockHeader, error)
	AccountFor(ctx context.Context, pubkey string) (json.RawMessage, error)
	// TransactionBlockNumber locates the block containing hash, if any.
	TransactionBlockNumber(ctx context.Context, hash common.Hash) (uint64, bool, error)
	// BlockTransactions returns a block's full transaction list; full
	// is false when the upstream block omits it (§4.4 trace_replay_block).
	BlockTransactions(ctx context.Context, number uint64) (txs []rpctypes.RPCTransaction, full bool, err error)
}

// ExitKind mirrors the EVM engine's four terminal states (§4.4).
type ExitKind int

const (
	ExitSucceed ExitKind = iota
	ExitRevert
	ExitError
	ExitFatal
)

type ExitReason struct {
	Kind ExitKind
	Err  error
}

// CallParams is the per-transaction parameter set after defaulting
// (§4.4's table).
type CallParams struct {
	From     common.Address
	To       *common.Address
	Gas      uint64
	GasPrice uint64
	Value    *big.Int
	Input    []byte
	Nonce    uint64
	Hash     common.Hash
}

// ExecConfig selects how Engine.Execute runs a call: with Estimate set
// it answers eth_estimateGas (gas used, no output), otherwise eth_call
// (output bytes). Call and EstimateGas both force gasPrice to zero
// before executing.
type ExecConfig struct {
	Estimate bool
}

// Trace is the engine's pass-through trace payload for one execution.
type Trace = json.RawMessage

// TraceCallParams is one call's worth of trace_call/trace_call_many
// input: the defaulted EVM parameters, the meta keys resolved for it,
// and the trace types the caller asked for (§4.4).
type TraceCallParams struct {
	Call       CallParams
	MetaKeys   []string
	TraceTypes []string
}

// TraceExecResult is one call's trace outcome, positionally aligned
// with the TraceCallParams that produced it.
type TraceExecResult struct {
	Reason  ExitReason
	Output  []byte
	GasUsed uint64
	Traces  []Trace
}

// Engine executes transactions against a forked state root. Execute
// answers eth_call/eth_estimateGas; Trace answers the trace_* family,
// routed through the upstream's own trace_call/trace_callMany so the
// pass-through traces it returns are real rather than always empty.
type Engine interface {
	Execute(ctx context.Context, stateRoot common.Hash, call CallParams, metaKeys []string, cfg ExecConfig) (ExitReason, []byte, uint64, error)
	Trace(ctx context.Context, stateRoot common.Hash, calls []TraceCallParams) ([]TraceExecResult, error)
}

// ResolveBlockToStateRoot implements §4.4's block-to-state-root
// resolution table.
func ResolveBlockToStateRoot(ctx context.Context, ledger Ledger, id rpctypes.BlockID) (common.Hash, uint64, error) {
	switch {
	case id.IsLatestOrPending():
		num, err := ledger.CurrentBlockNumber(ctx)
		if err != nil {
			return common.Hash{}, 0, bridgeerr.EvmStateError(err)
		}
		header, err := ledger.HeaderByNumber(ctx, num)
		if err != nil || header == nil {
			if num == 0 {
				return common.Hash{}, 0, bridgeerr.BlockNotFound()
			}
			header, err = ledger.HeaderByNumber(ctx, num-1)
			if err != nil || header == nil {
				return common.Hash{}, 0, bridgeerr.BlockNotFound()
			}
		}
		return header.StateRoot, header.Number, nil

	case id.Tag == rpctypes.TagEarliest:
		num, err := ledger.FirstAvailableBlockNumber(ctx)
		if err != nil {
			return common.Hash{}, 0, bridgeerr.EvmStateError(err)
		}
		header, err := ledger.HeaderByNumber(ctx, num)
		if err != nil || header == nil {
			return common.Hash{}, 0, bridgeerr.BlockNotFound()
		}
		return header.StateRoot, header.Number, nil

	case id.Number != nil:
		header, err := ledger.HeaderByNumber(ctx, *id.Number)
		if err != nil || header == nil {
			return common.Hash{}, 0, bridgeerr.BlockNotFound()
		}
		return header.StateRoot, header.Number, nil

	case id.Hash != nil:
		header, err := ledger.HeaderByHash(ctx, *id.Hash)
		if err != nil || header == nil {
			return common.Hash{}, 0, bridgeerr.BlockNotFound()
		}
		// Reject reorged forks: verify the block stored at this
		// number still hashes to the requested hash.
		byNumber, err := ledger.HeaderByNumber(ctx, header.Number)
		if err != nil || byNumber == nil || byNumber.Hash != *id.Hash {
			return common.Hash{}, 0, bridgeerr.BlockNotFound()
		}
		return header.StateRoot, header.Number, nil

	default:
		return common.Hash{}, 0, bridgeerr.BlockNotFound()
	}
}

// DefaultCallParams fills the per-transaction defaulting table of
// §4.4 for the fields absent from the wire-level RPCTransaction.
func DefaultCallParams(tx rpctypes.RPCTransaction, senderNonce func() uint64) CallParams {
	params := CallParams{
		From:     tx.From,
		To:       tx.To,
		Gas:      uint64(math.MaxUint64),
		GasPrice: 0,
		Value:    big.NewInt(0),
		Input:    []byte(tx.Input),
	}
	if tx.Gas != 0 {
		params.Gas = uint64(tx.Gas)
	}
	if tx.GasPrice != nil {
		params.GasPrice = (*big.Int)(tx.GasPrice).Uint64()
	}
	if tx.Value != nil {
		params.Value = (*big.Int)(tx.Value)
	}
	if tx.Nonce != 0 {
		params.Nonce = uint64(tx.Nonce)
	} else if senderNonce != nil {
		params.Nonce = senderNonce()
	}
	if tx.Hash != (common.Hash{}) {
		params.Hash = tx.Hash
	} else {
		params.Hash = randomHash()
	}
	return params
}

func randomHash() common.Hash {
	var h common.Hash
	_, _ = rand.Read(h[:])
	return h
}
