package bridgerpc

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/velas/evm-bridge/internal/logquery"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// ChainService answers the ledger-read eth_* methods of §4.5.
type ChainService struct{ *Deps }

func NewChainService(d *Deps) *ChainService { return &ChainService{d} }

// zeroBlockHash is the special-case block hash of §4.5 that
// short-circuits to a default empty block without proxying upstream;
// getBlockByNumber applies the same shortcut to block number 0.
var zeroBlockHash = common.Hash{}

func (s *ChainService) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	n, err := s.Upstream.BlockNumber(ctx)
	return hexutil.Uint64(n), err
}

func (s *ChainService) GetBalance(ctx context.Context, addr common.Address, block rpctypes.BlockID) (*hexutil.Big, error) {
	return s.Upstream.GetBalance(ctx, addr, blockParam(block))
}

func (s *ChainService) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, block rpctypes.BlockID) (hexutil.Bytes, error) {
	return s.Upstream.GetStorageAt(ctx, addr, slot, blockParam(block))
}

// GetTransactionCount consults the pool first when the block tag is
// pending, returning the pool's view in preference to upstream (§4.5,
// Testable Property "Pending nonce preference").
func (s *ChainService) GetTransactionCount(ctx context.Context, addr common.Address, block rpctypes.BlockID) (hexutil.Uint64, error) {
	if block.Tag == rpctypes.TagPending {
		if n, ok := s.Pool.TransactionCount(addr); ok {
			return hexutil.Uint64(n), nil
		}
	}
	n, err := s.Upstream.GetTransactionCount(ctx, addr, blockParam(block))
	return hexutil.Uint64(n), err
}

func (s *ChainService) GetCode(ctx context.Context, addr common.Address, block rpctypes.BlockID) (hexutil.Bytes, error) {
	return s.Upstream.GetCode(ctx, addr, blockParam(block))
}

func (s *ChainService) GetBlockTransactionCountByHash(ctx context.Context, hash common.Hash) (*hexutil.Uint64, error) {
	block, err := s.getBlockByHash(ctx, hash, false)
	if err != nil || block == nil {
		return nil, err
	}
	n := hexutil.Uint64(len(block.Transactions))
	return &n, nil
}

func (s *ChainService) GetBlockTransactionCountByNumber(ctx context.Context, block rpctypes.BlockID) (*hexutil.Uint64, error) {
	b, err := s.getBlockByNumber(ctx, block, false)
	if err != nil || b == nil {
		return nil, err
	}
	n := hexutil.Uint64(len(b.Transactions))
	return &n, nil
}

func (s *ChainService) GetBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (*rpctypes.RPCBlock, error) {
	return s.getBlockByHash(ctx, hash, fullTx)
}

func (s *ChainService) GetBlockByNumber(ctx context.Context, block rpctypes.BlockID, fullTx bool) (*rpctypes.RPCBlock, error) {
	return s.getBlockByNumber(ctx, block, fullTx)
}

func (s *ChainService) getBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (*rpctypes.RPCBlock, error) {
	if hash == zeroBlockHash {
		return rpctypes.EmptyBlock(), nil
	}
	raw, err := s.Upstream.GetBlockByHash(ctx, hash, fullTx)
	return decodePatchedBlock(raw, err)
}

func (s *ChainService) getBlockByNumber(ctx context.Context, block rpctypes.BlockID, fullTx bool) (*rpctypes.RPCBlock, error) {
	if block.Number != nil && *block.Number == 0 {
		return rpctypes.EmptyBlock(), nil
	}
	raw, err := s.Upstream.GetBlockByNumber(ctx, blockParam(block), fullTx)
	return decodePatchedBlock(raw, err)
}

func decodePatchedBlock(raw json.RawMessage, err error) (*rpctypes.RPCBlock, error) {
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var block rpctypes.RPCBlock
	if jerr := json.Unmarshal(raw, &block); jerr != nil {
		return nil, jerr
	}
	patchBlock(&block)
	return &block, nil
}

// GetTransactionByHash consults the pool first (§4.5).
func (s *ChainService) GetTransactionByHash(ctx context.Context, hash common.Hash) (*rpctypes.RPCTransaction, error) {
	if entry, ok := s.Pool.TransactionByHash(hash); ok {
		return poolEntryToRPCTransaction(entry), nil
	}
	raw, err := s.Upstream.GetTransactionByHash(ctx, hash)
	return decodePatchedTransaction(raw, err)
}

func (s *ChainService) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*rpctypes.RPCReceipt, error) {
	raw, err := s.Upstream.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var receipt rpctypes.RPCReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func decodePatchedTransaction(raw json.RawMessage, err error) (*rpctypes.RPCTransaction, error) {
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var tx rpctypes.RPCTransaction
	if jerr := json.Unmarshal(raw, &tx); jerr != nil {
		return nil, jerr
	}
	patchTransaction(&tx)
	return &tx, nil
}

func poolEntryToRPCTransaction(entry interface {
	Nonce() uint64
}) *rpctypes.RPCTransaction {
	// The pool-local view surfaces only what §4.5 requires for a
	// just-submitted, not-yet-landed transaction: nonce visibility.
	// Block linkage fields stay nil until the tx lands and upstream
	// becomes the source of truth.
	n := hexutil.Uint64(entry.Nonce())
	return &rpctypes.RPCTransaction{Nonce: n}
}

func (s *ChainService) Call(ctx context.Context, tx rpctypes.RPCTransaction, block rpctypes.BlockID, metaKeys []string) (hexutil.Bytes, error) {
	outcome, err := s.Executor.Call(ctx, tx, block, metaKeys)
	if err != nil {
		return nil, err
	}
	return outcome.Output, nil
}

func (s *ChainService) EstimateGas(ctx context.Context, tx rpctypes.RPCTransaction, block rpctypes.BlockID, metaKeys []string) (hexutil.Uint64, error) {
	gas, err := s.Executor.EstimateGas(ctx, tx, block, metaKeys)
	return hexutil.Uint64(gas), err
}

// GetLogs validates and chunks the request (§4.7).
func (s *ChainService) GetLogs(ctx context.Context, filter rpctypes.RPCLogFilter) ([]*rpctypes.RPCLog, error) {
	from, to, err := s.resolveLogRange(ctx, filter)
	if err != nil {
		return nil, err
	}

	chunks, err := logquery.Plan(ctx, from, to, s.MaxLogsBlocks, func(ctx context.Context, from, to uint64) (json.RawMessage, error) {
		sub := filter
		fromID := rpctypes.BlockIDNumber(from)
		toID := rpctypes.BlockIDNumber(to)
		sub.FromBlock = &fromID
		sub.ToBlock = &toID
		return s.Upstream.GetLogs(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	var out []*rpctypes.RPCLog
	for _, raw := range chunks {
		var logs []*rpctypes.RPCLog
		if err := json.Unmarshal(raw, &logs); err != nil {
			return nil, err
		}
		out = append(out, logs...)
	}
	return out, nil
}

func (s *ChainService) resolveLogRange(ctx context.Context, filter rpctypes.RPCLogFilter) (uint64, uint64, error) {
	current, err := s.Upstream.BlockNumber(ctx)
	if err != nil {
		return 0, 0, err
	}
	from := current
	if filter.FromBlock != nil && filter.FromBlock.Number != nil {
		from = *filter.FromBlock.Number
	}
	to := current
	if filter.ToBlock != nil && filter.ToBlock.Number != nil {
		to = *filter.ToBlock.Number
	}
	return from, to, nil
}

func (s *ChainService) GetUncleByBlockHashAndIndex(ctx context.Context, hash common.Hash, index hexutil.Uint64) (*rpctypes.RPCBlock, error) {
	return nil, nil
}

func (s *ChainService) GetUncleByBlockNumberAndIndex(ctx context.Context, block rpctypes.BlockID, index hexutil.Uint64) (*rpctypes.RPCBlock, error) {
	return nil, nil
}

func (s *ChainService) GetUncleCountByBlockHash(ctx context.Context, hash common.Hash) hexutil.Uint64 { return 0 }

func (s *ChainService) GetUncleCountByBlockNumber(ctx context.Context, block rpctypes.BlockID) hexutil.Uint64 {
	return 0
}

// blockParam converts a BlockID into the positional argument upstream
// expects: the symbolic tag, a numeric quantity, or an EIP-1898-style
// block-hash object.
func blockParam(id rpctypes.BlockID) interface{} {
	switch {
	case id.Hash != nil:
		return map[string]common.Hash{"blockHash": *id.Hash}
	case id.Number != nil:
		return hexutil.Uint64(*id.Number)
	case id.Tag == rpctypes.TagEarliest:
		return "earliest"
	case id.Tag == rpctypes.TagPending:
		return "pending"
	default:
		return "latest"
	}
}
