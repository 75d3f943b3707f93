package bridgerpc

import (
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/velas/evm-bridge/internal/executor"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// TraceService answers the trace_* namespace (§4.5).
type TraceService struct{ *Deps }

func NewTraceService(d *Deps) *TraceService { return &TraceService{d} }

// TraceResultWithTransactionHash is the user-visible shape zipping an
// executor trace result with its originating call's metadata (§4.4):
// the pass-through trace array the upstream produced, plus the
// transaction hash for batch results.
type TraceResultWithTransactionHash struct {
	Output interface{}      `json:"output,omitempty"`
	Trace  []executor.Trace `json:"trace,omitempty"`
	Error  string           `json:"error,omitempty"`
	Hash   *common.Hash     `json:"transactionHash,omitempty"`
}

func (s *TraceService) Call(ctx context.Context, tx rpctypes.RPCTransaction, traceTypes []string, block rpctypes.BlockID, metaKeys []string) (*TraceResultWithTransactionHash, error) {
	results, err := s.Executor.TraceCallMany(ctx, []executor.TraceRequest{{Tx: tx, TraceTypes: traceTypes, MetaKeys: metaKeys}}, block)
	if err != nil {
		return nil, err
	}
	return toTraceResult(results[0]), nil
}

// TraceCallTuple mirrors the original bridge's per-call
// (tx, traceTypes, metaKeys) wire tuple for trace_callMany: each call
// brings its own trace-type selection and meta keys instead of one
// setting shared across the whole batch.
type TraceCallTuple struct {
	Tx         rpctypes.RPCTransaction
	TraceTypes []string
	MetaKeys   []string
}

func (t *TraceCallTuple) UnmarshalJSON(data []byte) error {
	var raw [3]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &t.Tx); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &t.TraceTypes); err != nil {
		return err
	}
	if len(raw[2]) > 0 && string(raw[2]) != "null" {
		if err := json.Unmarshal(raw[2], &t.MetaKeys); err != nil {
			return err
		}
	}
	return nil
}

func (t TraceCallTuple) MarshalJSON() ([]byte, error) {
	var meta interface{}
	if t.MetaKeys != nil {
		meta = t.MetaKeys
	}
	return json.Marshal([3]interface{}{t.Tx, t.TraceTypes, meta})
}

func (s *TraceService) CallMany(ctx context.Context, calls []TraceCallTuple, block rpctypes.BlockID) ([]*TraceResultWithTransactionHash, error) {
	requests := make([]executor.TraceRequest, len(calls))
	for i, c := range calls {
		requests[i] = executor.TraceRequest{Tx: c.Tx, TraceTypes: c.TraceTypes, MetaKeys: c.MetaKeys}
	}
	results, err := s.Executor.TraceCallMany(ctx, requests, block)
	if err != nil {
		return nil, err
	}
	out := make([]*TraceResultWithTransactionHash, len(results))
	for i, r := range results {
		out[i] = toTraceResult(r)
		if i < len(calls) {
			out[i].Hash = &calls[i].Tx.Hash
		}
	}
	return out, nil
}

// ReplayTransaction locates tx by hash (pool-first, then upstream,
// matching transactionByHash's own dispatch rule) and re-executes it
// against the parent block. An unknown hash returns absent without
// executing (§8).
func (s *TraceService) ReplayTransaction(ctx context.Context, hash common.Hash, traceTypes []string, metaKeys []string) (*TraceResultWithTransactionHash, error) {
	chain := &ChainService{s.Deps}
	tx, err := chain.GetTransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	result, err := s.Executor.TraceReplayTransaction(ctx, *tx, traceTypes, metaKeys)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return toTraceResult(*result), nil
}

// ReplayBlock fetches the block (full=true) and replays its
// transactions against the parent block's state (§4.4).
func (s *TraceService) ReplayBlock(ctx context.Context, block rpctypes.BlockID, traceTypes []string, metaKeys []string) ([]*TraceResultWithTransactionHash, error) {
	chain := &ChainService{s.Deps}
	b, err := chain.getBlockByNumber(ctx, block, true)
	if err != nil {
		return nil, err
	}
	if b == nil || b.Number == nil {
		return nil, nil
	}
	results, err := s.Executor.TraceReplayBlock(ctx, (*b.Number).ToInt().Uint64(), traceTypes, metaKeys)
	if err != nil {
		return nil, err
	}
	out := make([]*TraceResultWithTransactionHash, len(results))
	for i, r := range results {
		out[i] = toTraceResult(r)
	}
	return out, nil
}

func toTraceResult(r executor.TraceResult) *TraceResultWithTransactionHash {
	out := &TraceResultWithTransactionHash{}
	if r.Err != nil {
		out.Error = r.Err.Error()
		return out
	}
	if r.Outcome != nil {
		out.Output = "0x" + hex.EncodeToString(r.Outcome.Output)
	}
	out.Trace = r.Traces
	return out
}
