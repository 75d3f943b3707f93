// Package upstream is the typed wrapper over the Solana-style JSON-RPC
// upstream (C2 in the design). One method per upstream call used by
// the bridge; every method funnels errors through translate so
// callers only ever see the bridge's own error taxonomy.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Client is a thin, typed facade over a *rpc.Client pointed at the
// Solana-style cluster's JSON-RPC endpoint.
type Client struct {
	rpc     *ethrpc.Client
	verbose bool
}

// Dial connects to the upstream endpoint. verbose controls whether
// NativeRpc errors surface their full underlying cause (§6.1
// --verbose-errors).
func Dial(ctx context.Context, addr string, verbose bool) (*Client, error) {
	c, err := ethrpc.DialContext(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("dial upstream %s: %w", addr, err)
	}
	return &Client{rpc: c, verbose: verbose}, nil
}

func (c *Client) Close() { c.rpc.Close() }

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		return c.translate(err)
	}
	return nil
}

// BlockNumber returns the upstream's current confirmed block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

func (c *Client) GetBalance(ctx context.Context, addr common.Address, block interface{}) (*hexutil.Big, error) {
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_getBalance", addr, block); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetStorageAt(ctx context.Context, addr common.Address, slot common.Hash, block interface{}) (hexutil.Bytes, error) {
	var result hexutil.Bytes
	if err := c.call(ctx, &result, "eth_getStorageAt", addr, slot, block); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetTransactionCount(ctx context.Context, addr common.Address, block interface{}) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_getTransactionCount", addr, block); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

func (c *Client) GetCode(ctx context.Context, addr common.Address, block interface{}) (hexutil.Bytes, error) {
	var result hexutil.Bytes
	if err := c.call(ctx, &result, "eth_getCode", addr, block); err != nil {
		return nil, err
	}
	return result, nil
}

// GetBlockByHash and GetBlockByNumber return the raw upstream block
// object. Blocks are produced entirely by the upstream EVM and passed
// through save for the compatibility patch applied by the caller.
func (c *Client) GetBlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "eth_getBlockByHash", hash, fullTx); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetBlockByNumber(ctx context.Context, block interface{}, fullTx bool) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "eth_getBlockByNumber", block, fullTx); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetTransactionReceipt(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Call(ctx context.Context, callArgs interface{}, block interface{}) (hexutil.Bytes, error) {
	var result hexutil.Bytes
	if err := c.call(ctx, &result, "eth_call", callArgs, block); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) EstimateGas(ctx context.Context, callArgs interface{}) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_estimateGas", callArgs); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

func (c *Client) GetLogs(ctx context.Context, filter interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "eth_getLogs", filter); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) TraceCall(ctx context.Context, callArgs interface{}, traceType []string, block interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "trace_call", callArgs, traceType, block); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) TraceCallMany(ctx context.Context, calls interface{}, block interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "trace_callMany", calls, block); err != nil {
		return nil, err
	}
	return result, nil
}

// EthSyncing proxies eth_syncing and decodes the answer as a boolean.
// An object-shaped sync-progress answer does not decode and is returned
// as an error. The bridge has no sync state of its own (§4.5).
func (c *Client) EthSyncing(ctx context.Context) (bool, error) {
	var result bool
	if err := c.call(ctx, &result, "eth_syncing"); err != nil {
		return false, err
	}
	return result, nil
}

// SendRawTransaction submits a signed, RLP-encoded EVM transaction
// wrapped by the pool workers into a Solana-style transaction and
// returns the upstream signature.
func (c *Client) SendRawTransaction(ctx context.Context, wrapped []byte) (string, error) {
	var result string
	if err := c.call(ctx, &result, "sendTransaction", hexutil.Encode(wrapped)); err != nil {
		return "", err
	}
	return result, nil
}

// GetSignatureStatuses polls the status of previously submitted
// Solana-style signatures for the signature-checker worker (§4.3).
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "getSignatureStatuses", signatures, map[string]bool{"searchTransactionHistory": true}); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, &result, "getLatestBlockhash"); err != nil {
		return "", err
	}
	return result.Value.Blockhash, nil
}

// GetFirstAvailableBlock returns the lowest confirmed block still
// retained by the upstream, used to resolve the "earliest" tag (§4.4).
func (c *Client) GetFirstAvailableBlock(ctx context.Context) (uint64, error) {
	var result uint64
	if err := c.call(ctx, &result, "getFirstAvailableBlock"); err != nil {
		return 0, err
	}
	return result, nil
}

// GetAccountInfo fetches a Solana-style account by its base58 public
// key, used for meta-key injection (§4.4).
func (c *Client) GetAccountInfo(ctx context.Context, pubkey string) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.call(ctx, &result, "getAccountInfo", pubkey, map[string]string{"encoding": "base64"}); err != nil {
		return nil, err
	}
	return result, nil
}
