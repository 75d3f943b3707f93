// Package bridgerpc implements the four Ethereum JSON-RPC method
// groups (C6): Bridge, General, Chain, and Trace. Each group is a
// small Go type whose exported methods the server registers under a
// go-ethereum rpc.Server namespace.
package bridgerpc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/velas/evm-bridge/internal/executor"
	"github.com/velas/evm-bridge/internal/pool"
	"github.com/velas/evm-bridge/internal/upstream"
	"github.com/velas/evm-bridge/pkg/txsign"
)

// Deps is the shared collaborator set every RPC group is built from,
// mirroring how the original bridge threaded a single EvmBridge
// struct through every handler group.
type Deps struct {
	Upstream      *upstream.Client
	Pool          *pool.Pool
	Executor      *executor.Executor
	Keys          map[common.Address]*txsign.Key
	ChainID       uint64
	MinGasPrice   uint64
	MaxLogsBlocks uint64
	Simulate      bool
	VerboseErrors bool
	Logger        log.Logger
}

func (d *Deps) keyFor(addr common.Address) (*txsign.Key, bool) {
	k, ok := d.Keys[addr]
	return k, ok
}
