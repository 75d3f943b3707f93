package executor

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// EthToNativeTransferAddress is the well-known precompile address
// that triggers the ETH-to-native-token transfer ABI shortcut (§4.4).
var EthToNativeTransferAddress = common.HexToAddress("0x56454c41532d434841494e000000000053594d424f4c")

// CallOutcome is the user-facing split of an executor exit reason
// (§4.4's Succeed/Revert/Error/Fatal → Ok/CallRevert/CallError/CallFatal).
type CallOutcome struct {
	Output []byte
	Err    error
}

// Executor composes a Ledger and an Engine to answer eth_call,
// eth_estimateGas, and the trace_* family.
type Executor struct {
	Ledger Ledger
	Engine Engine
	Logger interface {
		Debug(msg string, ctx ...interface{})
	}
}

// Call implements speculative eth_call (§4.4). callerKeys are the
// caller-supplied meta keys (the JSON-RPC call's own meta_keys
// parameter), merged with any ABI-derived key before reaching the
// engine.
func (e *Executor) Call(ctx context.Context, tx rpctypes.RPCTransaction, block rpctypes.BlockID, callerKeys []string) (*CallOutcome, error) {
	stateRoot, _, err := ResolveBlockToStateRoot(ctx, e.Ledger, block)
	if err != nil {
		return nil, err
	}
	params := DefaultCallParams(tx, nil)
	params.GasPrice = 0 // speculative calls always run with gasPrice zero

	metaKeys, err := e.injectMetaKeys(ctx, params, callerKeys)
	if err != nil {
		return nil, err
	}

	reason, output, _, err := e.Engine.Execute(ctx, stateRoot, params, metaKeys, ExecConfig{})
	if err != nil {
		return nil, bridgeerr.EvmStateError(err)
	}
	return splitExitReason(reason, output)
}

// EstimateGas mirrors Call but returns the gas used instead of the
// output bytes.
func (e *Executor) EstimateGas(ctx context.Context, tx rpctypes.RPCTransaction, block rpctypes.BlockID, callerKeys []string) (uint64, error) {
	stateRoot, _, err := ResolveBlockToStateRoot(ctx, e.Ledger, block)
	if err != nil {
		return 0, err
	}
	params := DefaultCallParams(tx, nil)
	params.GasPrice = 0

	metaKeys, err := e.injectMetaKeys(ctx, params, callerKeys)
	if err != nil {
		return 0, err
	}

	reason, output, gasUsed, err := e.Engine.Execute(ctx, stateRoot, params, metaKeys, ExecConfig{Estimate: true})
	if err != nil {
		return 0, bridgeerr.EvmStateError(err)
	}
	if _, err := splitExitReason(reason, output); err != nil {
		return 0, err
	}
	return gasUsed, nil
}

// injectMetaKeys merges the caller-supplied meta keys with, when the
// call targets the well-known transfer address, the ABI-parsed
// referenced account (§4.4), then validates each key against the
// ledger so an unresolvable key is dropped rather than forwarded.
// ABI parse failure is logged and the call proceeds without the extra
// key.
func (e *Executor) injectMetaKeys(ctx context.Context, params CallParams, callerKeys []string) ([]string, error) {
	keys := append([]string{}, callerKeys...)
	if params.To != nil && *params.To == EthToNativeTransferAddress {
		if pubkey, ok := parseTransferAccount(params.Input); ok {
			keys = append(keys, pubkey)
		} else if e.Logger != nil {
			e.Logger.Debug("failed to ABI-parse ETH-to-native transfer input", "input", hex.EncodeToString(params.Input))
		}
	}
	validated := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, err := e.Ledger.AccountFor(ctx, k); err != nil {
			if e.Logger != nil {
				e.Logger.Debug("failed to load meta key account", "key", k, "err", err)
			}
			continue
		}
		validated = append(validated, k)
	}
	return validated, nil
}

// parseTransferAccount extracts the destination account reference
// from the transfer call's input: a 4-byte selector followed by a
// 32-byte word whose low 20 bytes name the referenced account,
// matching the one narrow ABI shape this shortcut recognizes.
func parseTransferAccount(input []byte) (string, bool) {
	if len(input) < 36 {
		return "", false
	}
	word := input[4:36]
	addr := common.BytesToAddress(word[12:])
	if addr == (common.Address{}) {
		return "", false
	}
	return addr.Hex(), true
}

func splitExitReason(reason ExitReason, output []byte) (*CallOutcome, error) {
	switch reason.Kind {
	case ExitSucceed:
		return &CallOutcome{Output: output}, nil
	case ExitRevert:
		return nil, bridgeerr.CallRevert(output, reason.Err)
	case ExitError:
		return nil, bridgeerr.CallError(output, reason.Err)
	default:
		return nil, bridgeerr.CallFatal(reason.Err)
	}
}
