// Package config holds the bridge's immutable, process-wide settings
// (§9 Global state): chain id, gas-price floor, max-logs cap, and the
// simulate/verbose-errors flags, computed once at startup.
package config

// Solana fee-calculator constants the original bridge's default
// min-gas-price formula is grounded on (§6.1): the smallest EVM call
// costs 21000 gas, scaled by the lamports-to-gwei price and divided by
// the network's target lamports-per-signature.
const (
	lamportsToGweiPrice             = 1_000_000_000
	defaultTargetLamportsPerSig     = 10_000
	smallestCallGas                 = 21_000
	gwei                        uint64 = 1_000_000_000
)

// Config is the bridge's immutable, process-wide configuration.
type Config struct {
	RPCAddress      string
	BindingAddress  string
	EvmChainID      uint64
	MinGasPrice     uint64
	VerboseErrors   bool
	Simulate        bool
	MaxLogsBlocks   uint64
	JaegerURL       string
	Keyfile         string
}

// DefaultEvmChainID is §6.1's default (0xdead).
const DefaultEvmChainID = 57005

// DefaultMaxLogsBlocks is §6.1's default per-request log-range cap.
const DefaultMaxLogsBlocks = 500

// DefaultRPCAddress and DefaultBindingAddress are §6.1's defaults.
const (
	DefaultRPCAddress     = "http://127.0.0.1:8899"
	DefaultBindingAddress = "127.0.0.1:8545"
)

// DefaultMinGasPrice computes the formulaic gas-price floor of §6.1:
// 21000 * LAMPORTS_TO_GWEI_PRICE / DEFAULT_TARGET_LAMPORTS_PER_SIGNATURE,
// then rounded up to the next gwei.
func DefaultMinGasPrice() uint64 {
	price := uint64(smallestCallGas) * uint64(lamportsToGweiPrice) / uint64(defaultTargetLamportsPerSig)
	return RoundUpToGwei(price)
}

// RoundUpToGwei rounds price up to the nearest multiple of one gwei,
// matching the original bridge's "ceil to gwei for metamask" step.
func RoundUpToGwei(price uint64) uint64 {
	price += gwei - 1
	return price - price%gwei
}
