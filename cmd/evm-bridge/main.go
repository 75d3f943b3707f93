// Command evm-bridge starts the Ethereum JSON-RPC bridge in front of
// the Solana-style upstream cluster (§6.1): it dials the upstream,
// starts the transaction pool's background workers, and serves the
// HTTP and WebSocket JSON-RPC hosts until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/velas/evm-bridge/internal/bridgerpc"
	"github.com/velas/evm-bridge/internal/config"
	"github.com/velas/evm-bridge/internal/executor"
	"github.com/velas/evm-bridge/internal/pool"
	"github.com/velas/evm-bridge/internal/server"
	"github.com/velas/evm-bridge/internal/solanatx"
	"github.com/velas/evm-bridge/internal/tracing"
	"github.com/velas/evm-bridge/internal/upstream"
	"github.com/velas/evm-bridge/internal/upstreamengine"
	"github.com/velas/evm-bridge/pkg/txsign"
)

// evmSigningKeyDummy is the bridge's one EVM signing key, grounded on
// the original bridge's SECRET_KEY_DUMMY: 32 bytes of 0x01. The
// Solana-style co-signing keypair is the separate positional keyfile
// argument (see loadSolanaWrapper below).
const evmSigningKeyDummy = "0101010101010101010101010101010101010101010101010101010101010101"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "evm-bridge [keyfile]",
		Short: "Ethereum JSON-RPC bridge in front of a Solana-style EVM cluster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keyfile string
			if len(args) == 1 {
				keyfile = args[0]
			}
			return run(cmd.Context(), v, keyfile)
		},
	}

	flags := cmd.Flags()
	flags.String("rpc_address", config.DefaultRPCAddress, "upstream Solana-style JSON-RPC endpoint")
	flags.String("binding_address", config.DefaultBindingAddress, "HTTP bind address; WebSocket binds on port+1")
	flags.Uint64("evm_chain_id", config.DefaultEvmChainID, "chain id reported by eth_chainId and used for tx signing")
	flags.Uint64("min-gas-price", 0, "gas price floor; 0 uses the formulaic default")
	flags.Bool("verbose-errors", false, "surface underlying upstream error messages verbatim")
	flags.Bool("no-simulate", false, "return immediately after submission instead of waiting for confirmation")
	flags.Uint64("max-logs-block-count", config.DefaultMaxLogsBlocks, "maximum block range per eth_getLogs request")
	flags.String("jaeger-collector-url", "", "Jaeger collector endpoint; tracing is disabled when empty")
	flags.String("evm-loader-program-id", "", "hex-encoded Solana-style EVM-loader program id")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("EVM_BRIDGE")
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper, keyfile string) error {
	logger := log.New()

	cfg := config.Config{
		RPCAddress:     v.GetString("rpc_address"),
		BindingAddress: v.GetString("binding_address"),
		EvmChainID:     v.GetUint64("evm_chain_id"),
		VerboseErrors:  v.GetBool("verbose-errors"),
		Simulate:       !v.GetBool("no-simulate"),
		MaxLogsBlocks:  v.GetUint64("max-logs-block-count"),
		JaegerURL:      v.GetString("jaeger-collector-url"),
		Keyfile:        keyfile,
	}
	cfg.MinGasPrice = v.GetUint64("min-gas-price")
	if cfg.MinGasPrice == 0 {
		cfg.MinGasPrice = config.DefaultMinGasPrice()
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	upstreamClient, err := upstream.Dial(ctx, cfg.RPCAddress, cfg.VerboseErrors)
	if err != nil {
		return fmt.Errorf("dial upstream: %w", err)
	}
	defer upstreamClient.Close()

	tracer, shutdownTracer, err := tracing.Init(ctx, cfg.JaegerURL)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracer(context.Background())

	signingKey, err := txsign.LoadKey(evmSigningKeyDummy)
	if err != nil {
		return fmt.Errorf("load bridge signing key: %w", err)
	}

	wrapper, err := loadSolanaWrapper(cfg.Keyfile, v.GetString("evm-loader-program-id"))
	if err != nil {
		return fmt.Errorf("load Solana keypair: %w", err)
	}

	txPool := pool.New(pool.SystemClock{})

	ledger := upstreamengine.NewLedger(upstreamClient)
	engine := upstreamengine.NewEngine(upstreamClient)
	exec := &executor.Executor{Ledger: ledger, Engine: engine, Logger: logger}

	deps := &bridgerpc.Deps{
		Upstream:      upstreamClient,
		Pool:          txPool,
		Executor:      exec,
		Keys:          map[common.Address]*txsign.Key{signingKey.Address: signingKey},
		ChainID:       cfg.EvmChainID,
		MinGasPrice:   cfg.MinGasPrice,
		MaxLogsBlocks: cfg.MaxLogsBlocks,
		Simulate:      cfg.Simulate,
		VerboseErrors: cfg.VerboseErrors,
		Logger:        logger,
	}

	host, err := server.New(cfg.BindingAddress, deps, tracer)
	if err != nil {
		return fmt.Errorf("build rpc host: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	deployWorker := &pool.DeployWorker{Pool: txPool, Upstream: upstreamClient, Wrapper: wrapper, Interval: time.Second, Logger: logger}
	sigChecker := &pool.SignatureChecker{Pool: txPool, Upstream: upstreamClient, Interval: 2 * time.Second, Logger: logger}
	cleaner := &pool.Cleaner{Pool: txPool, Clock: pool.SystemClock{}, TTL: 5 * time.Minute, Interval: 5 * time.Second, Logger: logger}

	g.Go(func() error { return deployWorker.Run(gctx) })
	g.Go(func() error { return sigChecker.Run(gctx) })
	g.Go(func() error { return cleaner.Run(gctx) })

	if err := host.Serve(gctx, g); err != nil {
		return fmt.Errorf("serve rpc host: %w", err)
	}

	logger.Info("evm-bridge listening", "http", cfg.BindingAddress, "chainId", cfg.EvmChainID)
	return g.Wait()
}

// loadSolanaWrapper loads the bridge's Solana-style fee-payer keypair
// from the positional keyfile argument, distinct from the fixed dummy
// EVM signing key above (§6.1).
func loadSolanaWrapper(keyfile, programIDHex string) (*solanatx.Wrapper, error) {
	keypair, err := solanatx.LoadKeypairFile(keyfile)
	if err != nil {
		return nil, err
	}
	return solanatx.NewWrapper(keypair, programIDHex)
}
