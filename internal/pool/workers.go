package pool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/velas/evm-bridge/internal/upstream"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// Wrapper turns a pooled EVM transaction into a Solana-style
// transaction co-signed by the bridge keypair and the entry's meta
// keys, ready to submit. Constructing the actual Solana-style
// transaction bytes is an external collaborator (§1); the pool only
// depends on this narrow interface.
type Wrapper interface {
	Wrap(tx *rpctypes.SignedTransaction, metaKeys []string, recentBlockhash string) ([]byte, error)
}

// DeployWorker drains ready transactions (nonce == sender's next
// expected nonce per upstream) and submits them via C2 (§4.3).
type DeployWorker struct {
	Pool     *Pool
	Upstream *upstream.Client
	Wrapper  Wrapper
	Interval time.Duration
	Logger   log.Logger
}

func (w *DeployWorker) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DeployWorker) sweep(ctx context.Context) {
	for _, sender := range w.Pool.senderAddrs() {
		expected, err := w.Upstream.GetTransactionCount(ctx, sender, "pending")
		if err != nil {
			w.Logger.Debug("deploy worker: upstream nonce lookup failed", "sender", sender, "err", err)
			continue
		}
		entry, ok := w.Pool.nextReady(sender, expected)
		if !ok {
			continue
		}
		w.deploy(ctx, entry)
	}
}

func (w *DeployWorker) deploy(ctx context.Context, entry *PooledTransaction) {
	sig, err := SendAndConfirm(ctx, w.Upstream, w.Wrapper, entry)
	if entry.Simulate && entry.resultCh != nil {
		entry.resultCh <- Result{Signature: sig, Err: err}
		close(entry.resultCh)
	}
	if err != nil {
		w.Logger.Debug("deploy worker: submission failed", "hash", entry.Hash, "err", err)
		return
	}
	entry.setSignature(sig)
}

// SignatureChecker periodically polls the upstream for each pending
// signature and marks entries landed (§4.3).
type SignatureChecker struct {
	Pool     *Pool
	Upstream *upstream.Client
	Interval time.Duration
	Logger   log.Logger
}

func (c *SignatureChecker) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *SignatureChecker) sweep(ctx context.Context) {
	for _, entry := range c.Pool.Snapshot() {
		if entry.isLanded() {
			continue
		}
		sig, ok := entry.Signature()
		if !ok {
			continue
		}
		landed, err := c.landed(ctx, sig, entry)
		if err != nil {
			c.Logger.Debug("signature checker: status lookup failed", "sig", sig, "err", err)
			continue
		}
		if landed {
			entry.markLanded()
		}
	}
}

func (c *SignatureChecker) landed(ctx context.Context, sig string, entry *PooledTransaction) (bool, error) {
	statuses, err := c.Upstream.GetSignatureStatuses(ctx, []string{sig})
	if err != nil {
		return false, err
	}
	if signatureConfirmed(statuses) {
		return true, nil
	}
	if _, err := c.Upstream.GetTransactionReceipt(ctx, entry.Hash); err == nil {
		return true, nil
	}
	return false, nil
}

// Cleaner removes landed entries and evicts expired ones according to
// a time budget (§4.3).
type Cleaner struct {
	Pool     *Pool
	Clock    Clock
	TTL      time.Duration
	Interval time.Duration
	Logger   log.Logger
}

func (c *Cleaner) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cleaner) sweep() {
	now := c.Clock.Now()
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	for _, entry := range c.Pool.Snapshot() {
		if entry.isLanded() {
			c.Pool.remove(entry.Hash)
			continue
		}
		if now.Sub(entry.submitted) > ttl {
			c.Logger.Debug("cleaner: evicting expired transaction", "hash", entry.Hash)
			c.Pool.remove(entry.Hash)
		}
	}
}
