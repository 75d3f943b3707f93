// Package pool implements the transaction pool (C3): a sender-
// partitioned ordered map of pooled transactions with dedup-by-hash,
// admission, and result notification, plus the three background
// workers of C4.
package pool

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// Result is delivered once through a PooledTransaction's result
// channel when simulate mode is enabled (§4.3).
type Result struct {
	Signature string
	Err       error
}

// PooledTransaction is a signed transaction enriched per §3: a
// recovered sender, optional meta keys, and a one-shot result channel.
type PooledTransaction struct {
	Hash      common.Hash
	Sender    common.Address
	Tx        *rpctypes.SignedTransaction
	MetaKeys  []string
	Simulate  bool
	resultCh  chan Result
	submitted time.Time

	mu        sync.Mutex
	signature string
	landed    bool
}

func (p *PooledTransaction) Nonce() uint64 { return p.Tx.Nonce }

// ResultChan returns the receive side of the one-shot result channel;
// nil when the entry was not created with Simulate.
func (p *PooledTransaction) ResultChan() <-chan Result { return p.resultCh }

func (p *PooledTransaction) setSignature(sig string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signature = sig
}

func (p *PooledTransaction) Signature() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signature, p.signature != ""
}

func (p *PooledTransaction) markLanded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.landed = true
}

func (p *PooledTransaction) isLanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.landed
}

// senderQueue holds one sender's entries ordered by nonce, guarded by
// its own lock so unrelated senders never contend (§4.2, §5).
type senderQueue struct {
	mu      sync.Mutex
	byNonce map[uint64]*PooledTransaction
}

func newSenderQueue() *senderQueue {
	return &senderQueue{byNonce: make(map[uint64]*PooledTransaction)}
}

func (q *senderQueue) nonces() []uint64 {
	out := make([]uint64, 0, len(q.byNonce))
	for n := range q.byNonce {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pool is the shared, thread-safe transaction pool.
type Pool struct {
	clock Clock

	mu        sync.RWMutex // guards byHash and senders map membership only
	byHash    map[common.Hash]*PooledTransaction
	senders   map[common.Address]*senderQueue
}

func New(clock Clock) *Pool {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Pool{
		clock:   clock,
		byHash:  make(map[common.Hash]*PooledTransaction),
		senders: make(map[common.Address]*senderQueue),
	}
}

// Import admits a transaction. It fails with AlreadyImported if the
// hash is already known (§4.2), and with GasPriceTooLow if the
// transaction's gas price sits below minGasPrice — the pool's own
// admission-time floor check, independent of whatever gate the RPC
// layer already applied before signing. simulate controls whether a
// result channel is allocated.
func (p *Pool) Import(tx *rpctypes.SignedTransaction, hash common.Hash, sender common.Address, metaKeys []string, minGasPrice uint64, simulate bool) (*PooledTransaction, error) {
	if uint256.NewInt(tx.GasPrice).Lt(uint256.NewInt(minGasPrice)) {
		return nil, bridgeerr.GasPriceTooLow(tx.GasPrice, minGasPrice)
	}

	p.mu.Lock()
	if existing, ok := p.byHash[hash]; ok {
		p.mu.Unlock()
		_ = existing
		return nil, bridgeerr.AlreadyImported(hash)
	}

	queue, ok := p.senders[sender]
	if !ok {
		queue = newSenderQueue()
		p.senders[sender] = queue
	}

	entry := &PooledTransaction{
		Hash:      hash,
		Sender:    sender,
		Tx:        tx,
		MetaKeys:  metaKeys,
		Simulate:  simulate,
		submitted: p.clock.Now(),
	}
	if simulate {
		entry.resultCh = make(chan Result, 1)
	}
	p.byHash[hash] = entry
	p.mu.Unlock()

	queue.mu.Lock()
	queue.byNonce[tx.Nonce] = entry
	queue.mu.Unlock()

	return entry, nil
}

// SignatureOfCachedTransaction answers §4.2's lookup.
func (p *Pool) SignatureOfCachedTransaction(hash common.Hash) (string, bool) {
	p.mu.RLock()
	entry, ok := p.byHash[hash]
	p.mu.RUnlock()
	if !ok {
		return "", false
	}
	return entry.Signature()
}

// TransactionCount returns the highest pending nonce plus one, or
// false if the sender has no pooled entries (§4.2; answers
// eth_getTransactionCount(..., "pending")).
func (p *Pool) TransactionCount(sender common.Address) (uint64, bool) {
	p.mu.RLock()
	queue, ok := p.senders[sender]
	p.mu.RUnlock()
	if !ok {
		return 0, false
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.byNonce) == 0 {
		return 0, false
	}
	nonces := queue.nonces()
	return nonces[len(nonces)-1] + 1, true
}

// TransactionByHash gives RPC handlers a pool-local view so a
// just-submitted tx is observable before it lands (§4.2).
func (p *Pool) TransactionByHash(hash common.Hash) (*PooledTransaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.byHash[hash]
	return entry, ok
}

// senderAddrs returns the set of senders known to the pool, for the
// deploy worker's sweep.
func (p *Pool) senderAddrs() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]common.Address, 0, len(p.senders))
	for addr := range p.senders {
		out = append(out, addr)
	}
	return out
}

// nextReady returns the lowest-nonce entry for sender whose nonce
// equals expectedNonce, if any, without removing it.
func (p *Pool) nextReady(sender common.Address, expectedNonce uint64) (*PooledTransaction, bool) {
	p.mu.RLock()
	queue, ok := p.senders[sender]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	entry, ok := queue.byNonce[expectedNonce]
	return entry, ok
}

// remove evicts an entry by hash from both indices. The cleaner calls
// it for every landed or expired entry; neither remove nor the cleaner
// checks where the entry sits in its sender's nonce range.
func (p *Pool) remove(hash common.Hash) {
	p.mu.Lock()
	entry, ok := p.byHash[hash]
	if ok {
		delete(p.byHash, hash)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	p.mu.RLock()
	queue, ok := p.senders[entry.Sender]
	p.mu.RUnlock()
	if !ok {
		return
	}
	queue.mu.Lock()
	delete(queue.byNonce, entry.Tx.Nonce)
	queue.mu.Unlock()
}

// Snapshot returns every pooled entry, used by the cleaner and tests.
func (p *Pool) Snapshot() []*PooledTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*PooledTransaction, 0, len(p.byHash))
	for _, e := range p.byHash {
		out = append(out, e)
	}
	return out
}
