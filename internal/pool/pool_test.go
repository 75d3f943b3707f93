package pool

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

func testLogger() log.Logger { return log.New() }

func sampleTx(nonce uint64) *rpctypes.SignedTransaction {
	val := hexutil.Big(*big.NewInt(0))
	return &rpctypes.SignedTransaction{
		UnsignedTransaction: rpctypes.UnsignedTransaction{
			Nonce:    nonce,
			GasPrice: 1,
			GasLimit: 21000,
			Value:    &val,
		},
		V: 37,
	}
}

func TestImportDedupByHash(t *testing.T) {
	p := New(NewFrozenClock(time.Unix(0, 0)))
	sender := common.HexToAddress("0xaaaa")
	hash := common.HexToHash("0x01")

	_, err := p.Import(sampleTx(7), hash, sender, nil, 0, false)
	require.NoError(t, err)

	_, err = p.Import(sampleTx(7), hash, sender, nil, 0, false)
	require.Error(t, err)

	count, ok := p.TransactionCount(sender)
	require.True(t, ok)
	require.Equal(t, uint64(8), count)
}

func TestPendingNoncePreference(t *testing.T) {
	p := New(NewFrozenClock(time.Unix(0, 0)))
	sender := common.HexToAddress("0xbbbb")

	_, ok := p.TransactionCount(sender)
	require.False(t, ok)

	_, err := p.Import(sampleTx(7), common.HexToHash("0x02"), sender, nil, 0, true)
	require.NoError(t, err)

	count, ok := p.TransactionCount(sender)
	require.True(t, ok)
	require.Equal(t, uint64(8), count)
}

func TestTransactionByHashPoolLocalView(t *testing.T) {
	p := New(NewFrozenClock(time.Unix(0, 0)))
	sender := common.HexToAddress("0xcccc")
	hash := common.HexToHash("0x03")

	_, err := p.Import(sampleTx(0), hash, sender, nil, 0, false)
	require.NoError(t, err)

	entry, ok := p.TransactionByHash(hash)
	require.True(t, ok)
	require.Equal(t, sender, entry.Sender)
}

func TestImportRejectsBelowGasPriceFloor(t *testing.T) {
	p := New(NewFrozenClock(time.Unix(0, 0)))
	sender := common.HexToAddress("0xffff")

	_, err := p.Import(sampleTx(0), common.HexToHash("0x06"), sender, nil, 2, false)
	require.Error(t, err)

	_, ok := p.TransactionByHash(common.HexToHash("0x06"))
	require.False(t, ok)
}

func TestCleanerRemovesLandedEntries(t *testing.T) {
	clock := NewFrozenClock(time.Unix(0, 0))
	p := New(clock)
	sender := common.HexToAddress("0xdddd")
	hash := common.HexToHash("0x04")

	entry, err := p.Import(sampleTx(0), hash, sender, nil, 0, false)
	require.NoError(t, err)
	entry.markLanded()

	cleaner := &Cleaner{Pool: p, Clock: clock, TTL: time.Minute, Logger: testLogger()}
	cleaner.sweep()

	_, ok := p.TransactionByHash(hash)
	require.False(t, ok)
}

func TestCleanerEvictsExpired(t *testing.T) {
	clock := NewFrozenClock(time.Unix(0, 0))
	p := New(clock)
	sender := common.HexToAddress("0xeeee")
	hash := common.HexToHash("0x05")

	_, err := p.Import(sampleTx(0), hash, sender, nil, 0, false)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	cleaner := &Cleaner{Pool: p, Clock: clock, TTL: time.Minute, Logger: testLogger()}
	cleaner.sweep()

	_, ok := p.TransactionByHash(hash)
	require.False(t, ok)
}
