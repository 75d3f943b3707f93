package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

type fakeLedger struct {
	current   uint64
	earliest  uint64
	byNumber  map[uint64]*BlockHeader
	byHash    map[common.Hash]*BlockHeader
}

func (l *fakeLedger) CurrentBlockNumber(ctx context.Context) (uint64, error) { return l.current, nil }
func (l *fakeLedger) FirstAvailableBlockNumber(ctx context.Context) (uint64, error) {
	return l.earliest, nil
}
func (l *fakeLedger) HeaderByNumber(ctx context.Context, number uint64) (*BlockHeader, error) {
	return l.byNumber[number], nil
}
func (l *fakeLedger) HeaderByHash(ctx context.Context, hash common.Hash) (*BlockHeader, error) {
	return l.byHash[hash], nil
}
func (l *fakeLedger) AccountFor(ctx context.Context, pubkey string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (l *fakeLedger) TransactionBlockNumber(ctx context.Context, hash common.Hash) (uint64, bool, error) {
	return 0, false, nil
}
func (l *fakeLedger) BlockTransactions(ctx context.Context, number uint64) ([]rpctypes.RPCTransaction, bool, error) {
	return nil, false, nil
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byNumber: map[uint64]*BlockHeader{}, byHash: map[common.Hash]*BlockHeader{}}
}

func TestResolveBlockToStateRootLatest(t *testing.T) {
	l := newFakeLedger()
	l.current = 5
	header := &BlockHeader{Number: 5, Hash: common.HexToHash("0x05"), StateRoot: common.HexToHash("0xaa")}
	l.byNumber[5] = header

	root, num, err := ResolveBlockToStateRoot(context.Background(), l, rpctypes.BlockIDLatest())
	require.NoError(t, err)
	require.Equal(t, header.StateRoot, root)
	require.Equal(t, uint64(5), num)
}

func TestResolveBlockToStateRootEarliest(t *testing.T) {
	l := newFakeLedger()
	l.earliest = 2
	header := &BlockHeader{Number: 2, StateRoot: common.HexToHash("0xbb")}
	l.byNumber[2] = header

	root, num, err := ResolveBlockToStateRoot(context.Background(), l, rpctypes.BlockID{Tag: rpctypes.TagEarliest})
	require.NoError(t, err)
	require.Equal(t, header.StateRoot, root)
	require.Equal(t, uint64(2), num)
}

func TestResolveBlockToStateRootByNumberNotFound(t *testing.T) {
	l := newFakeLedger()
	_, _, err := ResolveBlockToStateRoot(context.Background(), l, rpctypes.BlockIDNumber(99))
	require.Error(t, err)
}

func TestResolveBlockToStateRootByHashRejectsReorg(t *testing.T) {
	l := newFakeLedger()
	hash := common.HexToHash("0xcc")
	header := &BlockHeader{Number: 3, Hash: hash, StateRoot: common.HexToHash("0xdd")}
	l.byHash[hash] = header
	// A different block now sits at number 3: the chain reorged away
	// from the requested hash.
	l.byNumber[3] = &BlockHeader{Number: 3, Hash: common.HexToHash("0xee"), StateRoot: common.HexToHash("0xff")}

	_, _, err := ResolveBlockToStateRoot(context.Background(), l, rpctypes.BlockIDHash(hash))
	require.Error(t, err)
}

func TestResolveBlockToStateRootByHashAccepted(t *testing.T) {
	l := newFakeLedger()
	hash := common.HexToHash("0xcc")
	header := &BlockHeader{Number: 3, Hash: hash, StateRoot: common.HexToHash("0xdd")}
	l.byHash[hash] = header
	l.byNumber[3] = header

	root, num, err := ResolveBlockToStateRoot(context.Background(), l, rpctypes.BlockIDHash(hash))
	require.NoError(t, err)
	require.Equal(t, header.StateRoot, root)
	require.Equal(t, uint64(3), num)
}

func TestDefaultCallParamsUsesSenderNonceWhenAbsent(t *testing.T) {
	tx := rpctypes.RPCTransaction{From: common.HexToAddress("0x01")}
	params := DefaultCallParams(tx, func() uint64 { return 42 })
	require.Equal(t, uint64(42), params.Nonce)
	require.NotEqual(t, common.Hash{}, params.Hash)
}

func TestParseTransferAccountRejectsShortInput(t *testing.T) {
	_, ok := parseTransferAccount([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestParseTransferAccountExtractsAddress(t *testing.T) {
	input := make([]byte, 36)
	addr := common.HexToAddress("0xdeadbeef")
	copy(input[4+12:], addr.Bytes())
	got, ok := parseTransferAccount(input)
	require.True(t, ok)
	require.Equal(t, addr.Hex(), got)
}
