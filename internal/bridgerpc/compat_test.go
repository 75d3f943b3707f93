package bridgerpc

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

func TestPatchBlockRewritesEmptyRoots(t *testing.T) {
	b := &rpctypes.RPCBlock{Transactions: []interface{}{}}
	patchBlock(b)
	require.Equal(t, emptyTrieRoot, b.TransactionsRoot)
	require.Equal(t, emptyTrieRoot, b.ReceiptsRoot)
}

func TestPatchBlockLeavesNonEmptyRootsAlone(t *testing.T) {
	root := common.HexToHash("0xabc")
	b := &rpctypes.RPCBlock{Transactions: []interface{}{}, TransactionsRoot: root}
	patchBlock(b)
	require.Equal(t, root, b.TransactionsRoot)
}

func TestPatchTransactionSubstitutesZeroRS(t *testing.T) {
	zero := hexutil.Big(*big.NewInt(0))
	tx := &rpctypes.RPCTransaction{R: &zero, S: &zero}
	patchTransaction(tx)
	require.Equal(t, int64(1), tx.R.ToInt().Int64())
	require.Equal(t, int64(1), tx.S.ToInt().Int64())
}

func TestPatchTransactionLeavesNonzeroRSAlone(t *testing.T) {
	five := hexutil.Big(*big.NewInt(5))
	tx := &rpctypes.RPCTransaction{R: &five}
	patchTransaction(tx)
	require.Equal(t, int64(5), tx.R.ToInt().Int64())
}
