package bridgerpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// emptyTrieRoot is the keccak256 of the RLP of the empty string, the
// canonical "no entries" hash (§4.6, GLOSSARY).
var emptyTrieRoot = func() common.Hash {
	enc, _ := rlp.EncodeToBytes([]byte{})
	return crypto.Keccak256Hash(enc)
}()

// patchBlock applies the block compatibility patch of §4.6: a
// zero-transaction block whose transactionsRoot is the zero hash gets
// both roots overwritten with the empty-trie root.
func patchBlock(b *rpctypes.RPCBlock) {
	if b == nil {
		return
	}
	if len(b.Transactions) == 0 && b.TransactionsRoot == (common.Hash{}) {
		b.TransactionsRoot = emptyTrieRoot
		b.ReceiptsRoot = emptyTrieRoot
	}
}

// patchTransaction applies the transaction compatibility patch of
// §4.6: a zero r or s is replaced with 0x1 so downstream clients that
// reject zero signature components accept pre-signature-fix blocks.
func patchTransaction(tx *rpctypes.RPCTransaction) {
	if tx == nil {
		return
	}
	if tx.R != nil && tx.R.ToInt().Sign() == 0 {
		one := hexutil.Big(*big.NewInt(1))
		tx.R = &one
	}
	if tx.S != nil && tx.S.ToInt().Sign() == 0 {
		one := hexutil.Big(*big.NewInt(1))
		tx.S = &one
	}
}
