// Package rpctypes holds the wire records of the bridge's Ethereum
// JSON-RPC surface. Hex/byte encoding is delegated to go-ethereum's
// common and hexutil packages, which already implement the
// "0x-trim except literal zero" and "fixed-width keeps leading
// zeros" rules.
package rpctypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RPCTransaction is the loose, partially-optional record of §3: every
// field is optional because the same struct represents a submitted
// tx, a pool-stored tx, and a receipt-joined tx.
type RPCTransaction struct {
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Value            *hexutil.Big    `json:"value"`
	Input            hexutil.Bytes   `json:"input"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	Hash             common.Hash     `json:"hash"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Big    `json:"blockNumber"`
	V                *hexutil.Big    `json:"v"`
	R                *hexutil.Big    `json:"r"`
	S                *hexutil.Big    `json:"s"`
}

type RPCBlock struct {
	Number           *hexutil.Big    `json:"number"`
	Hash             *common.Hash    `json:"hash"`
	ParentHash       common.Hash     `json:"parentHash"`
	Nonce            hexutil.Bytes   `json:"nonce"`
	TransactionsRoot common.Hash     `json:"transactionsRoot"`
	ReceiptsRoot     common.Hash     `json:"receiptsRoot"`
	StateRoot        common.Hash     `json:"stateRoot"`
	Miner            common.Address  `json:"miner"`
	Difficulty       *hexutil.Big    `json:"difficulty"`
	ExtraData        hexutil.Bytes   `json:"extraData"`
	GasLimit         hexutil.Uint64  `json:"gasLimit"`
	GasUsed          hexutil.Uint64  `json:"gasUsed"`
	Timestamp        hexutil.Uint64  `json:"timestamp"`
	Transactions     []interface{}   `json:"transactions"`
	Uncles           []common.Hash   `json:"uncles"`
	Size             *hexutil.Uint64 `json:"size,omitempty"`
}

// EmptyBlock is the default block returned for the special zero
// block-hash/number shortcuts of §4.5, before any compatibility patch.
func EmptyBlock() *RPCBlock {
	zero := hexutil.Big(*big.NewInt(0))
	return &RPCBlock{
		Number:           &zero,
		TransactionsRoot: common.Hash{},
		ReceiptsRoot:     common.Hash{},
		Transactions:     []interface{}{},
		Uncles:           []common.Hash{},
	}
}

type RPCReceipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Logs              []*RPCLog       `json:"logs"`
	LogsBloom         hexutil.Bytes   `json:"logsBloom"`
	Status            *hexutil.Uint64 `json:"status,omitempty"`
}

type RPCLog struct {
	Address          common.Address `json:"address"`
	Topics           []common.Hash  `json:"topics"`
	Data             hexutil.Bytes  `json:"data"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	TransactionHash  common.Hash    `json:"transactionHash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	BlockHash        common.Hash    `json:"blockHash"`
	LogIndex         hexutil.Uint64 `json:"logIndex"`
	Removed          bool           `json:"removed"`
}

// RPCTopicFilter is a positional topic slot: nil (wildcard), a single
// topic, or a set of alternatives.
type RPCTopicFilter []common.Hash

type RPCLogFilter struct {
	Address   []common.Address `json:"address,omitempty"`
	Topics    []RPCTopicFilter `json:"topics,omitempty"`
	FromBlock *BlockID         `json:"fromBlock,omitempty"`
	ToBlock   *BlockID         `json:"toBlock,omitempty"`
}

// TxAction is the Create/Call(address) tag of §3's Unsigned
// transaction.
type TxAction struct {
	Call *common.Address
}

func (a TxAction) IsCreate() bool { return a.Call == nil }

type UnsignedTransaction struct {
	Nonce    uint64
	GasPrice uint64
	GasLimit uint64
	Action   TxAction
	Value    *hexutil.Big
	Input    []byte
}

type SignedTransaction struct {
	UnsignedTransaction
	V uint64
	R [32]byte
	S [32]byte
}
