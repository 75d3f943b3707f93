package bridgerpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rlpcodec"
	"github.com/velas/evm-bridge/pkg/rpctypes"
	"github.com/velas/evm-bridge/pkg/txsign"
)

// defaultGas is the fallback gas limit for sign/send when the caller
// omits it (§4.5).
const defaultGas = 30_000_000

// BridgeService answers the key-holding eth_* methods of §4.5: the
// only group that requires a local signing key.
type BridgeService struct{ *Deps }

func NewBridgeService(d *Deps) *BridgeService { return &BridgeService{d} }

func (s *BridgeService) Accounts() []common.Address {
	out := make([]common.Address, 0, len(s.Keys))
	for addr := range s.Keys {
		out = append(out, addr)
	}
	return out
}

// Sign implements EIP-191 personal sign (§4.5).
func (s *BridgeService) Sign(addr common.Address, data hexutil.Bytes) (hexutil.Bytes, error) {
	key, ok := s.keyFor(addr)
	if !ok {
		return nil, bridgeerr.KeyNotFound(addr)
	}
	sig, err := key.Sign(data)
	if err != nil {
		return nil, bridgeerr.Runtime(err)
	}
	return sig, nil
}

// SignTransaction fills missing fields and signs with chain id,
// without submitting (§4.5).
func (s *BridgeService) SignTransaction(ctx context.Context, args rpctypes.RPCTransaction) (*rpctypes.SignedTransaction, error) {
	key, ok := s.keyFor(args.From)
	if !ok {
		return nil, bridgeerr.KeyNotFound(args.From)
	}
	unsigned, err := s.fillDefaults(ctx, args)
	if err != nil {
		return nil, err
	}
	return txsign.SignTransaction(key, unsigned, s.ChainID)
}

// SendTransaction fills missing fields, signs, and submits via the
// pool (§4.5).
func (s *BridgeService) SendTransaction(ctx context.Context, args rpctypes.RPCTransaction, metaKeys []string) (common.Hash, error) {
	key, ok := s.keyFor(args.From)
	if !ok {
		return common.Hash{}, bridgeerr.KeyNotFound(args.From)
	}
	unsigned, err := s.fillDefaults(ctx, args)
	if err != nil {
		return common.Hash{}, err
	}
	if unsigned.GasPrice < s.MinGasPrice {
		return common.Hash{}, bridgeerr.GasPriceTooLow(unsigned.GasPrice, s.MinGasPrice)
	}
	signed, err := txsign.SignTransaction(key, unsigned, s.ChainID)
	if err != nil {
		return common.Hash{}, bridgeerr.Runtime(err)
	}
	return s.submit(ctx, signed, args.From, metaKeys)
}

// SendRawTransaction RLP-decodes the payload and submits it (§4.5,
// §4.6's lenient decoder).
func (s *BridgeService) SendRawTransaction(ctx context.Context, raw hexutil.Bytes, metaKeys []string) (common.Hash, error) {
	signed, err := rlpcodec.DecodeRawTransaction(raw)
	if err != nil {
		return common.Hash{}, err
	}
	if signed.GasPrice < s.MinGasPrice {
		return common.Hash{}, bridgeerr.GasPriceTooLow(signed.GasPrice, s.MinGasPrice)
	}
	sender, err := txsign.RecoverSender(signed, s.ChainID)
	if err != nil {
		return common.Hash{}, bridgeerr.Runtime(err)
	}
	return s.submit(ctx, signed, sender, metaKeys)
}

func (s *BridgeService) Compilers() []string { return []string{} }

func (s *BridgeService) submit(ctx context.Context, signed *rpctypes.SignedTransaction, sender common.Address, metaKeys []string) (common.Hash, error) {
	hash := hashOf(signed)
	entry, err := s.Pool.Import(signed, hash, sender, metaKeys, s.MinGasPrice, s.Simulate)
	if err != nil {
		if already, ok := err.(interface{ ErrorData() interface{} }); ok {
			if existing, ok := already.ErrorData().(common.Hash); ok {
				return existing, nil
			}
		}
		return common.Hash{}, err
	}
	if !s.Simulate {
		return hash, nil
	}
	result := <-entry.ResultChan()
	if result.Err != nil {
		return common.Hash{}, result.Err
	}
	return hash, nil
}

// hashOf computes the EVM transaction hash: keccak256 of the signed
// legacy transaction's RLP encoding.
func hashOf(signed *rpctypes.SignedTransaction) common.Hash {
	value := new(big.Int)
	if signed.Value != nil {
		value.Set((*big.Int)(signed.Value))
	}
	payload := struct {
		Nonce    uint64
		GasPrice *big.Int
		GasLimit uint64
		To       *common.Address `rlp:"nil"`
		Value    *big.Int
		Input    []byte
		V        *big.Int
		R        *big.Int
		S        *big.Int
	}{
		Nonce:    signed.Nonce,
		GasPrice: new(big.Int).SetUint64(signed.GasPrice),
		GasLimit: signed.GasLimit,
		To:       signed.Action.Call,
		Value:    value,
		Input:    signed.Input,
		V:        new(big.Int).SetUint64(signed.V),
		R:        new(big.Int).SetBytes(signed.R[:]),
		S:        new(big.Int).SetBytes(signed.S[:]),
	}
	enc, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(enc)
}

// fillDefaults implements the nonce/gasPrice/gas/value/input
// defaulting table of §4.5.
func (s *BridgeService) fillDefaults(ctx context.Context, args rpctypes.RPCTransaction) (rpctypes.UnsignedTransaction, error) {
	nonce := uint64(args.Nonce)
	if args.Nonce == 0 {
		if n, ok := s.Pool.TransactionCount(args.From); ok {
			nonce = n
		} else if n, err := s.Upstream.GetTransactionCount(ctx, args.From, "pending"); err == nil {
			nonce = n
		}
	}

	gasPrice := s.MinGasPrice
	if args.GasPrice != nil {
		gasPrice = (*big.Int)(args.GasPrice).Uint64()
	}

	gas := uint64(defaultGas)
	if args.Gas != 0 {
		gas = uint64(args.Gas)
	}

	value := hexutil.Big(*big.NewInt(0))
	if args.Value != nil {
		value = *args.Value
	}

	input := []byte(args.Input)

	return rpctypes.UnsignedTransaction{
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: gas,
		Action:   rpctypes.TxAction{Call: args.To},
		Value:    &value,
		Input:    input,
	}, nil
}
