// Package rlpcodec decodes the raw RLP payload accepted by
// eth_sendRawTransaction, tolerant of the zero v/r/s values emitted by
// pre-signature-fix clients (§4.6).
package rlpcodec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

type legacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Input    []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

// DecodeRawTransaction decodes any well-formed RLP matching the
// nine-field legacy transaction layout. Chain-id verification is not
// performed at this layer, matching §4.6.
func DecodeRawTransaction(raw []byte) (*rpctypes.SignedTransaction, error) {
	var tx legacyTx
	if err := rlp.DecodeBytes(raw, &tx); err != nil {
		return nil, bridgeerr.RlpError(raw, err)
	}

	value := new(big.Int)
	if tx.Value != nil {
		value.Set(tx.Value)
	}
	hexValue := hexutil.Big(*value)

	signed := &rpctypes.SignedTransaction{
		UnsignedTransaction: rpctypes.UnsignedTransaction{
			Nonce:    tx.Nonce,
			GasPrice: safeUint64(tx.GasPrice),
			GasLimit: tx.GasLimit,
			Action:   rpctypes.TxAction{Call: tx.To},
			Value:    &hexValue,
			Input:    tx.Input,
		},
		V: safeUint64(tx.V),
	}
	fillFixed(&signed.R, tx.R)
	fillFixed(&signed.S, tx.S)
	return signed, nil
}

func safeUint64(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}

// fillFixed copies a big-endian value into a fixed 32-byte slot. A
// zero or absent value is left as all-zero; the 0x1 substitution named
// in §4.6 is not applied here, only by the compatibility patch layer
// to transactions read back from the upstream.
func fillFixed(dst *[32]byte, v *big.Int) {
	if v == nil || v.Sign() == 0 {
		return
	}
	b := v.Bytes()
	copy(dst[32-len(b):], b)
}
