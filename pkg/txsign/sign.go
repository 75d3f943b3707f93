// Package txsign implements the two signing schemes the bridge needs:
// EIP-191 personal-message signing for eth_sign and EIP-155 legacy
// transaction signing for eth_signTransaction / eth_sendTransaction.
package txsign

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// PersonalSignPrefix is the EIP-191 message prefix; the payload length
// is appended in decimal before hashing.
const PersonalSignPrefix = "\x19Ethereum Signed Message:\n"

// Key wraps a loaded secp256k1 private key and its derived address.
type Key struct {
	priv    *ecdsa.PrivateKey
	Address common.Address
}

func LoadKey(hexkey string) (*Key, error) {
	priv, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Key{priv: priv, Address: crypto.PubkeyToAddress(priv.PublicKey)}, nil
}

// PersonalSignHash computes the keccak256 of the EIP-191 prefixed
// payload.
func PersonalSignHash(payload []byte) []byte {
	msg := fmt.Sprintf("%s%d", PersonalSignPrefix, len(payload))
	return crypto.Keccak256([]byte(msg), payload)
}

// Sign produces a 65-byte r‖s‖v signature with v as the raw recovery
// id (0 or 1), matching the wire format of eth_sign.
func (k *Key) Sign(payload []byte) ([]byte, error) {
	sig, err := crypto.Sign(PersonalSignHash(payload), k.priv)
	if err != nil {
		return nil, fmt.Errorf("personal sign: %w", err)
	}
	return sig, nil
}

// legacyRLP is the 9-field legacy transaction layout signed and
// recovered throughout this package, grounded on the original bridge's
// Decodable impl for raw transactions.
type legacyRLP struct {
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

// SignTransaction produces the EIP-155 signature over an unsigned
// transaction, chaining the chain id into the pre-image as required
// by §3.
func SignTransaction(key *Key, tx rpctypes.UnsignedTransaction, chainID uint64) (*rpctypes.SignedTransaction, error) {
	hash, err := signingHash(tx, chainID)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash, key.priv)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	var r, s [32]byte
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	recID := uint64(sig[64])
	v := recID + chainID*2 + 35

	return &rpctypes.SignedTransaction{
		UnsignedTransaction: tx,
		V:                   v,
		R:                   r,
		S:                   s,
	}, nil
}

func signingHash(tx rpctypes.UnsignedTransaction, chainID uint64) ([]byte, error) {
	value := new(big.Int)
	if tx.Value != nil {
		value.Set((*big.Int)(tx.Value))
	}
	payload := legacyRLP{
		Nonce:    tx.Nonce,
		GasPrice: new(big.Int).SetUint64(tx.GasPrice),
		GasLimit: tx.GasLimit,
		To:       tx.Action.Call,
		Value:    value,
		Input:    tx.Input,
		V:        new(big.Int).SetUint64(chainID),
		R:        big.NewInt(0),
		S:        big.NewInt(0),
	}
	enc, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("rlp encode signing payload: %w", err)
	}
	return crypto.Keccak256(enc), nil
}

// RecoverSender recovers the sender address from a signed transaction
// per EIP-155 semantics (v encodes the chain id).
func RecoverSender(tx *rpctypes.SignedTransaction, chainID uint64) (common.Address, error) {
	unsigned := legacyRLP{
		Nonce:    tx.Nonce,
		GasPrice: new(big.Int).SetUint64(tx.GasPrice),
		GasLimit: tx.GasLimit,
		To:       tx.Action.Call,
		Value:    new(big.Int),
		Input:    tx.Input,
		V:        new(big.Int).SetUint64(chainID),
		R:        big.NewInt(0),
		S:        big.NewInt(0),
	}
	if tx.Value != nil {
		unsigned.Value.Set((*big.Int)(tx.Value))
	}
	enc, err := rlp.EncodeToBytes(&unsigned)
	if err != nil {
		return common.Address{}, fmt.Errorf("rlp encode for recovery: %w", err)
	}
	hash := crypto.Keccak256(enc)

	recID := recoveryID(tx.V, chainID)
	sig := make([]byte, 65)
	copy(sig[0:32], tx.R[:])
	copy(sig[32:64], tx.S[:])
	sig[64] = recID

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover sender: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func recoveryID(v uint64, chainID uint64) byte {
	if chainID == 0 {
		if v >= 27 {
			return byte(v - 27)
		}
		return byte(v)
	}
	return byte(v - (chainID*2 + 35))
}
