package solanatx

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/pkg/rpctypes"
)

func writeKeypairFile(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	f, err := os.CreateTemp(t.TempDir(), "keypair-*.json")
	require.NoError(t, err)
	defer f.Close()

	buf := []byte("[")
	for i, b := range priv {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, []byte(fmt.Sprintf("%d", b))...)
	}
	buf = append(buf, ']')
	_, err = f.Write(buf)
	require.NoError(t, err)
	return f.Name()
}

func TestLoadKeypairFileRoundTrips(t *testing.T) {
	path := writeKeypairFile(t)
	kp, err := LoadKeypairFile(path)
	require.NoError(t, err)
	require.NotEqual(t, Pubkey{}, kp.Public)
}

func TestWrapProducesSignedMessage(t *testing.T) {
	path := writeKeypairFile(t)
	kp, err := LoadKeypairFile(path)
	require.NoError(t, err)

	programID := make([]byte, 32)
	programID[0] = 0xAB
	w, err := NewWrapper(kp, hex.EncodeToString(programID))
	require.NoError(t, err)

	val := hexutil.Big(*big.NewInt(5))
	tx := &rpctypes.SignedTransaction{
		UnsignedTransaction: rpctypes.UnsignedTransaction{
			Nonce:    1,
			GasPrice: 1,
			GasLimit: 21000,
			Value:    &val,
		},
		V: 37,
	}

	blockhash := hex.EncodeToString(make([]byte, 32))
	out, err := w.Wrap(tx, nil, blockhash)
	require.NoError(t, err)
	require.Greater(t, len(out), 1+ed25519.SignatureSize+1)
	require.Equal(t, byte(1), out[0]) // compact-u16 signature count
}
