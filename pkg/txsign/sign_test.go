package txsign

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPersonalSignVector(t *testing.T) {
	key, err := LoadKey("c21020a52198632ae7d5c1adaa3f83da2e0c98cf541c54686ddc8d202124c086")
	require.NoError(t, err)
	require.True(t, strings.EqualFold("0x141a4802f84bb64c0320917672ef7D92658e964e", key.Address.Hex()))

	sig, err := key.Sign([]byte("qwe"))
	require.NoError(t, err)
	require.Equal(t,
		"b734e224f0f92d89825f3f69bf03924d7d2f609159d6ce856d37a58d7fcbc8eb6d224fd73f05217025ed015283133c92888211b238272d87ec48347f05ab42a000",
		hex.EncodeToString(sig),
	)
}
