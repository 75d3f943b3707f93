package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundUpToGwei(t *testing.T) {
	require.Equal(t, uint64(1_000_000_000), RoundUpToGwei(1))
	require.Equal(t, uint64(1_000_000_000), RoundUpToGwei(1_000_000_000))
	require.Equal(t, uint64(2_000_000_000), RoundUpToGwei(1_000_000_001))
	require.Equal(t, uint64(0), RoundUpToGwei(0))
}

func TestDefaultMinGasPriceIsGweiAligned(t *testing.T) {
	price := DefaultMinGasPrice()
	require.Zero(t, price%gwei)
	require.NotZero(t, price)
}
