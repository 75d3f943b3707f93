package logquery

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
)

func TestPlanRejectsInvertedRange(t *testing.T) {
	calls := int32(0)
	_, err := Plan(context.Background(), 10, 9, 500, func(ctx context.Context, from, to uint64) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})
	require.Error(t, err)
	var berr *bridgeerr.Error
	require.ErrorAs(t, err, &berr)
	require.Equal(t, bridgeerr.CodeInvalidBlocksRange, berr.Code)
	data := berr.Data.(bridgeerr.InvalidRange)
	require.Equal(t, uint64(10), data.Starting)
	require.Equal(t, uint64(9), data.Ending)
	require.Nil(t, data.BatchSize)
	require.Equal(t, int32(0), calls)
}

func TestPlanRejectsOverBudgetRange(t *testing.T) {
	_, err := Plan(context.Background(), 0, 600, 500, func(ctx context.Context, from, to uint64) (json.RawMessage, error) {
		return nil, nil
	})
	require.Error(t, err)
	var berr *bridgeerr.Error
	require.ErrorAs(t, err, &berr)
	data := berr.Data.(bridgeerr.InvalidRange)
	require.NotNil(t, data.BatchSize)
	require.Equal(t, uint64(500), *data.BatchSize)
}

func TestPlanChunksAndConcatenatesInOrder(t *testing.T) {
	var calls int32
	results, err := Plan(context.Background(), 0, 4500, 10000, func(ctx context.Context, from, to uint64) (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		return json.RawMessage(`[{"from":` + itoa(from) + `,"to":` + itoa(to) + `}]`), nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(3), calls) // ceil((4500-0+1)/2001) = 3
	require.Len(t, results, 3)
	require.JSONEq(t, `[{"from":0,"to":2000}]`, string(results[0]))
	require.JSONEq(t, `[{"from":2001,"to":4001}]`, string(results[1]))
	require.JSONEq(t, `[{"from":4002,"to":4500}]`, string(results[2]))
}

func itoa(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
