// Package logquery implements the log-query planner (C4.7):
// validation and block-range chunking of eth_getLogs requests executed
// in parallel against the upstream.
package logquery

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
)

// MaxNumBlocksInBatch bounds how far a single sub-range extends past
// its starting block (§4.7): each closed sub-range is
// [start, start+MaxNumBlocksInBatch], i.e. MaxNumBlocksInBatch+1
// blocks wide, matching the upstream's own chunking constant.
const MaxNumBlocksInBatch = 2000

// chunkWidth is the number of blocks a single sub-range covers.
const chunkWidth = MaxNumBlocksInBatch + 1

// Fetcher issues one eth_getLogs call for a closed [from, to] range.
type Fetcher func(ctx context.Context, from, to uint64) (json.RawMessage, error)

// Plan validates and chunks the requested range per §4.7, dispatching
// one Fetcher call per sub-range concurrently and concatenating
// results in ascending sub-range order.
func Plan(ctx context.Context, from, to uint64, maxLogsBlocks uint64, fetch Fetcher) ([]json.RawMessage, error) {
	if to < from {
		return nil, bridgeerr.InvalidBlocksRange(from, to, nil)
	}
	if to > from+maxLogsBlocks {
		limit := maxLogsBlocks
		return nil, bridgeerr.InvalidBlocksRange(from, to, &limit)
	}

	ranges := chunk(from, to, chunkWidth)
	results := make([]json.RawMessage, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			res, err := fetch(gctx, r.from, r.to)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type blockRange struct{ from, to uint64 }

func chunk(from, to, width uint64) []blockRange {
	var out []blockRange
	for start := from; start <= to; start += width {
		end := start + width - 1
		if end > to {
			end = to
		}
		out = append(out, blockRange{from: start, to: end})
		if end == to {
			break
		}
	}
	if out == nil {
		out = []blockRange{{from: from, to: to}}
	}
	return out
}
