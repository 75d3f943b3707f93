package rpctypes

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockTag names one of the symbolic block identifiers. Tags other
// than Earliest all resolve to the same state: §4.4 treats latest and
// pending identically.
type BlockTag int

const (
	TagNone BlockTag = iota
	TagLatest
	TagPending
	TagEarliest
)

var (
	latestBytes   = []byte(`"latest"`)
	pendingBytes  = []byte(`"pending"`)
	earliestBytes = []byte(`"earliest"`)
)

// BlockID is the tagged union described in §3: a numeric height, one
// of the symbolic tags, or a `{blockHash}` object.
type BlockID struct {
	Tag    BlockTag
	Number *uint64
	Hash   *common.Hash
}

func BlockIDLatest() BlockID { return BlockID{Tag: TagLatest} }

func BlockIDNumber(n uint64) BlockID { return BlockID{Number: &n} }

func BlockIDHash(h common.Hash) BlockID { return BlockID{Hash: &h} }

func (b BlockID) IsLatestOrPending() bool {
	return b.Tag == TagNone || b.Tag == TagLatest || b.Tag == TagPending
}

func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Hash != nil:
		return json.Marshal(struct {
			BlockHash common.Hash `json:"blockHash"`
		}{*b.Hash})
	case b.Number != nil:
		return json.Marshal(hexutil.Uint64(*b.Number))
	case b.Tag == TagEarliest:
		return earliestBytes, nil
	case b.Tag == TagPending:
		return pendingBytes, nil
	default:
		return latestBytes, nil
	}
}

func (b *BlockID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, latestBytes), bytes.Equal(data, []byte("null")), len(data) == 0:
		*b = BlockID{Tag: TagLatest}
		return nil
	case bytes.Equal(data, pendingBytes):
		*b = BlockID{Tag: TagPending}
		return nil
	case bytes.Equal(data, earliestBytes):
		*b = BlockID{Tag: TagEarliest}
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			BlockHash common.Hash `json:"blockHash"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("invalid block identifier object: %w", err)
		}
		*b = BlockID{Hash: &obj.BlockHash}
		return nil
	}
	var n hexutil.Uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid block identifier: %w", err)
	}
	v := uint64(n)
	*b = BlockID{Number: &v}
	return nil
}

func (b BlockID) String() string {
	switch {
	case b.Hash != nil:
		return b.Hash.Hex()
	case b.Number != nil:
		return fmt.Sprintf("%d", *b.Number)
	case b.Tag == TagEarliest:
		return "earliest"
	case b.Tag == TagPending:
		return "pending"
	default:
		return "latest"
	}
}
