package bridgerpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// NetService answers the net_* namespace.
type NetService struct{ *Deps }

func NewNetService(d *Deps) *NetService { return &NetService{d} }

func (s *NetService) Version() string { return fmt.Sprintf("%d", s.ChainID) }

func (s *NetService) Listening() bool { return true }

func (s *NetService) PeerCount() hexutil.Uint64 { return 0 }

// Web3Service answers the web3_* namespace.
type Web3Service struct{ *Deps }

func NewWeb3Service(d *Deps) *Web3Service { return &Web3Service{d} }

func (s *Web3Service) Sha3(data hexutil.Bytes) hexutil.Bytes {
	return crypto.Keccak256(data)
}

func (s *Web3Service) ClientVersion() string { return "evm-bridge/1.0" }

// GeneralService answers the chain-agnostic constants served under
// the eth_* namespace (§4.5 General group).
type GeneralService struct{ *Deps }

func NewGeneralService(d *Deps) *GeneralService { return &GeneralService{d} }

func (s *GeneralService) ChainId() hexutil.Uint64 { return hexutil.Uint64(s.ChainID) }

func (s *GeneralService) ProtocolVersion() string { return "0x41" }

// Syncing proxies eth_syncing to the upstream (§4.5); only a boolean
// answer is supported (see upstream.Client.EthSyncing). The bridge
// tracks no sync state of its own.
func (s *GeneralService) Syncing(ctx context.Context) (bool, error) {
	return s.Upstream.EthSyncing(ctx)
}

func (s *GeneralService) Coinbase() common.Address { return common.Address{} }

func (s *GeneralService) Mining() bool { return false }

// Hashrate always answers zero: the upstream cluster has no mining
// hashrate concept (§4.5).
func (s *GeneralService) Hashrate() (hexutil.Uint64, error) {
	return 0, nil
}

func (s *GeneralService) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	floor := hexutil.Big(*bigFromUint64(s.MinGasPrice))
	return &floor, nil
}
