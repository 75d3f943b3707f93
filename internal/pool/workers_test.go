package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/internal/upstream"
	"github.com/velas/evm-bridge/pkg/rpctypes"
)

// jsonrpcRequest is the minimal envelope needed to read the method
// name off an incoming call in the fake upstream handler below.
type jsonrpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// fakeUpstreamHandler answers the handful of upstream methods the
// pool workers call with canned JSON-RPC responses, enough to drive
// DeployWorker and SignatureChecker end to end against a real HTTP
// transport without depending on go-ethereum's own rpc.Server
// namespace-routing rules for Solana-style unprefixed method names.
type fakeUpstreamHandler struct {
	nonce     uint64
	confirmed bool
}

func (h *fakeUpstreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req jsonrpcRequest
	_ = json.Unmarshal(body, &req)

	var result interface{}
	switch req.Method {
	case "eth_getTransactionCount":
		result = fmt.Sprintf("0x%x", h.nonce)
	case "getLatestBlockhash":
		result = map[string]interface{}{"value": map[string]interface{}{"blockhash": "00000000000000000000000000000000"}}
	case "sendTransaction":
		result = "sig1"
	case "getSignatureStatuses":
		if h.confirmed {
			result = map[string]interface{}{"value": []interface{}{
				map[string]interface{}{"err": nil, "confirmationStatus": "confirmed"},
			}}
		} else {
			result = map[string]interface{}{"value": []interface{}{nil}}
		}
	case "getTransactionReceipt", "eth_getTransactionReceipt":
		result = nil
	default:
		result = nil
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func startFakeUpstream(t *testing.T, h *fakeUpstreamHandler) *upstream.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := upstream.Dial(context.Background(), srv.URL, true)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

type fakeWrapper struct{}

func (fakeWrapper) Wrap(tx *rpctypes.SignedTransaction, metaKeys []string, recentBlockhash string) ([]byte, error) {
	return []byte("wrapped"), nil
}

func TestDeployWorkerSweepSubmitsReadyTransaction(t *testing.T) {
	client := startFakeUpstream(t, &fakeUpstreamHandler{nonce: 0, confirmed: true})

	p := New(NewFrozenClock(time.Unix(0, 0)))
	sender := common.HexToAddress("0xaaaa")
	entry, err := p.Import(sampleTx(0), common.HexToHash("0x10"), sender, nil, 0, false)
	require.NoError(t, err)

	worker := &DeployWorker{Pool: p, Upstream: client, Wrapper: fakeWrapper{}, Logger: testLogger()}
	worker.sweep(context.Background())

	sig, ok := entry.Signature()
	require.True(t, ok)
	require.Equal(t, "sig1", sig)
}

func TestSignatureCheckerMarksLandedOnConfirmation(t *testing.T) {
	client := startFakeUpstream(t, &fakeUpstreamHandler{confirmed: true})

	p := New(NewFrozenClock(time.Unix(0, 0)))
	sender := common.HexToAddress("0xbbbb")
	entry, err := p.Import(sampleTx(0), common.HexToHash("0x11"), sender, nil, 0, false)
	require.NoError(t, err)
	entry.setSignature("sig1")

	checker := &SignatureChecker{Pool: p, Upstream: client, Logger: testLogger()}
	checker.sweep(context.Background())

	require.True(t, entry.isLanded())
}
