package upstream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
)

type fakeRPCError struct {
	msg  string
	code int
	data interface{}
}

func (e *fakeRPCError) Error() string      { return e.msg }
func (e *fakeRPCError) ErrorCode() int     { return e.code }
func (e *fakeRPCError) ErrorData() interface{} { return e.data }

func TestTranslateTransportFailureBecomesNativeRpc(t *testing.T) {
	c := &Client{verbose: true}
	err := c.translate(errPlain("connection refused"))
	bridgeErr, ok := err.(*bridgeerr.Error)
	require.True(t, ok)
	require.Equal(t, bridgeerr.CodeNativeRpc, bridgeErr.Code)
}

func TestTranslatePreservesProxyEnvelope(t *testing.T) {
	c := &Client{}
	rerr := &fakeRPCError{msg: "execution reverted", code: -32000, data: map[string]interface{}{"foo": "bar"}}
	err := c.translate(rerr)
	bridgeErr, ok := err.(*bridgeerr.Error)
	require.True(t, ok)
	require.Equal(t, bridgeerr.CodeProxyRpc, bridgeErr.Code)
	require.Equal(t, "execution reverted", bridgeErr.Message)
}

func TestTranslateRewritesPreflightLogMessage(t *testing.T) {
	c := &Client{}
	data := map[string]interface{}{
		"err": map[string]interface{}{
			"InstructionError": []interface{}{0, "Custom"},
		},
		"logs": []interface{}{
			"Program log: step one",
			"Program log: step two",
			"Program log: final failure reason",
		},
	}
	rerr := &fakeRPCError{msg: "generic preflight failure", code: -32002, data: data}
	err := c.translate(rerr)
	bridgeErr, ok := err.(*bridgeerr.Error)
	require.True(t, ok)
	require.Equal(t, "Program log: step two;Program log: final failure reason", bridgeErr.Message)
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
