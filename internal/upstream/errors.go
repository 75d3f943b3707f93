package upstream

import (
	"strings"

	"github.com/velas/evm-bridge/pkg/bridgeerr"
)

// rpcError is satisfied by github.com/ethereum/go-ethereum/rpc's
// error type, which every JSON-RPC error returned through
// (*rpc.Client).CallContext implements.
type rpcError interface {
	Error() string
	ErrorCode() int
}

type rpcErrorData interface {
	ErrorData() interface{}
}

// translate implements the error translation rules of §4.1: transport
// failures become NativeRpc, upstream JSON-RPC envelopes are
// preserved as ProxyRpc, and the preflight-log-rewriting special case
// replaces the message with the last two simulation log lines.
func (c *Client) translate(err error) error {
	if err == nil {
		return nil
	}
	rerr, ok := err.(rpcError)
	if !ok {
		return bridgeerr.NativeRpc(c.verbose, err)
	}

	var data interface{}
	if wd, ok := rerr.(rpcErrorData); ok {
		data = wd.ErrorData()
	}

	if logs, ok := preflightLogs(data); ok {
		if msg, found := lastTwoLogsJoined(logs); found {
			return bridgeerr.ProxyRpc(rerr.ErrorCode(), msg, data)
		}
	}

	return bridgeerr.ProxyRpc(rerr.ErrorCode(), rerr.Error(), data)
}

// preflightLogs recognizes the upstream's send-transaction preflight
// failure shape: an error data object carrying an InstructionError and
// a non-empty "logs" array.
func preflightLogs(data interface{}) ([]string, bool) {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return nil, false
	}
	if _, hasInstrErr := errField(obj); !hasInstrErr {
		return nil, false
	}
	rawLogs, ok := obj["logs"].([]interface{})
	if !ok || len(rawLogs) == 0 {
		return nil, false
	}
	logs := make([]string, 0, len(rawLogs))
	for _, l := range rawLogs {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	if len(logs) == 0 {
		return nil, false
	}
	return logs, true
}

func errField(obj map[string]interface{}) (interface{}, bool) {
	errVal, ok := obj["err"]
	if !ok {
		return nil, false
	}
	errObj, ok := errVal.(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, ok := errObj["InstructionError"]
	return v, ok
}

func lastTwoLogsJoined(logs []string) (string, bool) {
	if len(logs) == 0 {
		return "", false
	}
	if len(logs) == 1 {
		return logs[0], true
	}
	last2 := logs[len(logs)-2:]
	return strings.Join(last2, ";"), true
}
