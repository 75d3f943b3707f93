// Package bridgeerr defines the typed error taxonomy surfaced by every
// bridge component and translated to JSON-RPC error objects at the
// server boundary.
package bridgeerr

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Code identifies an error kind independent of its message, so the
// RPC layer can map it to a JSON-RPC error code and decide whether the
// message is safe to surface verbatim.
type Code int

const (
	CodeUnimplemented Code = iota + 1
	CodeKeyNotFound
	CodeBlockNotFound
	CodeStateNotFoundForBlock
	CodeStateRootNotFound
	CodeInvalidBlocksRange
	CodeGasPriceTooLow
	CodeCallError
	CodeCallRevert
	CodeCallFatal
	CodeEvmStateError
	CodeRlpError
	CodeProxyRpc
	CodeNativeRpc
	CodeRuntime
	CodeAlreadyImported
)

// Error is the common shape every bridge error satisfies.
type Error struct {
	Code    Code
	Message string
	Data    interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// ErrorData implements the data field go-ethereum's rpc server reads
// off handler errors that support it.
func (e *Error) ErrorData() interface{} { return e.Data }

func newErr(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func Unimplemented(method string) *Error {
	return newErr(CodeUnimplemented, "unimplemented: "+method, nil)
}

func KeyNotFound(addr common.Address) *Error {
	return newErr(CodeKeyNotFound, "key not found for address "+addr.Hex(), nil)
}

func BlockNotFound() *Error {
	return newErr(CodeBlockNotFound, "block not found", nil)
}

func StateNotFoundForBlock() *Error {
	return newErr(CodeStateNotFoundForBlock, "state not found for block", nil)
}

func StateRootNotFound() *Error {
	return newErr(CodeStateRootNotFound, "state root not found", nil)
}

// InvalidRange carries the optional batch-size hint named in §7/§8.
type InvalidRange struct {
	Starting  uint64
	Ending    uint64
	BatchSize *uint64
}

func InvalidBlocksRange(starting, ending uint64, batchSize *uint64) *Error {
	return &Error{
		Code:    CodeInvalidBlocksRange,
		Message: fmt.Sprintf("invalid block range [%d, %d]", starting, ending),
		Data:    InvalidRange{Starting: starting, Ending: ending, BatchSize: batchSize},
	}
}

func GasPriceTooLow(submitted, floor uint64) *Error {
	return newErr(CodeGasPriceTooLow, fmt.Sprintf("gas price %d below minimum %d", submitted, floor), nil)
}

func CallError(data []byte, cause error) *Error {
	return &Error{Code: CodeCallError, Message: "call error", Data: data, cause: cause}
}

func CallRevert(data []byte, cause error) *Error {
	return &Error{Code: CodeCallRevert, Message: "execution reverted", Data: data, cause: cause}
}

func CallFatal(cause error) *Error {
	return newErr(CodeCallFatal, "fatal EVM error", cause)
}

func EvmStateError(cause error) *Error {
	return newErr(CodeEvmStateError, "evm state error", cause)
}

func RlpError(input []byte, cause error) *Error {
	return &Error{Code: CodeRlpError, Message: "failed to decode raw transaction", Data: input, cause: cause}
}

// ProxyRpc wraps an upstream JSON-RPC error envelope, preserved
// verbatim (code/message/data) per §4.1.
func ProxyRpc(code int, message string, data interface{}) *Error {
	return &Error{Code: CodeProxyRpc, Message: message, Data: data}
}

// NativeRpc wraps a transport/parse failure crossing the upstream
// client boundary. The message is replaced with a generic one unless
// verbose is set.
func NativeRpc(verbose bool, cause error) *Error {
	wrapped := Wrap(cause, "upstream rpc call failed")
	msg := "upstream request failed"
	if verbose {
		msg = wrapped.Error()
	}
	return newErr(CodeNativeRpc, msg, wrapped)
}

func Runtime(cause error) *Error {
	return newErr(CodeRuntime, "internal bridge error", cause)
}

func AlreadyImported(hash common.Hash) *Error {
	return &Error{Code: CodeAlreadyImported, Message: "already imported", Data: hash}
}

// Wrap adds context the way the rest of the codebase wraps errors
// with github.com/pkg/errors before they cross a package boundary.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}
