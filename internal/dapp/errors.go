package dapp

import (
	"errors"
	"fmt"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// RPC error codes relayed to the external session (EIP-1193 / EIP-1474).
const (
	CodeInvalidParams    = -32602
	CodeInternal         = -32603
	CodeResourceNotFound = -32001
	CodeLimitExceeded    = -32005
	CodeUserRejected     = 4001
	CodeUnsupportedMeth  = 4200
	CodeUnsupportedChain = 4901
)

// Stable messages of the external vocabulary.
const (
	MsgInvalidParams    = "invalid params"
	MsgUnsupportedChain = "unsupported chain id"
	MsgUnsupportedMeth  = "unsupported method"
	MsgResourceNotFound = "resource not found"
	MsgInternal         = "internal error"
	MsgUserRejected     = "user rejected"
	MsgLimitExceeded    = "limit exceeded"
)

// RPCError is the wire form of a failed request.
type RPCError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// ToRPCError maps any error into the stable vocabulary. Unknown errors
// become internal errors; their text is not leaked to the peer.
func ToRPCError(err error) *RPCError {
	if err == nil {
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var details map[string]string
	var we *cwerr.WalletError
	if errors.As(err, &we) {
		details = we.Details
	}

	switch cwerr.Code(err) {
	case cwerr.ErrInvalidParams.Code, cwerr.ErrInvalidInput.Code, cwerr.ErrInvalidAddress.Code,
		cwerr.ErrInvalidChecksum.Code, cwerr.ErrInvalidAmount.Code:
		return &RPCError{Code: CodeInvalidParams, Message: MsgInvalidParams, Data: details}
	case cwerr.ErrUnsupportedChainID.Code, cwerr.ErrUnsupportedNamespace.Code:
		return &RPCError{Code: CodeUnsupportedChain, Message: MsgUnsupportedChain, Data: details}
	case cwerr.ErrUnsupportedMethod.Code:
		return &RPCError{Code: CodeUnsupportedMeth, Message: MsgUnsupportedMeth, Data: details}
	case cwerr.ErrResourceNotFound.Code, cwerr.ErrNotFound.Code:
		return &RPCError{Code: CodeResourceNotFound, Message: MsgResourceNotFound, Data: details}
	case cwerr.ErrUserRejected.Code:
		return &RPCError{Code: CodeUserRejected, Message: MsgUserRejected}
	case cwerr.ErrLimitExceeded.Code:
		return &RPCError{Code: CodeLimitExceeded, Message: MsgLimitExceeded}
	default:
		return &RPCError{Code: CodeInternal, Message: MsgInternal}
	}
}

// InvalidParams builds an invalid params error with a reason.
func InvalidParams(format string, args ...any) error {
	return cwerr.WithDetails(cwerr.ErrInvalidParams, map[string]string{"reason": fmt.Sprintf(format, args...)})
}

// Internal builds an internal error with a reason. The reason is logged
// but not relayed.
func Internal(format string, args ...any) error {
	return cwerr.WithDetails(cwerr.ErrInternal, map[string]string{"reason": fmt.Sprintf(format, args...)})
}

// NotFound builds a resource not found error.
func NotFound(kind, id string) error {
	return cwerr.WithDetails(cwerr.ErrResourceNotFound, map[string]string{kind: id})
}

// Rejected is returned for requests the user declined.
func Rejected() error {
	return cwerr.ErrUserRejected
}
