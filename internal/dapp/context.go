package dapp

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/service/send"
)

// NetworkStore knows the configured networks and which one is active.
type NetworkStore interface {
	Active(ctx context.Context) (*chain.Network, error)
	ByCAIP2(ctx context.Context, caip2 string) (*chain.Network, bool)
	SetActive(ctx context.Context, caip2 string) error
}

// AccountStore returns the active account.
type AccountStore interface {
	Active(ctx context.Context) (*send.Account, error)
}

// Contact is an address book entry.
type Contact struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	AddressC  string `json:"address_c,omitempty" yaml:"address_c,omitempty"`
	AddressXP string `json:"address_xp,omitempty" yaml:"address_xp,omitempty"`
}

// ContactStore is the address book.
type ContactStore interface {
	Get(ctx context.Context, id string) (*Contact, bool, error)
	Remove(ctx context.Context, id string) error
}

// MessageKind selects the signing scheme of a message request.
type MessageKind string

// Message kinds.
const (
	MessagePersonal    MessageKind = "personal_sign"
	MessageEthSign     MessageKind = "eth_sign"
	MessageTypedDataV1 MessageKind = "eth_signTypedData"
	MessageTypedDataV3 MessageKind = "eth_signTypedData_v3"
	MessageTypedDataV4 MessageKind = "eth_signTypedData_v4"
)

// Signer is the opaque key capability. It may be slow or fail.
type Signer interface {
	SignEVMTransaction(ctx context.Context, req *send.EVMSendRequest, nonce uint64, tip *big.Int) (*types.Transaction, error)
	SignMessage(ctx context.Context, kind MessageKind, address string, data []byte) ([]byte, error)
	SignUTXOTransaction(ctx context.Context, req *send.UTXOSendRequest) ([]byte, error)
}

// EVMNode provides nonces, tips and broadcast on the C-chain.
type EVMNode interface {
	PendingNonce(ctx context.Context, address string) (uint64, error)
	SuggestTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (string, error)
}

// UTXOBroadcaster submits signed X or P transactions.
type UTXOBroadcaster interface {
	IssueTx(ctx context.Context, signed []byte) (string, error)
}

// BalanceSource reports the native balance of an account on a network.
type BalanceSource interface {
	NativeBalance(ctx context.Context, network *chain.Network, account *send.Account) (*chain.TokenUnit, error)
}

// SendEngine validates and builds sends; *send.Dispatcher satisfies it.
type SendEngine interface {
	ServiceFor(l chain.LedgerType) (send.Service, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Context carries the collaborators handlers may use. It is built once
// and shared by all requests.
type Context struct {
	Networks NetworkStore
	Accounts AccountStore
	Contacts ContactStore
	Signer   Signer
	EVM      EVMNode
	XChain   UTXOBroadcaster
	PChain   UTXOBroadcaster
	Balances BalanceSource
	Send     SendEngine
	Logger   LogWriter
}

// Debug logs through the context logger when one is set.
func (c *Context) Debug(format string, args ...any) {
	if c != nil && c.Logger != nil {
		c.Logger.Debug(format, args...)
	}
}

// Error logs at error level through the context logger when one is set.
func (c *Context) Error(format string, args ...any) {
	if c != nil && c.Logger != nil {
		c.Logger.Error(format, args...)
	}
}

// UTXOBroadcasterFor returns the broadcaster of the X or P ledger.
func (c *Context) UTXOBroadcasterFor(l chain.LedgerType) UTXOBroadcaster {
	switch l {
	case chain.LedgerAVM:
		return c.XChain
	case chain.LedgerPVM:
		return c.PChain
	case chain.LedgerEVM, chain.LedgerUnknown:
		return nil
	default:
		return nil
	}
}
