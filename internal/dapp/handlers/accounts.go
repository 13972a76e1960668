package handlers

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
)

// Read-only methods.
const (
	MethodEthChainID          = "eth_chainId"
	MethodEthAccounts         = "eth_accounts"
	MethodEthRequestAccounts  = "eth_requestAccounts"
	MethodAvalancheGetAccount = "avalanche_getAccounts"
)

// ChainInfo answers chain id and account queries from state alone.
type ChainInfo struct{}

// Methods implements dapp.Handler.
func (ChainInfo) Methods() []string {
	return []string{MethodEthChainID, MethodEthAccounts, MethodEthRequestAccounts}
}

// Handle always resolves; nothing here needs confirmation.
func (ChainInfo) Handle(ctx context.Context, req *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	switch req.Method {
	case MethodEthChainID:
		n, err := activeNetwork(ctx, c)
		if err != nil {
			return dapp.Response{}, err
		}
		if n.Ledger != chain.LedgerEVM {
			return dapp.Response{}, dapp.InvalidParams("active network %s is not an EVM network", n.CAIP2)
		}
		return dapp.Resolved(hexutil.EncodeBig(big.NewInt(n.ChainID)))
	default:
		acct, err := activeAccount(ctx, c)
		if err != nil {
			return dapp.Response{}, err
		}
		if acct.AddressC == "" {
			return dapp.Resolved([]string{})
		}
		return dapp.Resolved([]string{acct.AddressC})
	}
}

// Approve is never reached: Handle never returns a pending response.
func (ChainInfo) Approve(context.Context, dapp.ApproveRequest, *dapp.Context) (json.RawMessage, error) {
	return nil, dapp.Internal("read-only method has no approve phase")
}

// xpAccount is one entry of avalanche_getAccounts.
type xpAccount struct {
	Name       string `json:"name"`
	Index      uint32 `json:"index"`
	AddressC   string `json:"addressC"`
	AddressAVM string `json:"addressAVM,omitempty"`
	AddressPVM string `json:"addressPVM,omitempty"`
	Active     bool   `json:"active"`
}

// XPAccounts lists the active account's addresses on every ledger.
type XPAccounts struct{}

// Methods implements dapp.Handler.
func (XPAccounts) Methods() []string { return []string{MethodAvalancheGetAccount} }

// Handle resolves with the active account.
func (XPAccounts) Handle(ctx context.Context, _ *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	acct, err := activeAccount(ctx, c)
	if err != nil {
		return dapp.Response{}, err
	}
	return dapp.Resolved([]xpAccount{accountView(acct)})
}

// Approve is never reached.
func (XPAccounts) Approve(context.Context, dapp.ApproveRequest, *dapp.Context) (json.RawMessage, error) {
	return nil, dapp.Internal("read-only method has no approve phase")
}

func accountView(a *send.Account) xpAccount {
	return xpAccount{
		Name:       a.Name,
		Index:      a.Index,
		AddressC:   a.AddressC,
		AddressAVM: a.AddressAVM,
		AddressPVM: a.AddressPVM,
		Active:     true,
	}
}
