// Package handlers implements the dapp methods the wallet answers.
//
// Every handler splits work into Handle (read-only review) and Approve
// (the mutating action after user confirmation).
package handlers

import (
	"context"
	"encoding/json"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// EVM returns the handlers of the C-chain module.
func EVM() []dapp.Handler {
	return []dapp.Handler{
		SwitchChain{},
		SignMessage{},
		SendEVMTransaction{},
		ChainInfo{},
	}
}

// Avalanche returns the handlers of the X and P module.
func Avalanche() []dapp.Handler {
	return []dapp.Handler{
		SendUTXOTransaction{},
		XPAccounts{},
		RemoveContact{},
	}
}

// paramList decodes positional params, requiring at least minLen.
func paramList(raw json.RawMessage, minLen int) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := dapp.DecodeParams(raw, &list); err != nil {
		return nil, err
	}
	if len(list) < minLen {
		return nil, dapp.InvalidParams("expected %d params, got %d", minLen, len(list))
	}
	return list, nil
}

// paramString decodes one positional param as a string.
func paramString(raw json.RawMessage, name string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", dapp.InvalidParams("%s must be a non-empty string", name)
	}
	return s, nil
}

func activeAccount(ctx context.Context, c *dapp.Context) (*send.Account, error) {
	if c.Accounts == nil {
		return nil, dapp.Internal("no account store")
	}
	acct, err := c.Accounts.Active(ctx)
	if err != nil {
		return nil, dapp.Internal("loading active account: %v", err)
	}
	if acct == nil {
		return nil, dapp.Internal("no active account")
	}
	return acct, nil
}

func activeNetwork(ctx context.Context, c *dapp.Context) (*chain.Network, error) {
	if c.Networks == nil {
		return nil, dapp.Internal("no network store")
	}
	n, err := c.Networks.Active(ctx)
	if err != nil {
		return nil, dapp.Internal("loading active network: %v", err)
	}
	if n == nil {
		return nil, dapp.Internal("no active network")
	}
	return n, nil
}

// requestNetwork resolves the network a request targets: the request's
// chain id when it names a configured network, otherwise the active one.
func requestNetwork(ctx context.Context, c *dapp.Context, req *dapp.Request) (*chain.Network, error) {
	if req.ChainID != "" && c.Networks != nil {
		if n, ok := c.Networks.ByCAIP2(ctx, req.ChainID); ok {
			return n, nil
		}
	}
	return activeNetwork(ctx, c)
}

// approveNetwork checks that an approve payload targets the network its
// request resolved to and returns that network.
func approveNetwork(ctx context.Context, c *dapp.Context, req *dapp.Request, payloadChain string) (*chain.Network, error) {
	if req == nil {
		return nil, dapp.Internal("approve without its request")
	}
	n, err := requestNetwork(ctx, c, req)
	if err != nil {
		return nil, err
	}
	if payloadChain != n.CAIP2 {
		return nil, dapp.Internal("payload chain %q does not match request chain %q", payloadChain, n.CAIP2)
	}
	return n, nil
}

// serviceError hides a send service failure behind an internal error. A
// fatal one means the account and ledger disagree and is logged as such.
func serviceError(c *dapp.Context, what string, err error) error {
	if cwerr.IsFatal(err) {
		c.Error("%s: %s: %v", what, cwerr.Code(err), err)
		return dapp.Internal("%s: wallet account is inconsistent", what)
	}
	return dapp.Internal("%s: %v", what, err)
}

func sendService(c *dapp.Context, l chain.LedgerType) (send.Service, error) {
	if c.Send == nil {
		return nil, dapp.Internal("no send engine")
	}
	svc, err := c.Send.ServiceFor(l)
	if err != nil {
		return nil, dapp.Internal("no send service for %s: %v", l, err)
	}
	return svc, nil
}

func nativeBalance(ctx context.Context, c *dapp.Context, n *chain.Network, acct *send.Account) (*chain.TokenUnit, error) {
	if c.Balances == nil {
		return nil, dapp.Internal("no balance source")
	}
	bal, err := c.Balances.NativeBalance(ctx, n, acct)
	if err != nil {
		return nil, dapp.Internal("loading balance: %v", err)
	}
	return bal, nil
}

// invalidSend maps a failed validation into invalid params.
func invalidSend(st *send.SendState) error {
	return dapp.InvalidParams("transaction cannot be submitted: %s", st.Error)
}
