package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
)

// MethodSwitchChain is the EIP-3326 network switch.
const MethodSwitchChain = "wallet_switchEthereumChain"

type switchParams struct {
	ChainID string `json:"chainId"`
}

// SwitchChain changes the active EVM network.
type SwitchChain struct{}

// Methods implements dapp.Handler.
func (SwitchChain) Methods() []string { return []string{MethodSwitchChain} }

// Handle resolves immediately when the chain is already active and fails
// without a prompt when it is unknown.
func (SwitchChain) Handle(ctx context.Context, req *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	p, caip2, err := requestedSwitch(req)
	if err != nil {
		return dapp.Response{}, err
	}

	active, err := activeNetwork(ctx, c)
	if err != nil {
		return dapp.Response{}, err
	}
	if active.CAIP2 == caip2 {
		return dapp.Resolved(nil)
	}

	target, ok := c.Networks.ByCAIP2(ctx, caip2)
	if !ok {
		return dapp.Response{}, dapp.NotFound("chain_id", caip2)
	}

	return dapp.Pending(req,
		"Switch network",
		fmt.Sprintf("%s wants to switch from %s to %s", req.Session.PeerName, active.Name, target.Name),
		switchParams{ChainID: p.ChainID},
	)
}

// Approve re-validates the payload and switches.
func (SwitchChain) Approve(ctx context.Context, a dapp.ApproveRequest, c *dapp.Context) (json.RawMessage, error) {
	var p switchParams
	if err := dapp.DecodePayload(a.Payload, &p); err != nil {
		return nil, err
	}
	caip2, err := switchTarget(p.ChainID)
	if err != nil {
		return nil, dapp.Internal("invalid chain in approve payload: %v", err)
	}
	if a.Request == nil {
		return nil, dapp.Internal("approve without its request")
	}
	_, requested, err := requestedSwitch(a.Request)
	if err != nil {
		return nil, dapp.Internal("re-reading switch request: %v", err)
	}
	if caip2 != requested {
		return nil, dapp.Internal("payload chain %s does not match requested %s", caip2, requested)
	}
	if _, ok := c.Networks.ByCAIP2(ctx, caip2); !ok {
		return nil, dapp.NotFound("chain_id", caip2)
	}
	if err = c.Networks.SetActive(ctx, caip2); err != nil {
		return nil, dapp.Internal("switching network: %v", err)
	}
	c.Debug("active network switched to %s", caip2)
	return json.RawMessage("null"), nil
}

// requestedSwitch decodes the switch params of req and their CAIP-2 target.
func requestedSwitch(req *dapp.Request) (switchParams, string, error) {
	list, err := paramList(req.Params, 1)
	if err != nil {
		return switchParams{}, "", err
	}
	var p switchParams
	if err = json.Unmarshal(list[0], &p); err != nil {
		return switchParams{}, "", dapp.InvalidParams("malformed chain switch params: %v", err)
	}
	caip2, err := switchTarget(p.ChainID)
	if err != nil {
		return switchParams{}, "", err
	}
	return p, caip2, nil
}

// switchTarget parses a 0x-hex chain id into its CAIP-2 form.
func switchTarget(hexID string) (string, error) {
	if hexID == "" {
		return "", dapp.InvalidParams("chainId is required")
	}
	id, err := hexutil.DecodeBig(hexID)
	if err != nil {
		return "", dapp.InvalidParams("chainId %q is not a 0x-prefixed hex number", hexID)
	}
	if id.Sign() <= 0 || !id.IsInt64() {
		return "", dapp.InvalidParams("chainId %q is out of range", hexID)
	}
	return chain.EVMCAIP2(id.Int64()), nil
}
