package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
)

// MethodAvalancheSendTransaction sends AVAX on the X or P ledger.
const MethodAvalancheSendTransaction = "avalanche_sendTransaction"

// utxoSendParams is the request object; Amount is in nAVAX.
type utxoSendParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type utxoSendPayload struct {
	ChainID string `json:"chainId"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

// SendUTXOTransaction transfers AVAX on the request's X or P ledger.
type SendUTXOTransaction struct{}

// Methods implements dapp.Handler.
func (SendUTXOTransaction) Methods() []string { return []string{MethodAvalancheSendTransaction} }

// Handle validates the transfer and fee.
func (SendUTXOTransaction) Handle(ctx context.Context, req *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	list, err := paramList(req.Params, 1)
	if err != nil {
		return dapp.Response{}, err
	}
	var in utxoSendParams
	if err = json.Unmarshal(list[0], &in); err != nil {
		return dapp.Response{}, dapp.InvalidParams("malformed transfer: %v", err)
	}

	network, err := requestNetwork(ctx, c, req)
	if err != nil {
		return dapp.Response{}, err
	}
	if !network.Ledger.IsUTXO() {
		return dapp.Response{}, dapp.InvalidParams("%s is not an X or P network", network.CAIP2)
	}

	p := utxoSendPayload{ChainID: network.CAIP2, To: in.To, Amount: in.Amount}
	st, _, err := validateUTXOSend(ctx, c, network, p)
	if err != nil {
		return dapp.Response{}, err
	}

	summary := fmt.Sprintf("Send %s to %s on %s (fee %s)", st.Amount, p.To, network.Name, st.SendFee)
	return dapp.Pending(req, "Send transaction", summary, p)
}

// Approve rebuilds the transfer from fresh UTXOs, signs and issues it.
func (SendUTXOTransaction) Approve(ctx context.Context, a dapp.ApproveRequest, c *dapp.Context) (json.RawMessage, error) {
	var p utxoSendPayload
	if err := dapp.DecodePayload(a.Payload, &p); err != nil {
		return nil, err
	}
	if p.To == "" || p.Amount == "" {
		return nil, dapp.Internal("invalid transfer payload")
	}
	network, err := approveNetwork(ctx, c, a.Request, p.ChainID)
	if err != nil {
		return nil, err
	}
	if !network.Ledger.IsUTXO() {
		return nil, dapp.Internal("invalid chain %q in transfer payload", p.ChainID)
	}

	st, acct, err := validateUTXOSend(ctx, c, network, p)
	if err != nil {
		return nil, err
	}
	svc, err := sendService(c, network.Ledger)
	if err != nil {
		return nil, err
	}
	ledgerReq, err := svc.GetTransactionRequest(ctx, send.RequestParams{State: st, Network: network, Account: acct})
	if err != nil {
		return nil, serviceError(c, "building transfer", err)
	}
	utxoReq, ok := ledgerReq.(*send.UTXOSendRequest)
	if !ok {
		return nil, dapp.Internal("unexpected %s request", ledgerReq.Ledger())
	}

	issuer := c.UTXOBroadcasterFor(network.Ledger)
	if issuer == nil || c.Signer == nil {
		return nil, dapp.Internal("no %s broadcaster or signer", network.Ledger)
	}
	signed, err := c.Signer.SignUTXOTransaction(ctx, utxoReq)
	if err != nil {
		return nil, signerError(err)
	}
	txID, err := issuer.IssueTx(ctx, signed)
	if err != nil {
		return nil, dapp.Internal("issuing transfer: %v", err)
	}
	c.Debug("issued %s on %s", txID, network.CAIP2)
	return json.Marshal(txID)
}

func validateUTXOSend(ctx context.Context, c *dapp.Context, network *chain.Network, p utxoSendPayload) (*send.SendState, *send.Account, error) {
	amount, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return nil, nil, dapp.InvalidParams("amount must be a non-negative integer in nAVAX")
	}
	acct, err := activeAccount(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	if acct.SenderFor(network.Ledger) == "" {
		return nil, nil, dapp.InvalidParams("active account has no %s address", network.Ledger)
	}
	svc, err := sendService(c, network.Ledger)
	if err != nil {
		return nil, nil, err
	}
	balance, err := nativeBalance(ctx, c, network, acct)
	if err != nil {
		return nil, nil, err
	}

	sym, dec := network.Token.Symbol, network.Token.Decimals
	out, err := svc.ValidateStateAndCalculateFees(ctx, send.ValidateParams{
		State: &send.SendState{
			Amount:  chain.NewTokenUnit(amount, dec, sym),
			Address: p.To,
			Token:   &send.Token{Type: send.TokenNative, Symbol: sym, Decimals: dec, Balance: balance},
		},
		Network:            network,
		Account:            acct,
		NativeTokenBalance: balance,
	})
	if err != nil {
		return nil, nil, serviceError(c, "validating transfer", err)
	}
	if !out.CanSubmit {
		return nil, nil, invalidSend(out)
	}
	return out, acct, nil
}
