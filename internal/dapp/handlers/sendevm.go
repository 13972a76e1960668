package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/evm"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
)

// MethodEthSendTransaction sends a C-chain transaction.
const MethodEthSendTransaction = "eth_sendTransaction"

// evmTxParams is the transaction object of eth_sendTransaction.
type evmTxParams struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Value        *hexutil.Big    `json:"value,omitempty"`
	Data         hexutil.Bytes   `json:"data,omitempty"`
	Input        hexutil.Bytes   `json:"input,omitempty"`
	Gas          *hexutil.Uint64 `json:"gas,omitempty"`
	MaxFeePerGas *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	GasPrice     *hexutil.Big    `json:"gasPrice,omitempty"`
}

// evmSendPayload is the validated transaction shown for confirmation.
type evmSendPayload struct {
	ChainID      string         `json:"chainId"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	Value        hexutil.Big    `json:"value"`
	Data         hexutil.Bytes  `json:"data,omitempty"`
	Gas          hexutil.Uint64 `json:"gas"`
	MaxFeePerGas hexutil.Big    `json:"maxFeePerGas"`
}

// SendEVMTransaction validates a dapp transaction with the EVM send
// service and, once approved, signs and broadcasts it.
type SendEVMTransaction struct{}

// Methods implements dapp.Handler.
func (SendEVMTransaction) Methods() []string { return []string{MethodEthSendTransaction} }

// Handle validates the transaction and its fee without signing.
func (SendEVMTransaction) Handle(ctx context.Context, req *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	list, err := paramList(req.Params, 1)
	if err != nil {
		return dapp.Response{}, err
	}
	var tx evmTxParams
	if err = json.Unmarshal(list[0], &tx); err != nil {
		return dapp.Response{}, dapp.InvalidParams("malformed transaction: %v", err)
	}
	if tx.To == "" {
		return dapp.Response{}, dapp.InvalidParams("contract deployment is not supported")
	}

	network, err := requestNetwork(ctx, c, req)
	if err != nil {
		return dapp.Response{}, err
	}
	if network.Ledger != chain.LedgerEVM {
		return dapp.Response{}, dapp.InvalidParams("%s is not an EVM network", network.CAIP2)
	}

	p := evmSendPayload{ChainID: network.CAIP2, From: tx.From, To: tx.To, Data: tx.Data}
	if len(p.Data) == 0 {
		p.Data = tx.Input
	}
	if tx.Value != nil {
		p.Value = *tx.Value
	}
	if tx.Gas != nil {
		p.Gas = *tx.Gas
	}
	switch {
	case tx.MaxFeePerGas != nil:
		p.MaxFeePerGas = *tx.MaxFeePerGas
	case tx.GasPrice != nil:
		p.MaxFeePerGas = *tx.GasPrice
	}

	st, _, err := validateEVMSend(ctx, c, network, p)
	if err != nil {
		return dapp.Response{}, err
	}
	p.Gas = hexutil.Uint64(st.GasLimit)
	p.MaxFeePerGas = hexutil.Big(*st.DefaultMaxFeePerGas)

	summary := fmt.Sprintf("Send %s to %s on %s (fee up to %s)",
		st.Amount, p.To, network.Name, st.SendFee)
	return dapp.Pending(req, "Send transaction", summary, p)
}

// Approve re-validates against current balances, signs and broadcasts.
func (SendEVMTransaction) Approve(ctx context.Context, a dapp.ApproveRequest, c *dapp.Context) (json.RawMessage, error) {
	var p evmSendPayload
	if err := dapp.DecodePayload(a.Payload, &p); err != nil {
		return nil, err
	}
	if !evm.IsValidAddress(p.From) || !evm.IsValidAddress(p.To) || p.Gas == 0 || p.MaxFeePerGas.ToInt().Sign() <= 0 {
		return nil, dapp.Internal("invalid transaction payload")
	}
	network, err := approveNetwork(ctx, c, a.Request, p.ChainID)
	if err != nil {
		return nil, err
	}
	if network.Ledger != chain.LedgerEVM {
		return nil, dapp.Internal("invalid chain %q in transaction payload", p.ChainID)
	}

	st, acct, err := validateEVMSend(ctx, c, network, p)
	if err != nil {
		return nil, err
	}
	svc, err := sendService(c, chain.LedgerEVM)
	if err != nil {
		return nil, err
	}
	ledgerReq, err := svc.GetTransactionRequest(ctx, send.RequestParams{State: st, Network: network, Account: acct})
	if err != nil {
		return nil, serviceError(c, "building transaction", err)
	}
	evmReq, ok := ledgerReq.(*send.EVMSendRequest)
	if !ok {
		return nil, dapp.Internal("unexpected %s request", ledgerReq.Ledger())
	}

	if c.EVM == nil || c.Signer == nil {
		return nil, dapp.Internal("no EVM node or signer")
	}
	nonce, err := c.EVM.PendingNonce(ctx, evmReq.From)
	if err != nil {
		return nil, dapp.Internal("fetching nonce: %v", err)
	}
	tip, err := c.EVM.SuggestTipCap(ctx)
	if err != nil {
		return nil, dapp.Internal("suggesting tip: %v", err)
	}
	if tip.Cmp(evmReq.MaxFeePerGas) > 0 {
		tip = new(big.Int).Set(evmReq.MaxFeePerGas)
	}

	signed, err := c.Signer.SignEVMTransaction(ctx, evmReq, nonce, tip)
	if err != nil {
		return nil, signerError(err)
	}
	hash, err := c.EVM.SendTransaction(ctx, signed)
	if err != nil {
		return nil, dapp.Internal("broadcasting: %v", err)
	}
	c.Debug("broadcast %s on %s", hash, network.CAIP2)
	return json.Marshal(hash)
}

// validateEVMSend runs the EVM send service over a dapp transaction.
func validateEVMSend(ctx context.Context, c *dapp.Context, network *chain.Network, p evmSendPayload) (*send.SendState, *send.Account, error) {
	acct, err := activeAccount(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	if !evm.SameAddress(acct.AddressC, p.From) {
		return nil, nil, dapp.InvalidParams("from %s is not the active account", p.From)
	}
	svc, err := sendService(c, chain.LedgerEVM)
	if err != nil {
		return nil, nil, err
	}
	balance, err := nativeBalance(ctx, c, network, acct)
	if err != nil {
		return nil, nil, err
	}

	sym, dec := network.Token.Symbol, network.Token.Decimals
	st := &send.SendState{
		Amount:   chain.NewTokenUnit(p.Value.ToInt(), dec, sym),
		Address:  p.To,
		Token:    &send.Token{Type: send.TokenNative, Symbol: sym, Decimals: dec, Balance: balance},
		GasLimit: uint64(p.Gas),
		Data:     p.Data,
	}
	if p.MaxFeePerGas.ToInt().Sign() > 0 {
		st.DefaultMaxFeePerGas = p.MaxFeePerGas.ToInt()
	}

	out, err := svc.ValidateStateAndCalculateFees(ctx, send.ValidateParams{
		State:              st,
		Network:            network,
		Account:            acct,
		NativeTokenBalance: balance,
	})
	if err != nil {
		return nil, nil, serviceError(c, "validating transaction", err)
	}
	if !out.CanSubmit {
		return nil, nil, invalidSend(out)
	}
	return out, acct, nil
}
