package handlers_test

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
)

const (
	activeAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	otherAddr  = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"

	// bech32 (fuji) of 20 repeated bytes 0x01 and 0x04
	xp01 = "fuji1qyqszqgpqyqszqgpqyqszqgpqyqszqgptrggc7"
	xp04 = "fuji1qszqgpqyqszqgpqyqszqgpqyqszqgpqym8gf74"

	caipFuji    = "eip155:43113"
	caipMainnet = "eip155:43114"
	caipFujiX   = "avax:fuji-x"
)

func fujiC() *chain.Network {
	return &chain.Network{
		Name:    "Avalanche Fuji C-Chain",
		ChainID: 43113,
		CAIP2:   caipFuji,
		Ledger:  chain.LedgerEVM,
		Token:   chain.NativeToken{Symbol: "AVAX", Decimals: 18},
	}
}

func mainnetC() *chain.Network {
	n := fujiC()
	n.Name = "Avalanche C-Chain"
	n.ChainID = 43114
	n.CAIP2 = caipMainnet
	return n
}

func fujiX() *chain.Network {
	return &chain.Network{
		Name:   "Avalanche Fuji X-Chain",
		CAIP2:  caipFujiX,
		Ledger: chain.LedgerAVM,
		Token:  chain.NativeToken{Symbol: "AVAX", Decimals: 9},
		HRP:    avax.HRPFuji,
	}
}

type fakeNetworks struct {
	mu       sync.Mutex
	active   string
	networks map[string]*chain.Network
	switches []string
}

func newFakeNetworks(active string) *fakeNetworks {
	return &fakeNetworks{
		active: active,
		networks: map[string]*chain.Network{
			caipFuji:    fujiC(),
			caipMainnet: mainnetC(),
			caipFujiX:   fujiX(),
		},
	}
}

func (f *fakeNetworks) Active(context.Context) (*chain.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.networks[f.active], nil
}

func (f *fakeNetworks) ByCAIP2(_ context.Context, caip2 string) (*chain.Network, bool) {
	n, ok := f.networks[caip2]
	return n, ok
}

func (f *fakeNetworks) SetActive(_ context.Context, caip2 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = caip2
	f.switches = append(f.switches, caip2)
	return nil
}

type fakeAccounts struct {
	acct *send.Account
}

func (f fakeAccounts) Active(context.Context) (*send.Account, error) { return f.acct, nil }

type fakeContacts struct {
	mu       sync.Mutex
	contacts map[string]*dapp.Contact
}

func (f *fakeContacts) Get(_ context.Context, id string) (*dapp.Contact, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	return c, ok, nil
}

func (f *fakeContacts) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.contacts, id)
	return nil
}

type fakeSigner struct {
	err error

	mu        sync.Mutex
	messages  [][]byte
	kinds     []dapp.MessageKind
	evmReqs   []*send.EVMSendRequest
	utxoReqs  []*send.UTXOSendRequest
	evmTips   []*big.Int
	evmNonces []uint64
}

func (f *fakeSigner) SignEVMTransaction(_ context.Context, req *send.EVMSendRequest, nonce uint64, tip *big.Int) (*types.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.evmReqs = append(f.evmReqs, req)
	f.evmNonces = append(f.evmNonces, nonce)
	f.evmTips = append(f.evmTips, tip)
	f.mu.Unlock()
	to := common.HexToAddress(req.To)
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(req.ChainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: req.MaxFeePerGas,
		Gas:       req.GasLimit,
		To:        &to,
		Value:     req.Value,
		Data:      req.Data,
	}), nil
}

func (f *fakeSigner) SignMessage(_ context.Context, kind dapp.MessageKind, _ string, data []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.kinds = append(f.kinds, kind)
	f.messages = append(f.messages, data)
	f.mu.Unlock()
	return []byte{0xde, 0xad}, nil
}

func (f *fakeSigner) SignUTXOTransaction(_ context.Context, req *send.UTXOSendRequest) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.utxoReqs = append(f.utxoReqs, req)
	f.mu.Unlock()
	return append([]byte{0xff}, req.TxBytes...), nil
}

type fakeNode struct {
	tip *big.Int

	mu   sync.Mutex
	sent []*types.Transaction
}

func (f *fakeNode) PendingNonce(context.Context, string) (uint64, error) { return 7, nil }

func (f *fakeNode) SuggestTipCap(context.Context) (*big.Int, error) { return f.tip, nil }

func (f *fakeNode) SendTransaction(_ context.Context, tx *types.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Hash().Hex(), nil
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued [][]byte
}

func (f *fakeIssuer) IssueTx(_ context.Context, signed []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, signed)
	return avax.TxHash(signed).String(), nil
}

type fakeBalances struct {
	evm, utxo int64
}

func (f fakeBalances) NativeBalance(_ context.Context, n *chain.Network, _ *send.Account) (*chain.TokenUnit, error) {
	v := f.evm
	if n.Ledger.IsUTXO() {
		v = f.utxo
	}
	return chain.NewTokenUnit(big.NewInt(v), n.Token.Decimals, n.Token.Symbol), nil
}

type fakeUTXOs struct {
	utxos []avax.UTXO
}

func (f fakeUTXOs) GetUTXOs(context.Context, []string) ([]avax.UTXO, error) { return f.utxos, nil }

func shortID(b byte) avax.ShortID {
	var id avax.ShortID
	for i := range id {
		id[i] = b
	}
	return id
}

type env struct {
	ctx      *dapp.Context
	networks *fakeNetworks
	contacts *fakeContacts
	signer   *fakeSigner
	node     *fakeNode
	xchain   *fakeIssuer
}

func newEnv(t *testing.T, active string) *env {
	t.Helper()

	utxos := fakeUTXOs{utxos: []avax.UTXO{{
		TxID:      avax.ID{9},
		AssetID:   avax.FujiParams().AVAXAssetID,
		Amount:    5_000_000,
		Threshold: 1,
		Addresses: []avax.ShortID{shortID(0x01)},
	}}}
	dispatcher, err := send.NewDispatcher(nil,
		send.NewEVMService(nil),
		send.NewAVMService(&send.UTXOConfig{UTXOs: utxos}),
	)
	require.NoError(t, err)

	e := &env{
		networks: newFakeNetworks(active),
		contacts: &fakeContacts{contacts: map[string]*dapp.Contact{
			"c1": {ID: "c1", Name: "Alice", AddressC: otherAddr},
		}},
		signer: &fakeSigner{},
		node:   &fakeNode{tip: big.NewInt(2)},
		xchain: &fakeIssuer{},
	}
	e.ctx = &dapp.Context{
		Networks: e.networks,
		Accounts: fakeAccounts{acct: &send.Account{
			Name:        "main",
			AddressC:    activeAddr,
			AddressAVM:  "X-" + xp01,
			XPAddresses: []send.XPAddress{{Address: xp01}},
		}},
		Contacts: e.contacts,
		Signer:   e.signer,
		EVM:      e.node,
		XChain:   e.xchain,
		Balances: fakeBalances{evm: 1_000_000_000, utxo: 5_000_000},
		Send:     dispatcher,
	}
	return e
}

func request(method, chainID string, params any) *dapp.Request {
	raw, _ := json.Marshal(params)
	return &dapp.Request{
		ID:      "req-1",
		Method:  method,
		Params:  raw,
		ChainID: chainID,
		Session: dapp.SessionMetadata{Topic: "topic-1", PeerName: "dex"},
		Origin:  dapp.OriginSession,
	}
}

// approveWithPrompt approves using the payload the prompt proposed.
func approveWithPrompt(req *dapp.Request, resp dapp.Response) dapp.ApproveRequest {
	return dapp.ApproveRequest{Request: req, Payload: resp.Pending.Prompt.Payload}
}
