package app

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

var errHook = errors.New("hook failed")

func testNetworks(t *testing.T) *Networks {
	t.Helper()
	n, err := NewNetworks(testConfig(t).ChainNetworks(), "eip155:43114")
	require.NoError(t, err)
	return n
}

func TestNetworks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	n := testNetworks(t)

	active, err := n.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, chain.LedgerEVM, active.Ledger)
	assert.Len(t, n.List(), 3)

	var seen []string
	n.OnChange(func(net *chain.Network) error {
		seen = append(seen, net.CAIP2)
		return nil
	})

	x := n.List()[1]
	require.NoError(t, n.SetActive(ctx, x.CAIP2))
	require.NoError(t, n.SetActive(ctx, x.CAIP2))
	assert.Equal(t, []string{x.CAIP2}, seen)

	require.ErrorIs(t, n.SetActive(ctx, "eip155:1"), cwerr.ErrResourceNotFound)

	got, ok := n.ByCAIP2(ctx, x.CAIP2)
	require.True(t, ok)
	assert.Equal(t, chain.LedgerAVM, got.Ledger)
	_, ok = n.ByCAIP2(ctx, "eip155:1")
	assert.False(t, ok)
}

func TestNetworks_HookFailureKeepsActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	n := testNetworks(t)
	n.OnChange(func(*chain.Network) error { return errHook })

	require.ErrorIs(t, n.SetActive(ctx, n.List()[2].CAIP2), errHook)
	active, _ := n.Active(ctx)
	assert.Equal(t, "eip155:43114", active.CAIP2)
}

func TestNewNetworks_Errors(t *testing.T) {
	t.Parallel()
	list := testConfig(t).ChainNetworks()

	_, err := NewNetworks(list, "eip155:1")
	require.ErrorIs(t, err, cwerr.ErrConfigInvalid)

	_, err = NewNetworks(append(list, list[0]), list[0].CAIP2)
	require.ErrorIs(t, err, cwerr.ErrConfigInvalid)
}

func TestContactBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), ContactsFile)
	book, err := LoadContacts(path)
	require.NoError(t, err)
	assert.Empty(t, book.List())

	require.NoError(t, book.Put(ctx, dapp.Contact{ID: "2", Name: "Bob", AddressC: "0xabc"}))
	require.NoError(t, book.Put(ctx, dapp.Contact{ID: "1", Name: "Alice", AddressXP: "avax1xyz"}))
	require.ErrorIs(t, book.Put(ctx, dapp.Contact{Name: "nobody"}), cwerr.ErrInvalidInput)

	list := book.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name)

	require.NoError(t, book.Remove(ctx, "2"))
	require.ErrorIs(t, book.Remove(ctx, "2"), cwerr.ErrNotFound)

	reloaded, err := LoadContacts(path)
	require.NoError(t, err)
	c, ok, err := reloaded.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "avax1xyz", c.AddressXP)
	_, ok, _ = reloaded.Get(ctx, "2")
	assert.False(t, ok)
}

func TestContactBook_InMemory(t *testing.T) {
	t.Parallel()
	book, err := LoadContacts("")
	require.NoError(t, err)
	require.NoError(t, book.Put(context.Background(), dapp.Contact{ID: "x", Name: "X"}))
	assert.Len(t, book.List(), 1)
}

func TestBalances_EVM(t *testing.T) {
	t.Parallel()
	n := testNetworks(t).List()[0]
	b := NewBalances(&Backends{EVM: &fakeEVM{balance: big.NewInt(5e17)}}, nil)

	bal, err := b.NativeBalance(context.Background(), n, &send.Account{AddressC: "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"})
	require.NoError(t, err)
	assert.Equal(t, "0.5", bal.Display())
	assert.Equal(t, n.Token.Symbol, bal.Symbol())

	_, err = NewBalances(&Backends{}, nil).NativeBalance(context.Background(), n, &send.Account{})
	require.ErrorIs(t, err, cwerr.ErrUnsupportedLedger)
}

func TestBalances_UTXO(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	asset := avax.MainnetParams().AVAXAssetID
	other := avax.ID{9}
	src := &fakeUTXO{utxos: []avax.UTXO{
		{AssetID: asset, Amount: 2_000_000_000, Threshold: 1},
		{AssetID: asset, Amount: 500_000_000, Threshold: 1, OutputIndex: 1},
		{AssetID: asset, Amount: 7, Threshold: 1, Locktime: uint64(now.Unix()) + 60},
		{AssetID: asset, Amount: 9, Threshold: 2},
		{AssetID: other, Amount: 11, Threshold: 1},
	}}
	b := NewBalances(&Backends{X: src}, func() time.Time { return now })

	x := testNetworks(t).List()[1]
	acct := &send.Account{XPAddresses: []send.XPAddress{{Address: "avax1aaa"}, {Address: "avax1bbb", Internal: true}}}
	bal, err := b.NativeBalance(context.Background(), x, acct)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), bal.Value().Uint64())
	assert.Equal(t, []string{"X-avax1aaa", "X-avax1bbb"}, src.queried)

	p := testNetworks(t).List()[2]
	_, err = b.NativeBalance(context.Background(), p, acct)
	require.ErrorIs(t, err, cwerr.ErrUnsupportedLedger)
}

func TestRegistryRouting(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	reg, err := NewRegistry(cfg)
	require.NoError(t, err)

	tests := []struct {
		name    string
		chainID string
		method  string
		module  string
		err     error
	}{
		{"c-chain send", "eip155:43114", "eth_sendTransaction", ModuleEVM, nil},
		{"other evm chain by namespace", "eip155:1", "eth_chainId", ModuleEVM, nil},
		{"switch chain", "eip155:43114", "wallet_switchEthereumChain", ModuleEVM, nil},
		{"x-chain send", cfg.Networks.X.CAIP2, "avalanche_sendTransaction", ModuleAvalanche, nil},
		{"p-chain accounts", cfg.Networks.P.CAIP2, "avalanche_getAccounts", ModuleAvalanche, nil},
		{"method outside manifest", "eip155:43114", "avalanche_sendTransaction", "", cwerr.ErrUnsupportedMethod},
		{"unknown namespace", "bip122:000000000019d6689c085ae165831e93", "eth_chainId", "", cwerr.ErrUnsupportedChainID},
		{"bad namespace", "EIP155:1", "eth_chainId", "", cwerr.ErrUnsupportedNamespace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mod, err := reg.LoadModule(tt.chainID, tt.method)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.module, mod.Name())
			_, ok := mod.Handler(tt.method)
			assert.True(t, ok)
		})
	}
}
