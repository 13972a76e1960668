package module_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/module"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

type stubHandler struct {
	methods []string
}

func (s stubHandler) Methods() []string { return s.methods }

func (s stubHandler) Handle(context.Context, *dapp.Request, *dapp.Context) (dapp.Response, error) {
	return dapp.Resolved(true)
}

func (s stubHandler) Approve(context.Context, dapp.ApproveRequest, *dapp.Context) (json.RawMessage, error) {
	return json.RawMessage(`true`), nil
}

func evmModule(t *testing.T) *module.Module {
	t.Helper()
	m, err := module.New(module.Manifest{
		Name:       "evm",
		Ledger:     "evm",
		Namespaces: []string{"eip155"},
		Methods:    []string{"eth_*", "personal_sign", "wallet_switchEthereumChain"},
	}, stubHandler{methods: []string{"eth_chainId", "eth_sendTransaction", "personal_sign"}})
	require.NoError(t, err)
	return m
}

func avaxModule(t *testing.T) *module.Module {
	t.Helper()
	m, err := module.New(module.Manifest{
		Name:     "avalanche-x",
		Ledger:   "avm",
		ChainIDs: []string{"avax:imji8papUf2EhV3le337w1vgFauqkJg-"},
		Methods:  []string{"avalanche_*"},
	}, stubHandler{methods: []string{"avalanche_sendTransaction"}})
	require.NoError(t, err)
	return m
}

func TestLoadModule(t *testing.T) {
	t.Parallel()
	reg, err := module.NewRegistry(evmModule(t), avaxModule(t))
	require.NoError(t, err)

	tests := []struct {
		name    string
		chainID string
		method  string
		want    string
		wantErr error
	}{
		{"wildcard method", "eip155:1", "eth_anyMethod", "evm", nil},
		{"exact method", "eip155:43114", "personal_sign", "evm", nil},
		{"explicit chain id", "avax:imji8papUf2EhV3le337w1vgFauqkJg-", "avalanche_sendTransaction", "avalanche-x", nil},
		{"unknown chain in known namespace style", "avax:unknown", "avalanche_sendTransaction", "", cwerr.ErrUnsupportedChainID},
		{"unknown namespace with valid shape", "cosmos:cosmoshub-4", "eth_chainId", "", cwerr.ErrUnsupportedChainID},
		{"method outside manifest", "eip155:1", "wallet_addEthereumChain", "", cwerr.ErrUnsupportedMethod},
		{"namespace too short", "ei:1", "eth_chainId", "", cwerr.ErrUnsupportedNamespace},
		{"namespace upper case", "EIP155:1", "eth_chainId", "", cwerr.ErrUnsupportedNamespace},
		{"namespace too long", "eip155abc:1", "eth_chainId", "", cwerr.ErrUnsupportedNamespace},
		{"empty chain id", "", "eth_chainId", "", cwerr.ErrUnsupportedNamespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := reg.LoadModule(tt.chainID, tt.method)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Name())
		})
	}
}

func TestLoadModule_FakeRegistry(t *testing.T) {
	t.Parallel()
	fake, err := module.New(module.Manifest{
		Name:     "fake",
		Ledger:   "evm",
		ChainIDs: []string{"eip155:1"},
		Methods:  []string{"eth_*"},
	})
	require.NoError(t, err)
	reg, err := module.NewRegistry(fake)
	require.NoError(t, err)

	_, err = reg.LoadModule("eip155:123", "eth_chainId")
	require.ErrorIs(t, err, cwerr.ErrUnsupportedChainID)

	m, err := reg.LoadModule("eip155:1", "eth_chainId")
	require.NoError(t, err)
	assert.Equal(t, chain.LedgerEVM, m.Ledger())
}

func TestLoadModule_Suggestion(t *testing.T) {
	t.Parallel()
	reg, err := module.NewRegistry(evmModule(t))
	require.NoError(t, err)

	_, err = reg.LoadModule("eip155:1", "personal_sing")
	require.ErrorIs(t, err, cwerr.ErrUnsupportedMethod)
	var we *cwerr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "personal_sign", we.Details["suggestion"])

	_, err = reg.LoadModule("eip155:1", "totally_unrelated")
	require.ErrorAs(t, err, &we)
	assert.NotContains(t, we.Details, "suggestion")
}

func TestNewRegistry_Conflicts(t *testing.T) {
	t.Parallel()
	_, err := module.NewRegistry(evmModule(t), evmModule(t))
	require.ErrorIs(t, err, cwerr.ErrConfigInvalid)
}

func TestNew_HandlerOutsideManifest(t *testing.T) {
	t.Parallel()
	_, err := module.New(module.Manifest{
		Name:    "evm",
		Methods: []string{"eth_*"},
	}, stubHandler{methods: []string{"personal_sign"}})
	require.ErrorIs(t, err, cwerr.ErrConfigInvalid)

	_, err = module.New(module.Manifest{
		Name:    "evm",
		Methods: []string{"eth_*"},
	}, stubHandler{methods: []string{"eth_chainId"}}, stubHandler{methods: []string{"eth_chainId"}})
	require.ErrorIs(t, err, cwerr.ErrConfigInvalid)
}

func TestModule_Handler(t *testing.T) {
	t.Parallel()
	m := evmModule(t)
	h, ok := m.Handler("eth_sendTransaction")
	require.True(t, ok)
	assert.Contains(t, h.Methods(), "eth_sendTransaction")

	_, ok = m.Handler("eth_getBalance")
	assert.False(t, ok, "permitted but unhandled")
	assert.True(t, m.Permits("eth_getBalance"))
}

func TestModuleFor(t *testing.T) {
	t.Parallel()
	reg, err := module.NewRegistry(evmModule(t), avaxModule(t))
	require.NoError(t, err)

	m, ok := reg.ModuleFor("eip155:5")
	require.True(t, ok)
	assert.Equal(t, "evm", m.Name())

	_, ok = reg.ModuleFor("bip122:000000000019d6689c085ae165831e93")
	assert.False(t, ok)
	assert.Len(t, reg.Modules(), 2)
}
