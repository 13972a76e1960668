package send

import (
	"context"
	"math/big"
	"sync"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
)

const (
	evmFrom      = "0x0000000000000000000000000000000000000001"
	evmTo        = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	evmBadSum    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD"
	usdcContract = "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"

	// bech32 (fuji) of 20 repeated bytes 0x01..0x04
	xp01 = "fuji1qyqszqgpqyqszqgpqyqszqgpqyqszqgptrggc7"
	xp02 = "fuji1qgpqyqszqgpqyqszqgpqyqszqgpqyqsz68wdng"
	xp03 = "fuji1qvpsxqcrqvpsxqcrqvpsxqcrqvpsxqcrmh0vef"
	xp04 = "fuji1qszqgpqyqszqgpqyqszqgpqyqszqgpqym8gf74"

	xpMainnet01 = "avax1qyqszqgpqyqszqgpqyqszqgpqyqszqgp83vh5p"
)

func fujiC() *chain.Network {
	return &chain.Network{
		Name:      "Avalanche Fuji C-Chain",
		ChainID:   43113,
		CAIP2:     "eip155:43113",
		Ledger:    chain.LedgerEVM,
		Token:     chain.NativeToken{Symbol: "AVAX", Name: "Avalanche", Decimals: 18},
		IsTestnet: true,
	}
}

func fujiX() *chain.Network {
	return &chain.Network{
		Name:      "Avalanche Fuji X-Chain",
		CAIP2:     "avax:fuji-x",
		Ledger:    chain.LedgerAVM,
		Token:     chain.NativeToken{Symbol: "AVAX", Name: "Avalanche", Decimals: 9},
		HRP:       avax.HRPFuji,
		IsTestnet: true,
	}
}

func fujiP() *chain.Network {
	n := fujiX()
	n.Name = "Avalanche Fuji P-Chain"
	n.CAIP2 = "avax:fuji-p"
	n.Ledger = chain.LedgerPVM
	return n
}

func testAccount() *Account {
	return &Account{
		Name:       "main",
		AddressC:   evmFrom,
		AddressAVM: "X-" + xp01,
		AddressPVM: "P-" + xp01,
		XPAddresses: []XPAddress{
			{Address: xp01, Index: 0},
			{Address: xp02, Index: 1},
			{Address: xp03, Index: 0, Internal: true},
		},
	}
}

func units(v int64, decimals uint8) *chain.TokenUnit {
	return chain.NewTokenUnit(big.NewInt(v), decimals, "AVAX")
}

func nativeToken(balance int64, decimals uint8) *Token {
	return &Token{Type: TokenNative, Symbol: "AVAX", Decimals: decimals, Balance: units(balance, decimals)}
}

// evmState is the C-chain scenario: fee = 1 * 100 = 100.
func evmState(balance, amount int64) *SendState {
	return &SendState{
		Amount:              units(amount, 18),
		Address:             evmTo,
		Token:               nativeToken(balance, 18),
		DefaultMaxFeePerGas: big.NewInt(1),
		GasLimit:            100,
	}
}

type mockGasEstimator struct {
	estimateFn func(from, to string, value *big.Int, data []byte) (uint64, error)
	calls      int
}

func (m *mockGasEstimator) EstimateGas(_ context.Context, from, to string, value *big.Int, data []byte) (uint64, error) {
	m.calls++
	return m.estimateFn(from, to, value, data)
}

type mockFeeSuggester struct {
	fee *big.Int
	err error
}

func (m *mockFeeSuggester) SuggestMaxFeePerGas(context.Context) (*big.Int, error) {
	return m.fee, m.err
}

type mockUTXOSource struct {
	getFn func(addresses []string) ([]avax.UTXO, error)

	mu      sync.Mutex
	queried []string
}

func (m *mockUTXOSource) GetUTXOs(_ context.Context, addresses []string) ([]avax.UTXO, error) {
	m.mu.Lock()
	m.queried = addresses
	m.mu.Unlock()
	return m.getFn(addresses)
}

type recordingObserver struct {
	seen []string
}

func (r *recordingObserver) ObserveValidation(ledger, reason string) {
	r.seen = append(r.seen, ledger+":"+reason)
}
