package app

import (
	"context"
	"time"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/service/send"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Balances reads native balances from the node backends. X and P
// balances count only AVAX outputs a single key can spend now.
type Balances struct {
	backends *Backends
	now      func() time.Time
}

// NewBalances creates a balance source over backends.
func NewBalances(b *Backends, now func() time.Time) *Balances {
	if now == nil {
		now = time.Now
	}
	return &Balances{backends: b, now: now}
}

// NativeBalance returns the account's gas token balance on network.
func (b *Balances) NativeBalance(ctx context.Context, n *chain.Network, acct *send.Account) (*chain.TokenUnit, error) {
	switch n.Ledger {
	case chain.LedgerEVM:
		if b.backends.EVM == nil {
			return nil, cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"ledger": n.Ledger.String()})
		}
		v, err := b.backends.EVM.NativeBalance(ctx, acct.AddressC)
		if err != nil {
			return nil, err
		}
		return chain.NewTokenUnit(v, n.Token.Decimals, n.Token.Symbol), nil
	case chain.LedgerAVM, chain.LedgerPVM:
		return b.utxoBalance(ctx, n, acct)
	case chain.LedgerUnknown:
	}
	return nil, cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"ledger": n.Ledger.String()})
}

func (b *Balances) utxoBalance(ctx context.Context, n *chain.Network, acct *send.Account) (*chain.TokenUnit, error) {
	be, err := b.backends.For(n.Ledger)
	if err != nil {
		return nil, err
	}
	params, ok := avax.ParamsForHRP(n.HRP)
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"hrp": n.HRP})
	}

	alias := n.ChainAlias()
	addrs := make([]string, 0, len(acct.XPAddresses))
	for _, a := range acct.XPAddresses {
		addrs = append(addrs, alias+"-"+a.Address)
	}
	utxos, err := be.GetUTXOs(ctx, addrs)
	if err != nil {
		return nil, err
	}

	now := uint64(b.now().Unix()) //nolint:gosec // unix time is positive
	spendable := utxos[:0:0]
	for _, u := range utxos {
		if u.Spendable(now) {
			spendable = append(spendable, u)
		}
	}
	total := avax.SumUTXOs(spendable, params.AVAXAssetID)
	return chain.NewTokenUnitFromUint64(total, n.Token.Decimals, n.Token.Symbol), nil
}
