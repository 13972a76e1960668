package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/chain/evm"
	"github.com/mrz1836/corewallet/internal/config"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// EVMBackend is the C-chain node surface; *evm.Client satisfies it.
type EVMBackend interface {
	EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error)
	SuggestMaxFeePerGas(ctx context.Context) (*big.Int, error)
	SuggestTipCap(ctx context.Context) (*big.Int, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (string, error)
}

// UTXOBackend is the X or P node surface; *avax.Client satisfies it.
type UTXOBackend interface {
	GetUTXOs(ctx context.Context, addresses []string) ([]avax.UTXO, error)
	IssueTx(ctx context.Context, signed []byte) (string, error)
}

// Backends are the node clients of the three chains.
type Backends struct {
	EVM EVMBackend
	X   UTXOBackend
	P   UTXOBackend

	closers []func()
}

// Close releases dialed connections.
func (b *Backends) Close() {
	for _, c := range b.closers {
		c()
	}
	b.closers = nil
}

// Dial connects to the nodes named in cfg.
func Dial(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}
	c, err := evm.Dial(ctx, cfg.Networks.C.RPC, cfg.Networks.C.ChainID)
	if err != nil {
		return nil, err
	}
	b.EVM = c
	b.closers = append(b.closers, c.Close)

	x, err := avax.Dial(ctx, cfg.Networks.X.RPC, avax.AliasX)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.X = x
	b.closers = append(b.closers, x.Close)

	p, err := avax.Dial(ctx, cfg.Networks.P.RPC, avax.AliasP)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.P = p
	b.closers = append(b.closers, p.Close)
	return b, nil
}

// RPCRecorder counts node calls; *metrics.Metrics satisfies it.
type RPCRecorder interface {
	RecordRPCCall(ledger string, err error)
}

// Instrument wraps every backend so each call is counted. The result
// owns the connections of b.
func (b *Backends) Instrument(rec RPCRecorder) *Backends {
	out := &Backends{closers: b.closers}
	if b.EVM != nil {
		out.EVM = &countedEVM{next: b.EVM, rec: rec}
	}
	if b.X != nil {
		out.X = &countedUTXO{next: b.X, rec: rec, ledger: chain.LedgerAVM.String()}
	}
	if b.P != nil {
		out.P = &countedUTXO{next: b.P, rec: rec, ledger: chain.LedgerPVM.String()}
	}
	return out
}

// For returns the UTXO backend of a ledger.
func (b *Backends) For(l chain.LedgerType) (UTXOBackend, error) {
	var be UTXOBackend
	switch l {
	case chain.LedgerAVM:
		be = b.X
	case chain.LedgerPVM:
		be = b.P
	case chain.LedgerEVM, chain.LedgerUnknown:
	}
	if be == nil {
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"ledger": l.String()})
	}
	return be, nil
}

type countedEVM struct {
	next EVMBackend
	rec  RPCRecorder
}

func (c *countedEVM) record(err error) {
	c.rec.RecordRPCCall(chain.LedgerEVM.String(), err)
}

func (c *countedEVM) EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error) {
	gas, err := c.next.EstimateGas(ctx, from, to, value, data)
	c.record(err)
	return gas, err
}

func (c *countedEVM) SuggestMaxFeePerGas(ctx context.Context) (*big.Int, error) {
	fee, err := c.next.SuggestMaxFeePerGas(ctx)
	c.record(err)
	return fee, err
}

func (c *countedEVM) SuggestTipCap(ctx context.Context) (*big.Int, error) {
	tip, err := c.next.SuggestTipCap(ctx)
	c.record(err)
	return tip, err
}

func (c *countedEVM) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := c.next.NativeBalance(ctx, address)
	c.record(err)
	return bal, err
}

func (c *countedEVM) PendingNonce(ctx context.Context, address string) (uint64, error) {
	nonce, err := c.next.PendingNonce(ctx, address)
	c.record(err)
	return nonce, err
}

func (c *countedEVM) SendTransaction(ctx context.Context, tx *types.Transaction) (string, error) {
	hash, err := c.next.SendTransaction(ctx, tx)
	c.record(err)
	return hash, err
}

type countedUTXO struct {
	next   UTXOBackend
	rec    RPCRecorder
	ledger string
}

func (c *countedUTXO) GetUTXOs(ctx context.Context, addresses []string) ([]avax.UTXO, error) {
	utxos, err := c.next.GetUTXOs(ctx, addresses)
	c.rec.RecordRPCCall(c.ledger, err)
	return utxos, err
}

func (c *countedUTXO) IssueTx(ctx context.Context, signed []byte) (string, error) {
	id, err := c.next.IssueTx(ctx, signed)
	c.rec.RecordRPCCall(c.ledger, err)
	return id, err
}
