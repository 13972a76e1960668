// Package signer is the local software key capability: an age-encrypted
// mnemonic keystore, BIP44 derivation for the C, X and P chains, and
// signing of EVM transactions, messages and X/P transactions.
package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ava-labs/avalanchego/utils/crypto/secp256k1"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/chain/evm"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/service/send"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// DefaultXPGap is how many receive and change X/P addresses are derived.
const DefaultXPGap = 5

// Options selects what NewLocal derives.
type Options struct {
	Name  string
	Index uint32 // EVM address index of the account
	Gap   uint32 // X/P addresses per derivation branch
	HRP   string
}

// Local holds derived keys in memory. It is safe for concurrent use.
type Local struct {
	mu      sync.RWMutex
	account send.Account
	evmKey  *ecdsa.PrivateKey
	xpKeys  map[avax.ShortID]*ecdsa.PrivateKey
	codec   avax.Codec
	closed  bool
}

// NewLocal derives the account from seed. The caller keeps ownership of
// seed and must wipe it.
func NewLocal(seed []byte, opts Options) (*Local, error) {
	if opts.Gap == 0 {
		opts.Gap = DefaultXPGap
	}
	if opts.HRP == "" {
		opts.HRP = avax.HRPMainnet
	}
	if opts.Name == "" {
		opts.Name = "Account " + itoa(int(opts.Index)+1)
	}

	evmKey, err := DeriveKey(seed, EVMPath(opts.Index))
	if err != nil {
		return nil, err
	}

	l := &Local{
		evmKey: evmKey,
		xpKeys: make(map[avax.ShortID]*ecdsa.PrivateKey, 2*opts.Gap),
		account: send.Account{
			Name:     opts.Name,
			Index:    opts.Index,
			AddressC: crypto.PubkeyToAddress(evmKey.PublicKey).Hex(),
		},
	}

	for _, change := range []uint32{0, 1} {
		for i := uint32(0); i < opts.Gap; i++ {
			key, err := DeriveKey(seed, XPPath(change, i))
			if err != nil {
				return nil, err
			}
			id := avax.ShortIDFromPublicKey(crypto.CompressPubkey(&key.PublicKey))
			addr, err := avax.FormatAddress("", opts.HRP, id)
			if err != nil {
				return nil, err
			}
			l.xpKeys[id] = key
			l.account.XPAddresses = append(l.account.XPAddresses, send.XPAddress{
				Address:  addr,
				Index:    i,
				Internal: change == 1,
			})
			if change == 0 && i == 0 {
				l.account.AddressAVM = avax.AliasX + "-" + addr
				l.account.AddressPVM = avax.AliasP + "-" + addr
			}
		}
	}
	return l, nil
}

// FromMnemonic derives a Local from a phrase and wipes the seed.
func FromMnemonic(mnemonic, passphrase string, opts Options) (*Local, error) {
	seed, err := MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(seed)
	return NewLocal(seed, opts)
}

// Account returns a copy of the derived account.
func (l *Local) Account() *send.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct := l.account
	acct.XPAddresses = append([]send.XPAddress(nil), l.account.XPAddresses...)
	return &acct
}

// Active returns the derived account; Local is its own account store.
func (l *Local) Active(_ context.Context) (*send.Account, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	return l.Account(), nil
}

// SignEVMTransaction signs an EIP-1559 transaction for req.
func (l *Local) SignEVMTransaction(_ context.Context, req *send.EVMSendRequest, nonce uint64, tip *big.Int) (*types.Transaction, error) {
	if req == nil || req.MaxFeePerGas == nil || req.ChainID <= 0 {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "incomplete transaction request"})
	}
	key, err := l.keyForEVM(req.From)
	if err != nil {
		return nil, err
	}
	if tip == nil || tip.Cmp(req.MaxFeePerGas) > 0 {
		tip = req.MaxFeePerGas
	}
	to := common.HexToAddress(req.To)
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	chainID := big.NewInt(req.ChainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: new(big.Int).Set(tip),
		GasFeeCap: new(big.Int).Set(req.MaxFeePerGas),
		Gas:       req.GasLimit,
		To:        &to,
		Value:     new(big.Int).Set(value),
		Data:      append([]byte(nil), req.Data...),
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, cwerr.Wrap(err, "signing transaction")
	}
	return signed, nil
}

// SignMessage signs data under the scheme of kind and returns a 65-byte
// [R || S || V] signature with V in {27, 28}.
func (l *Local) SignMessage(_ context.Context, kind dapp.MessageKind, address string, data []byte) ([]byte, error) {
	key, err := l.keyForEVM(address)
	if err != nil {
		return nil, err
	}
	hash, err := MessageHash(kind, data)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, cwerr.Wrap(err, "signing message")
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// MessageHash is the digest signed for a message of the given kind.
// eth_sign signs a 32-byte payload as is and prefixes anything else.
func MessageHash(kind dapp.MessageKind, data []byte) ([]byte, error) {
	switch kind {
	case dapp.MessagePersonal:
		return accounts.TextHash(data), nil
	case dapp.MessageEthSign:
		if len(data) == common.HashLength {
			return append([]byte(nil), data...), nil
		}
		return accounts.TextHash(data), nil
	case dapp.MessageTypedDataV1:
		return evm.LegacyTypedDataHash(data)
	case dapp.MessageTypedDataV3, dapp.MessageTypedDataV4:
		return evm.TypedDataHash(data)
	default:
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedMethod, map[string]string{"kind": string(kind)})
	}
}

// SignUTXOTransaction adds one credential per input, signed by the key of
// the input's owner.
func (l *Local) SignUTXOTransaction(_ context.Context, req *send.UTXOSendRequest) ([]byte, error) {
	if req == nil || len(req.TxBytes) == 0 {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "empty transaction"})
	}
	if err := l.check(); err != nil {
		return nil, err
	}

	keys := make([]*secp256k1.PrivateKey, 0, len(req.InputSigners))
	for _, signer := range req.InputSigners {
		_, _, id, err := avax.ParseAddress(signer)
		if err != nil {
			return nil, err
		}
		l.mu.RLock()
		key, ok := l.xpKeys[id]
		l.mu.RUnlock()
		if !ok {
			return nil, cwerr.WithDetails(cwerr.ErrNotFound, map[string]string{"signer": signer})
		}
		sk, err := secp256k1.ToPrivateKey(crypto.FromECDSA(key))
		if err != nil {
			return nil, cwerr.Wrap(err, "converting key for %s", signer)
		}
		keys = append(keys, sk)
	}
	return l.codec.SignTx(req.ChainAlias, req.TxBytes, keys)
}

// Close drops the keys. Later calls fail.
func (l *Local) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.evmKey != nil {
		l.evmKey.D.SetInt64(0)
		l.evmKey = nil
	}
	for id, k := range l.xpKeys {
		k.D.SetInt64(0)
		delete(l.xpKeys, id)
	}
}

func (l *Local) check() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return cwerr.WithDetails(cwerr.ErrPermission, map[string]string{"reason": "signer is closed"})
	}
	return nil
}

func (l *Local) keyForEVM(address string) (*ecdsa.PrivateKey, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !evm.SameAddress(address, l.account.AddressC) {
		return nil, cwerr.WithDetails(cwerr.ErrNotFound, map[string]string{"signer": address})
	}
	return l.evmKey, nil
}
