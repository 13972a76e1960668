package avax

import (
	"fmt"

	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/utils/crypto/secp256k1"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/vms/avm/fxs"
	avmtxs "github.com/ava-labs/avalanchego/vms/avm/txs"
	components "github.com/ava-labs/avalanchego/vms/components/avax"
	"github.com/ava-labs/avalanchego/vms/nftfx"
	pvmtxs "github.com/ava-labs/avalanchego/vms/platformvm/txs"
	"github.com/ava-labs/avalanchego/vms/propertyfx"
	"github.com/ava-labs/avalanchego/vms/secp256k1fx"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// CodecVersion prefixes every encoded transaction and UTXO.
const CodecVersion uint16 = 0

// SignatureLen is the length of a recoverable secp256k1 signature.
const SignatureLen = secp256k1.SignatureLen

// ErrMalformedBytes is returned when decoding truncated or inconsistent data.
var ErrMalformedBytes = &cwerr.WalletError{
	Code:     "MALFORMED_BYTES",
	Message:  "malformed codec bytes",
	ExitCode: cwerr.ExitInput,
}

// xParser carries the X-chain codec. The fxs are registered in the order
// the ledger assigns their type ids.
var xParser avmtxs.Parser

func init() {
	p, err := avmtxs.NewParser([]fxs.Fx{
		&secp256k1fx.Fx{},
		&nftfx.Fx{},
		&propertyfx.Fx{},
	})
	if err != nil {
		panic(err)
	}
	xParser = p
}

// Codec serializes X and P transactions and UTXOs with the ledgers' own
// codecs. The zero value is ready to use.
type Codec struct{}

// SignedTx is a decoded signed base transfer.
type SignedTx struct {
	ID       ID
	Unsigned []byte
	// Sigs[i] are the signatures of input i.
	Sigs [][][SignatureLen]byte
}

func managerFor(alias string) (codec.Manager, error) {
	switch alias {
	case AliasX:
		return xParser.Codec(), nil
	case AliasP:
		return pvmtxs.Codec, nil
	default:
		return nil, unsupportedAlias(alias)
	}
}

// MarshalUnsignedTx encodes a base transfer as the alias's BaseTx.
func (Codec) MarshalUnsignedTx(tx *UnsignedTx) ([]byte, error) {
	if tx == nil {
		return nil, cwerr.WithDetails(ErrMalformedBytes, map[string]string{"reason": "nil transaction"})
	}
	var (
		raw []byte
		err error
	)
	switch tx.ChainAlias {
	case AliasX:
		var utx avmtxs.UnsignedTx = &avmtxs.BaseTx{BaseTx: tx.Base}
		raw, err = xParser.Codec().Marshal(CodecVersion, &utx)
	case AliasP:
		var utx pvmtxs.UnsignedTx = &pvmtxs.BaseTx{BaseTx: tx.Base}
		raw, err = pvmtxs.Codec.Marshal(CodecVersion, &utx)
	default:
		return nil, unsupportedAlias(tx.ChainAlias)
	}
	if err != nil {
		return nil, malformed(err)
	}
	return raw, nil
}

// DecodeUnsignedTx reverses MarshalUnsignedTx. Only base transfers are
// accepted.
func (Codec) DecodeUnsignedTx(alias string, raw []byte) (*UnsignedTx, error) {
	var (
		base *components.BaseTx
		err  error
	)
	switch alias {
	case AliasX:
		_, base, err = decodeX(raw)
	case AliasP:
		_, base, err = decodeP(raw)
	default:
		return nil, unsupportedAlias(alias)
	}
	if err != nil {
		return nil, err
	}
	return &UnsignedTx{ChainAlias: alias, Base: *base}, nil
}

// SignTx signs input i of an unsigned base transfer with keys[i] and
// returns the signed bytes.
func (Codec) SignTx(alias string, unsigned []byte, keys []*secp256k1.PrivateKey) ([]byte, error) {
	switch alias {
	case AliasX:
		utx, base, err := decodeX(unsigned)
		if err != nil {
			return nil, err
		}
		signers, err := signersFor(base, keys)
		if err != nil {
			return nil, err
		}
		tx := &avmtxs.Tx{Unsigned: utx}
		if err := tx.SignSECP256K1Fx(xParser.Codec(), signers); err != nil {
			return nil, cwerr.Wrap(err, "signing X transfer")
		}
		return tx.Bytes(), nil
	case AliasP:
		utx, base, err := decodeP(unsigned)
		if err != nil {
			return nil, err
		}
		signers, err := signersFor(base, keys)
		if err != nil {
			return nil, err
		}
		tx := &pvmtxs.Tx{Unsigned: utx}
		if err := tx.Sign(pvmtxs.Codec, signers); err != nil {
			return nil, cwerr.Wrap(err, "signing P transfer")
		}
		return tx.Bytes(), nil
	default:
		return nil, unsupportedAlias(alias)
	}
}

// DecodeSignedTx parses a signed base transfer and its credentials.
func (Codec) DecodeSignedTx(alias string, signed []byte) (*SignedTx, error) {
	out := &SignedTx{}
	switch alias {
	case AliasX:
		tx, err := xParser.ParseTx(signed)
		if err != nil {
			return nil, malformed(err)
		}
		out.ID, out.Unsigned = tx.ID(), tx.Unsigned.Bytes()
		for _, c := range tx.Creds {
			cred, ok := c.Credential.(*secp256k1fx.Credential)
			if !ok {
				return nil, cwerr.WithDetails(ErrMalformedBytes, map[string]string{"reason": "not a secp256k1 credential"})
			}
			out.Sigs = append(out.Sigs, cred.Sigs)
		}
	case AliasP:
		tx, err := pvmtxs.Parse(pvmtxs.Codec, signed)
		if err != nil {
			return nil, malformed(err)
		}
		out.ID, out.Unsigned = tx.ID(), tx.Unsigned.Bytes()
		for _, c := range tx.Creds {
			cred, ok := c.(*secp256k1fx.Credential)
			if !ok {
				return nil, cwerr.WithDetails(ErrMalformedBytes, map[string]string{"reason": "not a secp256k1 credential"})
			}
			out.Sigs = append(out.Sigs, cred.Sigs)
		}
	default:
		return nil, unsupportedAlias(alias)
	}
	return out, nil
}

// MarshalUTXO encodes a UTXO the way nodes return it from getUTXOs.
func (Codec) MarshalUTXO(alias string, u UTXO) ([]byte, error) {
	m, err := managerFor(alias)
	if err != nil {
		return nil, err
	}
	utxo := components.UTXO{
		UTXOID: components.UTXOID{TxID: u.TxID, OutputIndex: u.OutputIndex},
		Asset:  components.Asset{ID: u.AssetID},
		Out: &secp256k1fx.TransferOutput{
			Amt: u.Amount,
			OutputOwners: secp256k1fx.OutputOwners{
				Locktime:  u.Locktime,
				Threshold: u.Threshold,
				Addrs:     u.Addresses,
			},
		},
	}
	raw, err := m.Marshal(CodecVersion, &utxo)
	if err != nil {
		return nil, malformed(err)
	}
	return raw, nil
}

// UnmarshalUTXO decodes a UTXO returned by getUTXOs. ok is false for
// outputs other than secp256k1 transfers, which the wallet does not spend.
func (Codec) UnmarshalUTXO(alias string, b []byte) (UTXO, bool, error) {
	m, err := managerFor(alias)
	if err != nil {
		return UTXO{}, false, err
	}
	var utxo components.UTXO
	if _, err := m.Unmarshal(b, &utxo); err != nil {
		return UTXO{}, false, malformed(err)
	}
	out, ok := utxo.Out.(*secp256k1fx.TransferOutput)
	if !ok {
		return UTXO{}, false, nil
	}
	return UTXO{
		TxID:        utxo.TxID,
		OutputIndex: utxo.OutputIndex,
		AssetID:     utxo.AssetID(),
		Amount:      out.Amt,
		Locktime:    out.Locktime,
		Threshold:   out.Threshold,
		Addresses:   out.Addrs,
	}, true, nil
}

// TxHash returns the id of a signed transaction (sha256 of its bytes).
func TxHash(signed []byte) ID {
	return ID(hashing.ComputeHash256Array(signed))
}

// SigningHash is the digest each input signature commits to.
func SigningHash(unsigned []byte) [32]byte {
	return [32]byte(hashing.ComputeHash256Array(unsigned))
}

func decodeX(raw []byte) (avmtxs.UnsignedTx, *components.BaseTx, error) {
	if len(raw) == 0 {
		return nil, nil, emptyTx()
	}
	var utx avmtxs.UnsignedTx
	if _, err := xParser.Codec().Unmarshal(raw, &utx); err != nil {
		return nil, nil, malformed(err)
	}
	base, ok := utx.(*avmtxs.BaseTx)
	if !ok {
		return nil, nil, notATransfer()
	}
	return utx, &base.BaseTx, nil
}

func decodeP(raw []byte) (pvmtxs.UnsignedTx, *components.BaseTx, error) {
	if len(raw) == 0 {
		return nil, nil, emptyTx()
	}
	var utx pvmtxs.UnsignedTx
	if _, err := pvmtxs.Codec.Unmarshal(raw, &utx); err != nil {
		return nil, nil, malformed(err)
	}
	base, ok := utx.(*pvmtxs.BaseTx)
	if !ok {
		return nil, nil, notATransfer()
	}
	return utx, &base.BaseTx, nil
}

// signersFor pairs each input with its single owner key.
func signersFor(base *components.BaseTx, keys []*secp256k1.PrivateKey) ([][]*secp256k1.PrivateKey, error) {
	if len(keys) != len(base.Ins) {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{
			"reason": fmt.Sprintf("%d keys for %d inputs", len(keys), len(base.Ins)),
		})
	}
	signers := make([][]*secp256k1.PrivateKey, len(keys))
	for i, k := range keys {
		signers[i] = []*secp256k1.PrivateKey{k}
	}
	return signers, nil
}

func emptyTx() error {
	return cwerr.WithDetails(ErrMalformedBytes, map[string]string{"reason": "empty transaction"})
}

func malformed(err error) error {
	return cwerr.WithDetails(ErrMalformedBytes, map[string]string{"reason": err.Error()})
}

func notATransfer() error {
	return cwerr.WithDetails(ErrMalformedBytes, map[string]string{"reason": "not a base transfer"})
}

func unsupportedAlias(alias string) error {
	return cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"alias": alias})
}
