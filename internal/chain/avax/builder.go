package avax

import (
	"fmt"
	"sort"

	components "github.com/ava-labs/avalanchego/vms/components/avax"
	"github.com/ava-labs/avalanchego/vms/secp256k1fx"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Fee model of the X and P ledgers: a fixed gas limit of one unit
// multiplied by the per-unit base fee.
const (
	XPGasLimit uint64 = 1

	// DefaultBaseTxFee is 0.001 AVAX in nAVAX.
	DefaultBaseTxFee uint64 = 1_000_000

	// Decimals of AVAX on the X and P ledgers.
	Decimals uint8 = 9
)

// UnsignedTx is a base transfer on the X or P ledger.
type UnsignedTx struct {
	ChainAlias string
	Base       components.BaseTx

	// Consumed[i] is the UTXO spent by Base.Ins[i].
	Consumed []UTXO
	// Signers[i] is the owner address that signs Base.Ins[i].
	Signers []ShortID
}

// TransferParams describes a single-recipient transfer.
type TransferParams struct {
	ChainAlias    string
	NetworkID     uint32
	BlockchainID  ID
	AssetID       ID
	To            ShortID
	Amount        uint64
	Fee           uint64
	ChangeAddress ShortID
	Owned         []ShortID
	UTXOs         []UTXO
	Memo          []byte
	Now           uint64
}

// Builder assembles unsigned transfer transactions.
type Builder struct {
	maxMemo int
}

// MaxMemoSize is the largest memo the ledgers accept.
const MaxMemoSize = 256

// NewBuilder creates a builder.
func NewBuilder() *Builder {
	return &Builder{maxMemo: MaxMemoSize}
}

// BuildTransfer selects UTXOs largest-first until amount + fee is covered
// and returns a transaction paying the recipient plus change.
func (b *Builder) BuildTransfer(p TransferParams) (*UnsignedTx, error) {
	if p.Amount == 0 {
		return nil, cwerr.ErrInvalidAmount
	}
	if len(p.Memo) > b.maxMemo {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{
			"memo": fmt.Sprintf("%d bytes exceeds %d", len(p.Memo), b.maxMemo),
		})
	}
	need := p.Amount + p.Fee
	if need < p.Amount {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidAmount, map[string]string{"reason": "overflow"})
	}

	owned := make(map[ShortID]bool, len(p.Owned))
	for _, a := range p.Owned {
		owned[a] = true
	}

	var candidates []UTXO
	for _, u := range p.UTXOs {
		if u.AssetID != p.AssetID || !u.Spendable(p.Now) || u.Owner(owned) < 0 {
			continue
		}
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		return nil, cwerr.ErrNoUTXOs
	}

	var (
		selected []UTXO
		total    uint64
	)
	for _, u := range sortLargestFirst(candidates) {
		if total >= need {
			break
		}
		selected = append(selected, u)
		total += u.Amount
	}
	if total < need {
		return nil, cwerr.WithDetails(cwerr.ErrInsufficientFunds, map[string]string{
			"available": fmt.Sprintf("%d", total),
			"required":  fmt.Sprintf("%d", need),
		})
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].less(selected[j]) })

	m, err := managerFor(p.ChainAlias)
	if err != nil {
		return nil, err
	}

	tx := &UnsignedTx{
		ChainAlias: p.ChainAlias,
		Base: components.BaseTx{
			NetworkID:    p.NetworkID,
			BlockchainID: p.BlockchainID,
			Memo:         p.Memo,
		},
	}
	// selected is in (txid, index) order, which is the ledger's input order.
	for _, u := range selected {
		idx := u.Owner(owned)
		tx.Base.Ins = append(tx.Base.Ins, &components.TransferableInput{
			UTXOID: components.UTXOID{TxID: u.TxID, OutputIndex: u.OutputIndex},
			Asset:  components.Asset{ID: u.AssetID},
			In: &secp256k1fx.TransferInput{
				Amt: u.Amount,
				Input: secp256k1fx.Input{
					SigIndices: []uint32{uint32(idx)}, //nolint:gosec // idx >= 0 checked during filtering
				},
			},
		})
		tx.Consumed = append(tx.Consumed, u)
		tx.Signers = append(tx.Signers, u.Addresses[idx])
	}

	tx.Base.Outs = append(tx.Base.Outs, transferOutput(p.AssetID, p.Amount, p.To))
	if change := total - need; change > 0 {
		tx.Base.Outs = append(tx.Base.Outs, transferOutput(p.AssetID, change, p.ChangeAddress))
	}
	components.SortTransferableOutputs(tx.Base.Outs, m)

	return tx, nil
}

// Burned returns inputs minus outputs, which the ledger keeps as the fee.
func (tx *UnsignedTx) Burned() uint64 {
	var in, out uint64
	for _, i := range tx.Base.Ins {
		in += i.In.Amount()
	}
	for _, o := range tx.Base.Outs {
		out += o.Out.Amount()
	}
	return in - out
}

func transferOutput(asset ID, amount uint64, to ShortID) *components.TransferableOutput {
	return &components.TransferableOutput{
		Asset: components.Asset{ID: asset},
		Out: &secp256k1fx.TransferOutput{
			Amt: amount,
			OutputOwners: secp256k1fx.OutputOwners{
				Threshold: 1,
				Addrs:     []ShortID{to},
			},
		},
	}
}
