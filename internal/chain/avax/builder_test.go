package avax

import (
	"testing"

	components "github.com/ava-labs/avalanchego/vms/components/avax"
	"github.com/ava-labs/avalanchego/vms/secp256k1fx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

var (
	testAsset  = ID{0xaa}
	otherAsset = ID{0xbb}
	ownerA     = ShortID{0x01}
	ownerB     = ShortID{0x02}
	stranger   = ShortID{0x09}
	recipient  = ShortID{0x0f}
	changeAddr = ShortID{0x0c}
)

func testUTXO(tx byte, idx uint32, amount uint64, owner ShortID) UTXO {
	return UTXO{
		TxID:        ID{tx},
		OutputIndex: idx,
		AssetID:     testAsset,
		Amount:      amount,
		Threshold:   1,
		Addresses:   []ShortID{owner},
	}
}

func transferOut(t *testing.T, o *components.TransferableOutput) *secp256k1fx.TransferOutput {
	t.Helper()
	out, ok := o.Out.(*secp256k1fx.TransferOutput)
	require.True(t, ok)
	return out
}

func baseParams(utxos ...UTXO) TransferParams {
	return TransferParams{
		ChainAlias:    AliasX,
		NetworkID:     NetworkIDFuji,
		BlockchainID:  ID{0x77},
		AssetID:       testAsset,
		To:            recipient,
		Amount:        500,
		Fee:           100,
		ChangeAddress: changeAddr,
		Owned:         []ShortID{ownerA, ownerB},
		UTXOs:         utxos,
	}
}

func TestBuildTransfer_LargestFirstWithChange(t *testing.T) {
	t.Parallel()

	p := baseParams(
		testUTXO(3, 0, 200, ownerA),
		testUTXO(1, 0, 450, ownerB),
		testUTXO(2, 1, 300, ownerA),
	)

	tx, err := NewBuilder().BuildTransfer(p)
	require.NoError(t, err)

	// 450 + 300 covers 600; the 200 output is left alone.
	require.Len(t, tx.Base.Ins, 2)
	assert.Equal(t, ID{1}, tx.Base.Ins[0].TxID)
	assert.Equal(t, ID{2}, tx.Base.Ins[1].TxID)
	assert.Equal(t, []ShortID{ownerB, ownerA}, tx.Signers)
	assert.Equal(t, tx.Base.Ins[0].TxID, tx.Consumed[0].TxID)
	assert.Equal(t, NetworkIDFuji, tx.Base.NetworkID)
	assert.Equal(t, ID{0x77}, tx.Base.BlockchainID)

	require.Len(t, tx.Base.Outs, 2)
	var paid, change uint64
	for _, o := range tx.Base.Outs {
		out := transferOut(t, o)
		switch out.Addrs[0] {
		case recipient:
			paid = out.Amt
		case changeAddr:
			change = out.Amt
		}
	}
	assert.Equal(t, uint64(500), paid)
	assert.Equal(t, uint64(150), change)
	assert.Equal(t, uint64(100), tx.Burned())
}

func TestBuildTransfer_ExactNoChange(t *testing.T) {
	t.Parallel()

	tx, err := NewBuilder().BuildTransfer(baseParams(testUTXO(1, 0, 600, ownerA)))
	require.NoError(t, err)
	require.Len(t, tx.Base.Outs, 1)
	assert.Equal(t, []ShortID{recipient}, transferOut(t, tx.Base.Outs[0]).Addrs)
	assert.Equal(t, uint64(100), tx.Burned())
}

func TestBuildTransfer_SigIndexPointsAtOwner(t *testing.T) {
	t.Parallel()

	u := testUTXO(1, 0, 1000, ownerA)
	u.Addresses = []ShortID{stranger, ownerA}

	tx, err := NewBuilder().BuildTransfer(baseParams(u))
	require.NoError(t, err)
	in, ok := tx.Base.Ins[0].In.(*secp256k1fx.TransferInput)
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, in.SigIndices)
	assert.Equal(t, ownerA, tx.Signers[0])
}

func TestBuildTransfer_Errors(t *testing.T) {
	t.Parallel()

	locked := testUTXO(4, 0, 5000, ownerA)
	locked.Locktime = 100

	multisig := testUTXO(5, 0, 5000, ownerA)
	multisig.Threshold = 2

	foreign := testUTXO(6, 0, 5000, ownerA)
	foreign.AssetID = otherAsset

	tests := []struct {
		name   string
		params TransferParams
		want   error
	}{
		{"zero amount", func() TransferParams {
			p := baseParams(testUTXO(1, 0, 1000, ownerA))
			p.Amount = 0
			return p
		}(), cwerr.ErrInvalidAmount},
		{"no utxos", baseParams(), cwerr.ErrNoUTXOs},
		{"only stranger utxos", baseParams(testUTXO(1, 0, 1000, stranger)), cwerr.ErrNoUTXOs},
		{"locked", baseParams(locked), cwerr.ErrNoUTXOs},
		{"multisig", baseParams(multisig), cwerr.ErrNoUTXOs},
		{"other asset", baseParams(foreign), cwerr.ErrNoUTXOs},
		{"insufficient", baseParams(testUTXO(1, 0, 550, ownerA)), cwerr.ErrInsufficientFunds},
		{"unsupported alias", func() TransferParams {
			p := baseParams(testUTXO(1, 0, 1000, ownerA))
			p.ChainAlias = "C"
			return p
		}(), cwerr.ErrUnsupportedLedger},
		{"memo too large", func() TransferParams {
			p := baseParams(testUTXO(1, 0, 1000, ownerA))
			p.Memo = make([]byte, MaxMemoSize+1)
			return p
		}(), cwerr.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewBuilder().BuildTransfer(tc.params)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuildTransfer_Deterministic(t *testing.T) {
	t.Parallel()

	p := baseParams(
		testUTXO(3, 0, 300, ownerA),
		testUTXO(1, 0, 300, ownerB),
		testUTXO(2, 0, 300, ownerA),
	)

	var codec Codec
	tx1, err := NewBuilder().BuildTransfer(p)
	require.NoError(t, err)
	tx2, err := NewBuilder().BuildTransfer(p)
	require.NoError(t, err)

	b1, err := codec.MarshalUnsignedTx(tx1)
	require.NoError(t, err)
	b2, err := codec.MarshalUnsignedTx(tx2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestBuildTransfer_OutputsSorted(t *testing.T) {
	t.Parallel()

	tx, err := NewBuilder().BuildTransfer(baseParams(testUTXO(1, 0, 5000, ownerA)))
	require.NoError(t, err)

	m, err := managerFor(AliasX)
	require.NoError(t, err)
	assert.True(t, components.IsSortedTransferableOutputs(tx.Base.Outs, m))
}
