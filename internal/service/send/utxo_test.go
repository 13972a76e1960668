package send

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

var errNodeDown = errors.New("node down")

func xState(balance, amount int64, address string) *SendState {
	return &SendState{
		Amount:  units(amount, 9),
		Address: address,
		Token:   nativeToken(balance, 9),
	}
}

func validateUTXO(t *testing.T, svc Service, network *chain.Network, st *SendState) *SendState {
	t.Helper()
	out, err := svc.ValidateStateAndCalculateFees(context.Background(), ValidateParams{
		State:              st,
		Network:            network,
		Account:            testAccount(),
		NativeTokenBalance: st.Token.Balance,
	})
	require.NoError(t, err)
	return out
}

func TestUTXOServices_NoAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		svc     Service
		network *chain.Network
		want    Reason
	}{
		{"x ledger requires address", NewAVMService(nil), fujiX(), ReasonAddressRequired},
		{"p ledger reports invalid address", NewPVMService(nil), fujiP(), ReasonInvalidAddress},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := validateUTXO(t, tc.svc, tc.network, xState(5_000_000, 1_000_000, ""))
			assert.Equal(t, tc.want, out.Error)
			assert.False(t, out.CanSubmit)

			// fee is still populated for display
			assert.Equal(t, avax.XPGasLimit, out.GasLimit)
			assert.Equal(t, "1000000", out.SendFee.Value().String())
			assert.Equal(t, "4000000", out.MaxAmount.Value().String())
			assert.Equal(t, "0.001 AVAX", out.SendFee.String())
		})
	}
}

func TestAVMService_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		state     *SendState
		want      Reason
		canSubmit bool
	}{
		{"valid with alias", xState(5_000_000, 3_000_000, "X-"+xp04), ReasonNone, true},
		{"valid bare bech32", xState(5_000_000, 4_000_000, xp04), ReasonNone, true},
		{"p alias on x ledger", xState(5_000_000, 1, "P-"+xp04), ReasonInvalidAddress, false},
		{"mainnet hrp on fuji", xState(5_000_000, 1, "X-"+xpMainnet01), ReasonInvalidAddress, false},
		{"evm address", xState(5_000_000, 1, evmTo), ReasonInvalidAddress, false},
		{"no amount", func() *SendState {
			s := xState(5_000_000, 0, "X-"+xp04)
			s.Amount = nil
			return s
		}(), ReasonAmountRequired, false},
		{"amount over max", xState(5_000_000, 4_000_001, "X-"+xp04), ReasonInsufficientBalance, false},
		{"zero fee", func() *SendState {
			s := xState(5_000_000, 1, "X-"+xp04)
			s.DefaultMaxFeePerGas = big.NewInt(0)
			return s
		}(), ReasonInvalidNetworkFee, false},
		{"no token", func() *SendState {
			s := xState(5_000_000, 1, "X-"+xp04)
			s.Token = nil
			return s
		}(), ReasonTokenRequired, false},
	}

	svc := NewAVMService(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := svc.ValidateStateAndCalculateFees(context.Background(), ValidateParams{
				State:   tc.state,
				Network: fujiX(),
				Account: testAccount(),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Error)
			assert.Equal(t, tc.canSubmit, out.CanSubmit)
		})
	}
}

func TestPVMService_CustomFeeRate(t *testing.T) {
	t.Parallel()

	svc := NewPVMService(&UTXOConfig{BaseFee: 2_000_000})
	out := validateUTXO(t, svc, fujiP(), xState(5_000_000, 3_000_000, "P-"+xp04))
	assert.True(t, out.CanSubmit)
	assert.Equal(t, "2000000", out.SendFee.Value().String())
	assert.Equal(t, "3000000", out.MaxAmount.Value().String())
	assert.Equal(t, chain.LedgerPVM, svc.Ledger())
}

func TestUTXOServices_Idempotent(t *testing.T) {
	t.Parallel()

	svc := NewAVMService(nil)
	in := xState(5_000_000, 4_500_000, "X-"+xp04)
	first := validateUTXO(t, svc, fujiX(), in)
	second := validateUTXO(t, svc, fujiX(), in)
	assert.Equal(t, first, second)
	assert.Equal(t, ReasonInsufficientBalance, first.Error)
}

func fujiUTXO(tx byte, amount uint64, owner byte) avax.UTXO {
	var id avax.ShortID
	for i := range id {
		id[i] = owner
	}
	return avax.UTXO{
		TxID:      avax.ID{tx},
		AssetID:   avax.FujiParams().AVAXAssetID,
		Amount:    amount,
		Threshold: 1,
		Addresses: []avax.ShortID{id},
	}
}

func TestAVMService_GetTransactionRequest(t *testing.T) {
	t.Parallel()

	source := &mockUTXOSource{getFn: func([]string) ([]avax.UTXO, error) {
		return []avax.UTXO{
			fujiUTXO(1, 2_000_000, 0x02),
			fujiUTXO(2, 3_000_000, 0x01),
			fujiUTXO(3, 9_000_000, 0x04), // not ours
		}, nil
	}}
	svc := NewAVMService(&UTXOConfig{UTXOs: source, Now: func() time.Time { return time.Unix(1_700_000_000, 0) }})

	st := validateUTXO(t, svc, fujiX(), xState(5_000_000, 3_500_000, "X-"+xp04))
	require.True(t, st.CanSubmit)

	req, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: st, Network: fujiX(), Account: testAccount()})
	require.NoError(t, err)

	utxoReq, ok := req.(*UTXOSendRequest)
	require.True(t, ok)
	assert.Equal(t, chain.LedgerAVM, utxoReq.Ledger())
	assert.Equal(t, avax.AliasX, utxoReq.ChainAlias)
	assert.Equal(t, []string{"X-" + xp01, "X-" + xp02, "X-" + xp03}, source.queried)

	require.Len(t, utxoReq.UTXOs, 2)
	assert.Equal(t, []string{xp02, xp01}, utxoReq.InputSigners)
	assert.Equal(t, map[string]uint32{xp01: 0, xp02: 1}, utxoReq.AddressMaps.External)
	assert.Empty(t, utxoReq.AddressMaps.Internal)
	assert.Equal(t, []uint32{0, 1}, utxoReq.ExternalIndices)
	assert.Empty(t, utxoReq.InternalIndices)

	tx, err := avax.Codec{}.DecodeUnsignedTx(avax.AliasX, utxoReq.TxBytes)
	require.NoError(t, err)
	assert.Equal(t, avax.NetworkIDFuji, tx.Base.NetworkID)
	assert.Len(t, tx.Base.Ins, 2)
	assert.Len(t, tx.Base.Outs, 2, "recipient and change outputs")
}

func TestPVMService_GetTransactionRequest_ChangeToInternal(t *testing.T) {
	t.Parallel()

	source := &mockUTXOSource{getFn: func([]string) ([]avax.UTXO, error) {
		return []avax.UTXO{fujiUTXO(1, 10_000_000, 0x03)}, nil
	}}
	svc := NewPVMService(&UTXOConfig{UTXOs: source})
	st := validateUTXO(t, svc, fujiP(), xState(10_000_000, 1_000_000, "P-"+xp04))
	require.True(t, st.CanSubmit)

	req, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: st, Network: fujiP(), Account: testAccount()})
	require.NoError(t, err)

	utxoReq := req.(*UTXOSendRequest) //nolint:forcetypeassert // ledger checked below
	assert.Equal(t, chain.LedgerPVM, utxoReq.Ledger())
	assert.Equal(t, map[string]uint32{xp03: 0}, utxoReq.AddressMaps.Internal)
	assert.Equal(t, []uint32{0}, utxoReq.InternalIndices)
	_, err = avax.Codec{}.DecodeUnsignedTx(avax.AliasP, utxoReq.TxBytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"P-" + xp01, "P-" + xp02, "P-" + xp03}, source.queried)
}

func TestUTXOServices_GetTransactionRequest_Errors(t *testing.T) {
	t.Parallel()

	okSource := &mockUTXOSource{getFn: func([]string) ([]avax.UTXO, error) {
		return []avax.UTXO{fujiUTXO(1, 10_000_000, 0x01)}, nil
	}}
	valid := func(t *testing.T, svc Service, n *chain.Network, alias string) *SendState {
		t.Helper()
		return validateUTXO(t, svc, n, xState(10_000_000, 1_000_000, alias+"-"+xp04))
	}

	t.Run("missing sender is fatal", func(t *testing.T) {
		t.Parallel()
		svc := NewPVMService(&UTXOConfig{UTXOs: okSource})
		acct := testAccount()
		acct.AddressPVM = ""
		_, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: valid(t, svc, fujiP(), "P"), Network: fujiP(), Account: acct})
		require.ErrorIs(t, err, cwerr.ErrMissingSender)
		assert.True(t, cwerr.IsFatal(err))
	})

	t.Run("source failure", func(t *testing.T) {
		t.Parallel()
		svc := NewAVMService(&UTXOConfig{UTXOs: &mockUTXOSource{getFn: func([]string) ([]avax.UTXO, error) {
			return nil, cwerr.Wrap(cwerr.ErrNetworkError, "%v", errNodeDown)
		}}})
		_, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: valid(t, svc, fujiX(), "X"), Network: fujiX(), Account: testAccount()})
		require.ErrorIs(t, err, cwerr.ErrNetworkError)
		assert.False(t, cwerr.IsFatal(err))
	})

	t.Run("not enough utxos", func(t *testing.T) {
		t.Parallel()
		svc := NewAVMService(&UTXOConfig{UTXOs: &mockUTXOSource{getFn: func([]string) ([]avax.UTXO, error) {
			return []avax.UTXO{fujiUTXO(1, 1_500_000, 0x01)}, nil
		}}})
		_, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: valid(t, svc, fujiX(), "X"), Network: fujiX(), Account: testAccount()})
		require.ErrorIs(t, err, cwerr.ErrInsufficientFunds)
	})

	t.Run("unknown hrp", func(t *testing.T) {
		t.Parallel()
		svc := NewAVMService(&UTXOConfig{UTXOs: okSource})
		local := fujiX()
		st := valid(t, svc, local, "X")
		local.HRP = avax.HRPLocal
		_, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: st, Network: local, Account: testAccount()})
		require.ErrorIs(t, err, cwerr.ErrInvalidInput)
	})

	t.Run("no source configured", func(t *testing.T) {
		t.Parallel()
		svc := NewAVMService(nil)
		_, err := svc.GetTransactionRequest(context.Background(), RequestParams{State: valid(t, svc, fujiX(), "X"), Network: fujiX(), Account: testAccount()})
		require.ErrorIs(t, err, cwerr.ErrInternal)
	})
}
