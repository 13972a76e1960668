package send

import (
	"math/big"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// errNetworkRequired is returned when validation is called without a network.
var errNetworkRequired = cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"network": "required"})

// resetDerived clones the caller's state and clears every derived field so
// nothing from a previous pass leaks into this one.
func resetDerived(in *SendState) *SendState {
	st := in.Clone()
	st.MaxAmount = nil
	st.SendFee = nil
	st.Error = ReasonNone
	st.CanSubmit = false
	return st
}

// tokenBalance returns the token balance, zero when unknown.
func tokenBalance(tok *Token) *chain.TokenUnit {
	if tok.Balance != nil {
		return tok.Balance
	}
	return chain.NewTokenUnit(nil, tok.Decimals, tok.Symbol)
}

// feeUnit converts rate * gasLimit into the network's native token.
func feeUnit(rate *big.Int, gasLimit uint64, n *chain.Network) *chain.TokenUnit {
	fee := new(big.Int).SetUint64(gasLimit)
	if rate != nil {
		fee.Mul(fee, rate)
	} else {
		fee.SetInt64(0)
	}
	return chain.NewTokenUnit(fee, n.Token.Decimals, n.Token.Symbol)
}

// maxAmount is the spendable balance: balance minus the fee when the token
// pays its own fee, otherwise the whole token balance.
func maxAmount(tok *Token, fee *chain.TokenUnit) *chain.TokenUnit {
	bal := tokenBalance(tok)
	if tok.IsNative() {
		return bal.SubFloor(fee)
	}
	return bal.SubFloor(nil)
}

// checkAmounts runs the checks shared by every ledger once the address is
// known to be valid: fee, amount, spendable balance and fee asset balance.
// Amount insufficiency is reported before fee insufficiency.
func checkAmounts(st *SendState, native *chain.TokenUnit) *SendState {
	if !st.SendFee.IsPositive() {
		return st.fail(ReasonInvalidNetworkFee)
	}

	tok := st.Token
	if tok.Type.NeedsAmount() {
		if !st.Amount.IsPositive() && !st.isContractCall() {
			return st.fail(ReasonAmountRequired)
		}
		if st.Amount.Gt(st.MaxAmount) {
			return st.fail(ReasonInsufficientBalance)
		}
	} else if !tokenBalance(tok).IsPositive() {
		return st.fail(ReasonInsufficientBalance)
	}

	if tok.IsNative() {
		if tokenBalance(tok).Lt(st.Amount.Add(st.SendFee)) {
			return st.fail(ReasonInsufficientBalanceForFee)
		}
	} else if native.Lt(st.SendFee) {
		return st.fail(ReasonInsufficientBalanceForFee)
	}

	st.Error = ReasonNone
	st.CanSubmit = true
	return st
}

// requireSubmittable guards GetTransactionRequest against unvalidated state.
func requireSubmittable(st *SendState, n *chain.Network) error {
	if st == nil || n == nil {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "state and network are required"})
	}
	if !st.CanSubmit {
		details := map[string]string{"reason": "state is not submittable"}
		if st.Error != ReasonNone {
			details["error"] = st.Error.String()
		}
		return cwerr.WithDetails(cwerr.ErrInvalidInput, details)
	}
	return nil
}

func missingSender(l chain.LedgerType) error {
	return cwerr.WithDetails(cwerr.ErrMissingSender, map[string]string{"ledger": l.String()})
}
