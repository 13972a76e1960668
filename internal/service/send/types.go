// Package send validates send attempts and builds ledger-specific
// transaction requests for the C, X and P ledgers.
package send

import (
	"math/big"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
)

// Reason is the validation failure reported in SendState.Error.
type Reason string

// Validation reasons. The empty Reason means no error.
const (
	ReasonNone                      Reason = ""
	ReasonTokenRequired             Reason = "TOKEN_REQUIRED"
	ReasonAddressRequired           Reason = "ADDRESS_REQUIRED"
	ReasonInvalidAddress            Reason = "INVALID_ADDRESS"
	ReasonInvalidNetworkFee         Reason = "INVALID_NETWORK_FEE"
	ReasonAmountRequired            Reason = "AMOUNT_REQUIRED"
	ReasonInsufficientBalance       Reason = "INSUFFICIENT_BALANCE"
	ReasonInsufficientBalanceForFee Reason = "INSUFFICIENT_BALANCE_FOR_FEE"
)

// String returns the reason code.
func (r Reason) String() string { return string(r) }

// TokenType is the kind of asset being sent.
type TokenType string

// Supported token types.
const (
	TokenNative  TokenType = "native"
	TokenERC20   TokenType = "erc20"
	TokenERC721  TokenType = "erc721"
	TokenERC1155 TokenType = "erc1155"
)

// NeedsAmount reports whether a send of this token carries an amount.
// ERC-721 transfers move exactly one token id.
func (t TokenType) NeedsAmount() bool {
	return t != TokenERC721
}

// Token is the balance-bearing asset being sent.
type Token struct {
	Type     TokenType        `json:"type"`
	Symbol   string           `json:"symbol"`
	Decimals uint8            `json:"decimals"`
	Address  string           `json:"address,omitempty"`
	TokenID  *big.Int         `json:"token_id,omitempty"`
	Balance  *chain.TokenUnit `json:"-"`
}

// IsNative reports whether the token is the network's gas asset.
func (t *Token) IsNative() bool {
	return t != nil && t.Type == TokenNative
}

// SendState is the validation record of one send attempt. MaxAmount,
// SendFee, Error and CanSubmit are derived on every validation pass.
type SendState struct {
	Amount              *chain.TokenUnit
	Address             string
	Token               *Token
	DefaultMaxFeePerGas *big.Int
	GasLimit            uint64

	// Data is call data for a native send to a contract. A native send
	// carrying data may have a zero amount.
	Data []byte

	MaxAmount *chain.TokenUnit
	SendFee   *chain.TokenUnit
	Error     Reason
	CanSubmit bool
}

// Clone returns a copy that shares no mutable state with s.
// TokenUnit is immutable so it is shared.
func (s *SendState) Clone() *SendState {
	if s == nil {
		return &SendState{}
	}
	out := *s
	if s.Data != nil {
		out.Data = append([]byte(nil), s.Data...)
	}
	if s.DefaultMaxFeePerGas != nil {
		out.DefaultMaxFeePerGas = new(big.Int).Set(s.DefaultMaxFeePerGas)
	}
	if s.Token != nil {
		tok := *s.Token
		if s.Token.TokenID != nil {
			tok.TokenID = new(big.Int).Set(s.Token.TokenID)
		}
		out.Token = &tok
	}
	return &out
}

// isContractCall reports a native send carrying call data.
func (s *SendState) isContractCall() bool {
	return s.Token != nil && s.Token.IsNative() && len(s.Data) > 0
}

// fail records a reason and clears CanSubmit.
func (s *SendState) fail(r Reason) *SendState {
	s.Error = r
	s.CanSubmit = false
	return s
}

// XPAddress is one derived X/P address of an account.
type XPAddress struct {
	Address  string `json:"address"` // bech32 without chain alias
	Index    uint32 `json:"index"`
	Internal bool   `json:"internal"`
}

// Account holds the addresses of the active wallet account.
type Account struct {
	Name        string      `json:"name"`
	Index       uint32      `json:"index"`
	AddressC    string      `json:"address_c"`
	AddressAVM  string      `json:"address_avm,omitempty"`
	AddressPVM  string      `json:"address_pvm,omitempty"`
	XPAddresses []XPAddress `json:"xp_addresses,omitempty"`
}

// SenderFor returns the account's sending address on a ledger.
func (a *Account) SenderFor(l chain.LedgerType) string {
	if a == nil {
		return ""
	}
	switch l {
	case chain.LedgerEVM:
		return a.AddressC
	case chain.LedgerAVM:
		return a.AddressAVM
	case chain.LedgerPVM:
		return a.AddressPVM
	case chain.LedgerUnknown:
		return ""
	default:
		return ""
	}
}

// ValidateParams are the inputs of ValidateStateAndCalculateFees.
// Currency is carried for display formatting only.
type ValidateParams struct {
	State              *SendState
	Network            *chain.Network
	Account            *Account
	Currency           string
	NativeTokenBalance *chain.TokenUnit
}

// RequestParams are the inputs of GetTransactionRequest.
type RequestParams struct {
	State   *SendState
	Network *chain.Network
	Account *Account
}

// LedgerSendRequest is the signable artifact built from a valid state.
// Implementations: *EVMSendRequest, *UTXOSendRequest.
type LedgerSendRequest interface {
	Ledger() chain.LedgerType
	isLedgerSendRequest()
}

// EVMSendRequest is an EIP-1559 call description.
type EVMSendRequest struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Value        *big.Int `json:"value"`
	Data         []byte   `json:"data,omitempty"`
	GasLimit     uint64   `json:"gas_limit"`
	MaxFeePerGas *big.Int `json:"max_fee_per_gas"`
	ChainID      int64    `json:"chain_id"`
}

// Ledger returns LedgerEVM.
func (*EVMSendRequest) Ledger() chain.LedgerType { return chain.LedgerEVM }
func (*EVMSendRequest) isLedgerSendRequest() {}

// AddressMaps partitions the addresses that sign a UTXO transaction into
// external (receive) and internal (change) derivation paths.
type AddressMaps struct {
	External map[string]uint32 `json:"external"`
	Internal map[string]uint32 `json:"internal"`
}

// UTXOSendRequest is an unsigned X or P transaction.
type UTXOSendRequest struct {
	LedgerType      chain.LedgerType `json:"-"`
	ChainAlias      string           `json:"chain_alias"`
	TxBytes         []byte           `json:"tx_bytes"`
	UTXOs           []avax.UTXO      `json:"-"`
	InputSigners    []string         `json:"input_signers"`
	ExternalIndices []uint32         `json:"external_indices"`
	InternalIndices []uint32         `json:"internal_indices"`
	AddressMaps     AddressMaps      `json:"address_maps"`
}

// Ledger returns the X or P ledger.
func (r *UTXOSendRequest) Ledger() chain.LedgerType { return r.LedgerType }
func (*UTXOSendRequest) isLedgerSendRequest() {}
