package send

import (
	"context"
	"math/big"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/evm"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// EVMConfig holds dependencies for the C-chain send service.
type EVMConfig struct {
	Gas    GasEstimator
	Fees   FeeSuggester
	Logger LogWriter
}

// EVMService validates and builds account-ledger sends.
type EVMService struct {
	gas    GasEstimator
	fees   FeeSuggester
	logger LogWriter
}

// NewEVMService creates the C-chain send service.
func NewEVMService(cfg *EVMConfig) *EVMService {
	if cfg == nil {
		cfg = &EVMConfig{}
	}
	return &EVMService{gas: cfg.Gas, fees: cfg.Fees, logger: cfg.Logger}
}

// Ledger returns LedgerEVM.
func (s *EVMService) Ledger() chain.LedgerType { return chain.LedgerEVM }

func (s *EVMService) sealed() {}

// ValidateStateAndCalculateFees computes gas limit, fee and max amount and
// reports the first failing check.
func (s *EVMService) ValidateStateAndCalculateFees(ctx context.Context, p ValidateParams) (*SendState, error) {
	st := resetDerived(p.State)
	if st.Token == nil {
		return st.fail(ReasonTokenRequired), nil
	}
	if p.Network == nil {
		return nil, errNetworkRequired
	}

	addrValid := st.Address != "" && evm.ValidateAddress(st.Address) == nil

	rate, err := s.feeRate(ctx, st)
	if err != nil {
		return nil, err
	}
	st.DefaultMaxFeePerGas = rate

	gasLimit, err := s.gasLimit(ctx, st, p.Account.SenderFor(chain.LedgerEVM), addrValid)
	if err != nil {
		return nil, err
	}
	st.GasLimit = gasLimit

	st.SendFee = feeUnit(rate, gasLimit, p.Network)
	st.MaxAmount = maxAmount(st.Token, st.SendFee)

	if st.Address == "" {
		return st.fail(ReasonAddressRequired), nil
	}
	if !addrValid {
		return st.fail(ReasonInvalidAddress), nil
	}
	return checkAmounts(st, p.NativeTokenBalance), nil
}

// feeRate returns the caller's max fee per gas or asks the node.
func (s *EVMService) feeRate(ctx context.Context, st *SendState) (*big.Int, error) {
	if st.DefaultMaxFeePerGas != nil {
		return st.DefaultMaxFeePerGas, nil
	}
	if s.fees == nil {
		return nil, nil
	}
	rate, err := s.fees.SuggestMaxFeePerGas(ctx)
	if err != nil {
		return nil, cwerr.Wrap(cwerr.ErrNetworkError, "suggesting max fee per gas: %v", err)
	}
	return rate, nil
}

// gasLimit prefers the caller's limit, then an estimate, then the
// static limit for the token type. Estimation failures other than a
// cancelled context fall back to the static limit.
func (s *EVMService) gasLimit(ctx context.Context, st *SendState, from string, addrValid bool) (uint64, error) {
	if st.GasLimit > 0 {
		return st.GasLimit, nil
	}
	fallback := staticGasLimit(st.Token.Type)
	if s.gas == nil || !addrValid || from == "" {
		return fallback, nil
	}

	to, value, data := evmCall(from, st)
	gas, err := s.gas.EstimateGas(ctx, from, to, value, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		s.debug("gas estimation failed, using %d: %v", fallback, err)
		return fallback, nil
	}
	return gas, nil
}

// GetTransactionRequest builds the EVM call for a validated state.
func (s *EVMService) GetTransactionRequest(_ context.Context, p RequestParams) (LedgerSendRequest, error) {
	from := p.Account.SenderFor(chain.LedgerEVM)
	if from == "" {
		return nil, missingSender(chain.LedgerEVM)
	}
	if err := requireSubmittable(p.State, p.Network); err != nil {
		return nil, err
	}

	st := p.State
	to, value, data := evmCall(from, st)
	req := &EVMSendRequest{
		From:     from,
		To:       to,
		Value:    value,
		Data:     data,
		GasLimit: st.GasLimit,
		ChainID:  p.Network.ChainID,
	}
	if st.DefaultMaxFeePerGas != nil {
		req.MaxFeePerGas = new(big.Int).Set(st.DefaultMaxFeePerGas)
	}
	return req, nil
}

// evmCall maps a send to the call target, value and calldata.
func evmCall(from string, st *SendState) (to string, value *big.Int, data []byte) {
	tok := st.Token
	switch tok.Type {
	case TokenERC20:
		return tok.Address, new(big.Int), evm.ERC20TransferData(st.Address, st.Amount.Value())
	case TokenERC721:
		return tok.Address, new(big.Int), evm.ERC721TransferData(from, st.Address, tok.TokenID)
	case TokenERC1155:
		return tok.Address, new(big.Int), evm.ERC1155TransferData(from, st.Address, tok.TokenID, st.Amount.Value())
	case TokenNative:
		return st.Address, st.Amount.Value(), append([]byte(nil), st.Data...)
	default:
		return st.Address, st.Amount.Value(), nil
	}
}

func staticGasLimit(t TokenType) uint64 {
	switch t {
	case TokenERC20:
		return evm.GasLimitERC20Transfer
	case TokenERC721, TokenERC1155:
		return evm.GasLimitNFTTransfer
	case TokenNative:
		return evm.GasLimitNativeTransfer
	default:
		return evm.GasLimitNativeTransfer
	}
}

func (s *EVMService) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}
