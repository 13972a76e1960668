package send

import (
	"context"
	"math/big"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
)

// Service validates and builds sends for one ledger type.
// The set of implementations is closed: EVMService, AVMService, PVMService.
type Service interface {
	Ledger() chain.LedgerType

	// ValidateStateAndCalculateFees never fails for user input problems;
	// those are reported in SendState.Error. The error return is reserved
	// for collaborator failures.
	ValidateStateAndCalculateFees(ctx context.Context, p ValidateParams) (*SendState, error)

	// GetTransactionRequest must only be called on a state with CanSubmit.
	GetTransactionRequest(ctx context.Context, p RequestParams) (LedgerSendRequest, error)

	sealed()
}

// GasEstimator estimates EVM gas limits.
type GasEstimator interface {
	EstimateGas(ctx context.Context, from, to string, value *big.Int, data []byte) (uint64, error)
}

// FeeSuggester suggests an EVM max fee per gas.
type FeeSuggester interface {
	SuggestMaxFeePerGas(ctx context.Context) (*big.Int, error)
}

// UTXOSource lists UTXOs owned by addresses.
type UTXOSource interface {
	GetUTXOs(ctx context.Context, addresses []string) ([]avax.UTXO, error)
}

// TxBuilder builds unsigned X/P transfers.
type TxBuilder interface {
	BuildTransfer(p avax.TransferParams) (*avax.UnsignedTx, error)
}

// Observer is notified of every validation outcome.
type Observer interface {
	ObserveValidation(ledger string, reason string)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}
