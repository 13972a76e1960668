package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/service/send"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// sendCmd is the parent command for send operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Validate sends",
	Long:  `Validate a native AVAX send on the C, X or P chain without broadcasting it.`,
}

// sendValidateCmd runs send validation as a dry run.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a send and estimate its fee",
	Long: `Validate a send on the chosen chain: the recipient, the amount against the
balance and the network fee. Nothing is signed or broadcast.

With --build the unsigned transaction request is built as well.`,
	Example: `  corewallet send validate --chain c --to 0x... --amount 0.25
  corewallet send validate --chain x --to X-avax1... --amount 1.5 --build`,
	Args: cobra.NoArgs,
	RunE: runSendValidate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendChain  string
	sendTo     string
	sendAmount string
	sendData   string
	sendBuild  bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.GroupID = "wallet"
	sendCmd.AddCommand(sendValidateCmd)

	sendValidateCmd.Flags().StringVar(&sendChain, "chain", "c", "chain to send on: c, x or p")
	sendValidateCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendValidateCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in AVAX")
	sendValidateCmd.Flags().StringVar(&sendData, "data", "", "hex call data (C-Chain only)")
	sendValidateCmd.Flags().BoolVar(&sendBuild, "build", false, "build the unsigned transaction request")
	sendCmd.PersistentFlags().BoolVar(&usePassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
}

// sendReport is the result of send validate.
type sendReport struct {
	Chain     string                 `json:"chain"`
	Network   string                 `json:"network"`
	Balance   string                 `json:"balance"`
	Amount    string                 `json:"amount,omitempty"`
	Fee       string                 `json:"fee,omitempty"`
	MaxAmount string                 `json:"max_amount,omitempty"`
	GasLimit  uint64                 `json:"gas_limit,omitempty"`
	Error     string                 `json:"error,omitempty"`
	CanSubmit bool                   `json:"can_submit"`
	Request   send.LedgerSendRequest `json:"request,omitempty"`
}

func runSendValidate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	ledger, err := parseChainFlag(sendChain)
	if err != nil {
		return err
	}
	var data []byte
	if sendData != "" {
		if ledger != chain.LedgerEVM {
			return invalidFlag("data", sendData, "call data is only valid on the C-Chain")
		}
		if data, err = hexutil.Decode(sendData); err != nil {
			return invalidFlag("data", sendData, err.Error())
		}
	}

	loc, err := openSigner(cc)
	if err != nil {
		return err
	}
	defer loc.Close()

	ctx, cancel := contextWithTimeout(cmd, nodeTimeout)
	defer cancel()

	a, err := cc.NewApp(ctx, app.Options{Config: cc.Cfg, Logger: cc.Log, Signer: loc, Accounts: loc})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := validateSend(ctx, a, loc.Account(), ledger, data)
	if err != nil {
		return err
	}

	return cc.Fmt.Emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
		writeSendText(w, report)
		return nil
	})
}

// validateSend switches the wallet to the ledger's network and validates
// the flags as a send from acct.
func validateSend(ctx context.Context, a *app.App, acct *send.Account, ledger chain.LedgerType, data []byte) (*sendReport, error) {
	network, err := networkFor(a, ledger)
	if err != nil {
		return nil, err
	}
	if err := a.Networks.SetActive(ctx, network.CAIP2); err != nil {
		return nil, err
	}

	balance, err := a.Handlers.Balances.NativeBalance(ctx, network, acct)
	if err != nil {
		return nil, err
	}

	state := &send.SendState{
		Address: sendTo,
		Data:    data,
		Token: &send.Token{
			Type:     send.TokenNative,
			Symbol:   network.Token.Symbol,
			Decimals: network.Token.Decimals,
			Balance:  balance,
		},
	}
	if sendAmount != "" {
		if state.Amount, err = chain.TokenUnitFromDisplay(sendAmount, network.Token.Decimals, network.Token.Symbol); err != nil {
			return nil, err
		}
	}

	st, err := a.Dispatcher.ValidateStateAndCalculateFees(ctx, send.ValidateParams{
		State:              state,
		Network:            network,
		Account:            acct,
		NativeTokenBalance: balance,
	})
	if err != nil {
		return nil, err
	}

	report := &sendReport{
		Chain:     ledger.ChainAlias(),
		Network:   network.CAIP2,
		Balance:   balance.String(),
		Error:     st.Error.String(),
		CanSubmit: st.CanSubmit,
		GasLimit:  st.GasLimit,
	}
	if st.Amount != nil {
		report.Amount = st.Amount.String()
	}
	if st.SendFee != nil {
		report.Fee = st.SendFee.String()
	}
	if st.MaxAmount != nil {
		report.MaxAmount = st.MaxAmount.String()
	}

	if sendBuild && st.CanSubmit {
		req, err := a.Dispatcher.GetTransactionRequest(ctx, send.RequestParams{State: st, Network: network, Account: acct})
		if err != nil {
			return nil, err
		}
		report.Request = req
	}
	return report, nil
}

func networkFor(a *app.App, ledger chain.LedgerType) (*chain.Network, error) {
	for _, n := range a.Networks.List() {
		if n.Ledger == ledger {
			return n, nil
		}
	}
	return nil, cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"ledger": ledger.String()})
}

func writeSendText(w io.Writer, r *sendReport) {
	out(w, "Chain:       %s (%s)\n", r.Chain, r.Network)
	out(w, "Balance:     %s\n", r.Balance)
	if r.Amount != "" {
		out(w, "Amount:      %s\n", r.Amount)
	}
	if r.Fee != "" {
		out(w, "Network fee: %s\n", r.Fee)
	}
	if r.MaxAmount != "" {
		out(w, "Max amount:  %s\n", r.MaxAmount)
	}
	if r.GasLimit > 0 {
		out(w, "Gas limit:   %s\n", strconv.FormatUint(r.GasLimit, 10))
	}
	if r.Error != "" {
		out(w, "Error:       %s\n", r.Error)
	}
	out(w, "Submittable: %t\n", r.CanSubmit)

	switch req := r.Request.(type) {
	case *send.EVMSendRequest:
		out(w, "\nUnsigned EIP-1559 call from %s to %s, chain id %d\n", req.From, req.To, req.ChainID)
	case *send.UTXOSendRequest:
		out(w, "\nUnsigned %s-Chain tx: %d bytes, %d inputs\n", req.ChainAlias, len(req.TxBytes), len(req.InputSigners))
	}
}
