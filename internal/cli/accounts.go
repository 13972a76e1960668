package cli

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/output"
	"github.com/mrz1836/corewallet/internal/service/send"
)

const nodeTimeout = 30 * time.Second

// accountsCmd is the parent command for account operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Show the active account",
	Long:  `Show the addresses and balances of the account derived from the keystore.`,
}

// accountsShowCmd prints the account addresses.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show account addresses",
	Long: `Show the C-Chain address and the X/P addresses of the configured account.

With --qr the address of --chain is drawn as a QR code when stdout is a
terminal.`,
	Example: `  corewallet accounts show
  corewallet accounts show --qr --chain x`,
	Args: cobra.NoArgs,
	RunE: runAccountsShow,
}

// accountsBalanceCmd prints native balances.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show native balances",
	Long: `Query the configured nodes for the account's AVAX balance on the C, X and
P chains. X and P balances count spendable single-key outputs only.`,
	Example: `  corewallet accounts balance
  corewallet accounts balance -o json`,
	Args: cobra.NoArgs,
	RunE: runAccountsBalance,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	accountsQR    bool
	accountsChain string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.GroupID = "wallet"
	accountsCmd.AddCommand(accountsShowCmd)
	accountsCmd.AddCommand(accountsBalanceCmd)

	accountsShowCmd.Flags().BoolVar(&accountsQR, "qr", false, "draw the address as a QR code")
	accountsShowCmd.Flags().StringVar(&accountsChain, "chain", "c", "chain of the QR address: c, x or p")
	accountsCmd.PersistentFlags().BoolVar(&usePassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
}

func runAccountsShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	loc, err := openSigner(cc)
	if err != nil {
		return err
	}
	defer loc.Close()

	acct := loc.Account()
	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, acct)
	}
	if err := writeAccountText(w, acct, cc.Cfg.Output.Verbose); err != nil {
		return err
	}
	if !accountsQR {
		return nil
	}

	ledger, err := parseChainFlag(accountsChain)
	if err != nil {
		return err
	}
	addr := acct.SenderFor(ledger)
	outln(w)
	if !output.RenderAddressQR(os.Stdout, addr, output.DefaultQRConfig()) {
		output.Std().Warnf("QR codes need a terminal on stdout")
	}
	return nil
}

func writeAccountText(w io.Writer, acct *send.Account, all bool) error {
	out(w, "Account:  %s (index %d)\n", acct.Name, acct.Index)
	out(w, "C-Chain:  %s\n", acct.AddressC)
	out(w, "X-Chain:  %s\n", acct.AddressAVM)
	out(w, "P-Chain:  %s\n", acct.AddressPVM)
	if !all {
		return nil
	}
	table := output.NewTable("INDEX", "BRANCH", "ADDRESS")
	for _, a := range acct.XPAddresses {
		branch := "external"
		if a.Internal {
			branch = "change"
		}
		table.AddRow(strconv.FormatUint(uint64(a.Index), 10), branch, a.Address)
	}
	outln(w)
	return table.Render(w)
}

type balanceRow struct {
	Chain   string `json:"chain"`
	CAIP2   string `json:"caip2"`
	Balance string `json:"balance,omitempty"`
	Symbol  string `json:"symbol"`
	Error   string `json:"error,omitempty"`
}

func runAccountsBalance(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
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

	rows := collectBalances(ctx, a, loc.Account())

	return cc.Fmt.Emit(cmd.OutOrStdout(), rows, func(w io.Writer) error {
		table := output.NewTable("CHAIN", "BALANCE", "NETWORK").AlignRight(1)
		for _, r := range rows {
			value := r.Balance + " " + r.Symbol
			if r.Error != "" {
				value = "error: " + r.Error
			}
			table.AddRow(r.Chain, value, r.CAIP2)
		}
		return table.Render(w)
	})
}

// collectBalances queries every configured chain; one failing node does
// not hide the others.
func collectBalances(ctx context.Context, a *app.App, acct *send.Account) []balanceRow {
	rows := make([]balanceRow, 0, 3)
	for _, n := range a.Networks.List() {
		row := balanceRow{Chain: n.Ledger.ChainAlias(), CAIP2: n.CAIP2, Symbol: n.Token.Symbol}
		bal, err := a.Handlers.Balances.NativeBalance(ctx, n, acct)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Balance = bal.Display()
		}
		rows = append(rows, row)
	}
	return rows
}

// parseChainFlag maps c, x or p to a ledger.
func parseChainFlag(s string) (chain.LedgerType, error) {
	switch s {
	case "c", "C":
		return chain.LedgerEVM, nil
	case "x", "X":
		return chain.LedgerAVM, nil
	case "p", "P":
		return chain.LedgerPVM, nil
	}
	return chain.LedgerUnknown, invalidFlag("chain", s, "must be c, x or p")
}
