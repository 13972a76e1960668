package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/output"
	"github.com/mrz1836/corewallet/internal/signer"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// keystoreCmd is the parent command for keystore operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "Manage the encrypted keystore",
	Long:  `Create the age-encrypted keystore that holds the recovery phrase of the local signer.`,
}

// keystoreCreateCmd creates a keystore.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keystoreCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new keystore",
	Long: `Generate a recovery phrase, or restore one with --restore, and encrypt it
with a password into the configured keystore file.

An existing keystore is never overwritten.`,
	Example: `  corewallet keystore create --words 24
  corewallet keystore create --restore`,
	Args: cobra.NoArgs,
	RunE: runKeystoreCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	keystoreWords   int
	keystoreRestore bool
	usePassphrase   bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(keystoreCmd)
	keystoreCmd.GroupID = "wallet"
	keystoreCmd.AddCommand(keystoreCreateCmd)

	keystoreCreateCmd.Flags().IntVar(&keystoreWords, "words", 24, "number of words to generate: 12 or 24")
	keystoreCreateCmd.Flags().BoolVar(&keystoreRestore, "restore", false, "restore an existing recovery phrase")
	keystoreCreateCmd.Flags().BoolVar(&usePassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
}

func runKeystoreCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	path := config.ExpandPath(cc.Cfg.Keystore.File)

	if _, err := os.Stat(path); err == nil {
		return cwerr.WithSuggestion(
			cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"keystore": path, "reason": "keystore exists"}),
			"move the existing file away or set keystore.file to a new path",
		)
	}

	mnemonic, err := obtainMnemonic()
	if err != nil {
		return err
	}

	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer signer.ZeroBytes(password)

	if err := signer.CreateKeystore(path, mnemonic, string(password)); err != nil {
		return err
	}
	cc.Log.Info("keystore created at %s", path)

	passphrase := ""
	if usePassphrase {
		if passphrase, err = promptPassphraseFn(); err != nil {
			return err
		}
	}
	loc, err := signer.FromMnemonic(mnemonic, passphrase, signerOptions(cc.Cfg))
	if err != nil {
		return err
	}
	defer loc.Close()

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return writeJSON(w, map[string]any{"keystore": path, "account": loc.Account()})
	}
	output.Std().Successf("Keystore created at %s", path)
	return writeAccountText(w, loc.Account(), false)
}

// obtainMnemonic restores or generates the phrase for a new keystore.
func obtainMnemonic() (string, error) {
	if keystoreRestore {
		mnemonic, err := promptMnemonicFn()
		if err != nil {
			return "", err
		}
		if err := signer.ValidateMnemonic(mnemonic); err != nil {
			return "", err
		}
		return mnemonic, nil
	}

	mnemonic, err := signer.GenerateMnemonic(keystoreWords)
	if err != nil {
		return "", err
	}
	outln(os.Stderr, "\nRecovery phrase, write it down and keep it offline:")
	outln(os.Stderr)
	for i, word := range strings.Fields(mnemonic) {
		out(os.Stderr, "  %2d. %s\n", i+1, word)
	}
	outln(os.Stderr)
	if !promptConfirmFn("Have you written down the recovery phrase?") {
		return "", cwerr.WithSuggestion(cwerr.ErrUserRejected, "run keystore create again when ready")
	}
	return mnemonic, nil
}

// signerOptions derives the local signer settings from cfg.
func signerOptions(c *config.Config) signer.Options {
	return signer.Options{
		Index: c.Keystore.Account,
		Gap:   c.Keystore.XPAddrGap,
		HRP:   c.Networks.X.HRP,
	}
}

// openSigner unlocks the keystore and derives the configured account.
// The caller must Close the signer.
func openSigner(cc *CommandContext) (*signer.Local, error) {
	path := config.ExpandPath(cc.Cfg.Keystore.File)
	if _, err := os.Stat(path); err != nil {
		return nil, cwerr.WithSuggestion(
			cwerr.WithDetails(cwerr.ErrNotFound, map[string]string{"keystore": path}),
			"create one with: corewallet keystore create",
		)
	}

	password, err := promptPasswordFn("Keystore password: ")
	if err != nil {
		return nil, err
	}
	defer signer.ZeroBytes(password)

	secret, err := signer.OpenKeystore(path, string(password))
	if err != nil {
		return nil, err
	}
	defer secret.Destroy()
	if cc.Cfg.Keystore.MemoryLock && !secret.IsLocked() {
		output.Std().Warnf("recovery phrase could not be locked in memory")
		cc.Log.Info("mlock unavailable for keystore %s", path)
	}

	passphrase := ""
	if usePassphrase {
		if passphrase, err = promptPassphraseFn(); err != nil {
			return nil, err
		}
	}
	return signer.FromMnemonic(string(secret.Bytes()), passphrase, signerOptions(cc.Cfg))
}
