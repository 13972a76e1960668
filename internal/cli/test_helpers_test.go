package cli

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/output"
	"github.com/mrz1836/corewallet/internal/signer"
	"github.com/mrz1836/corewallet/internal/store"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testAddressC = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testPassword = "correct horse battery"
)

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte, confirm bool) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origConfirm := promptConfirmFn
	origPassphrase := promptPassphraseFn
	origMnemonic := promptMnemonicFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptConfirmFn = origConfirm
		promptPassphraseFn = origPassphrase
		promptMnemonicFn = origMnemonic
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptConfirmFn = func(string) bool { return confirm }
	promptPassphraseFn = func() (string, error) {
		return "testpassphrase", nil
	}
	promptMnemonicFn = func() (string, error) {
		return testMnemonic, nil
	}
}

// setupTestEnv points the CLI globals at a temporary home and restores
// them when the test ends.
func setupTestEnv(t *testing.T) string {
	t.Helper()

	origCfg := cfg
	origLogger := logger
	origFormatter := formatter
	origCtx := cmdCtx

	tmpDir := t.TempDir()

	testCfg := config.Defaults()
	testCfg.Home = tmpDir
	testCfg.Keystore.File = filepath.Join(tmpDir, "keystore.age")
	testCfg.Keystore.MemoryLock = false
	testCfg.Logging.File = ""
	cfg = testCfg
	logger = config.NullLogger()
	formatter = output.NewFormatter(output.FormatText, os.Stdout)
	cmdCtx = nil

	t.Cleanup(func() {
		cfg = origCfg
		logger = origLogger
		formatter = origFormatter
		cmdCtx = origCtx
	})
	return tmpDir
}

// useJSON switches the global formatter to JSON for the test.
func useJSON(t *testing.T) {
	t.Helper()
	orig := formatter
	formatter = output.NewFormatter(output.FormatJSON, os.Stdout)
	t.Cleanup(func() { formatter = orig })
}

// newTestCmd creates a bare command that captures stdout.
func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	return cmd, &buf
}

type fakeEVM struct {
	balance *big.Int
}

func (f *fakeEVM) EstimateGas(context.Context, string, string, *big.Int, []byte) (uint64, error) {
	return 21_000, nil
}

func (f *fakeEVM) SuggestMaxFeePerGas(context.Context) (*big.Int, error) {
	return big.NewInt(25_000_000_000), nil
}

func (f *fakeEVM) SuggestTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeEVM) NativeBalance(context.Context, string) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeEVM) PendingNonce(context.Context, string) (uint64, error) { return 0, nil }

func (f *fakeEVM) SendTransaction(_ context.Context, tx *types.Transaction) (string, error) {
	return tx.Hash().Hex(), nil
}

type fakeUTXO struct {
	fail bool
}

func (f *fakeUTXO) GetUTXOs(context.Context, []string) ([]avax.UTXO, error) {
	if f.fail {
		return nil, cwerr.ErrNetworkError
	}
	return nil, nil
}

func (f *fakeUTXO) IssueTx(context.Context, []byte) (string, error) {
	return "", cwerr.ErrNetworkError
}

// newTestApp assembles the wallet around fake nodes and the test mnemonic.
func newTestApp(t *testing.T, backends *app.Backends) (*app.App, *signer.Local) {
	t.Helper()
	loc, err := signer.FromMnemonic(testMnemonic, "", signerOptions(cfg))
	require.NoError(t, err)
	t.Cleanup(loc.Close)

	a, err := app.New(context.Background(), app.Options{
		Config:   cfg,
		Logger:   config.NullLogger(),
		Signer:   loc,
		Accounts: loc,
		Backends: backends,
		Sessions: store.NewMemory(),
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, loc
}
