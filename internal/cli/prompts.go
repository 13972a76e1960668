package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/corewallet/internal/signer"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

const (
	minPasswordLen = 8
	ttyPath        = "/dev/tty"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // Swappable for tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptPassphraseFn  = promptPassphrase
	promptConfirmFn     = promptConfirmation
	promptMnemonicFn    = promptMnemonic
)

// promptPassword prompts for a password with hidden input. When stdin
// carries data, as under serve, the controlling terminal is used instead.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	fd := int(syscall.Stdin) //nolint:unconvert // syscall.Stdin is uintptr-sized on windows
	if !term.IsTerminal(fd) {
		tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
		if err != nil {
			return nil, cwerr.WithSuggestion(
				cwerr.Wrap(cwerr.ErrAuthentication, "no terminal for password input"),
				"run from an interactive terminal",
			)
		}
		defer func() { _ = tty.Close() }()
		fd = int(tty.Fd()) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.ReadPassword
	}

	out(os.Stderr, "%s", prompt)
	password, err := term.ReadPassword(fd)
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	return password, nil
}

// promptNewPassword prompts for a new password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPassword("Enter keystore password: ")
	if err != nil {
		return nil, err
	}

	if len(password) < minPasswordLen {
		signer.ZeroBytes(password)
		return nil, cwerr.WithSuggestion(
			cwerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen),
		)
	}

	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		signer.ZeroBytes(password)
		return nil, err
	}
	defer signer.ZeroBytes(confirm)

	if string(password) != string(confirm) {
		signer.ZeroBytes(password)
		return nil, cwerr.WithSuggestion(
			cwerr.ErrInvalidInput,
			"passwords do not match",
		)
	}

	return password, nil
}

// promptPassphrase prompts for an optional BIP39 passphrase.
func promptPassphrase() (string, error) {
	outln(os.Stderr, "\nBIP39 Passphrase (optional, press enter to skip):")

	passphrase, err := promptPassword("Enter passphrase: ")
	if err != nil {
		return "", err
	}
	defer signer.ZeroBytes(passphrase)

	return string(passphrase), nil
}

// promptConfirmation asks a yes/no question on stderr.
func promptConfirmation(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// promptMnemonic reads a recovery phrase from stdin.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter your recovery phrase, all words separated by spaces:")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading recovery phrase: %w", err)
	}
	return signer.NormalizeMnemonic(line), nil
}
