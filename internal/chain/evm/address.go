// Package evm provides account-ledger helpers for the C-chain: address
// format checks, transfer calldata and a go-ethereum node client.
package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// IsValidAddress checks the 0x-prefixed 40 hex character format.
// Checksums are not verified.
func IsValidAddress(address string) bool {
	if len(address) != 2*common.AddressLength+2 || !strings.HasPrefix(address, "0x") {
		return false
	}
	return common.IsHexAddress(address)
}

// ValidateAddress validates the format and, for mixed-case input, the
// EIP-55 checksum. All-lowercase and all-uppercase addresses carry no
// checksum and are accepted.
func ValidateAddress(address string) error {
	if !IsValidAddress(address) {
		return cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}

	expected := common.HexToAddress(address).Hex()
	if expected != address {
		return cwerr.WithDetails(cwerr.ErrInvalidChecksum, map[string]string{
			"expected": expected,
			"actual":   address,
		})
	}
	return nil
}

// NormalizeAddress validates an address and returns its EIP-55 form.
func NormalizeAddress(address string) (string, error) {
	if err := ValidateAddress(address); err != nil {
		return "", err
	}
	return common.HexToAddress(address).Hex(), nil
}

// SameAddress compares two hex addresses case-insensitively.
func SameAddress(a, b string) bool {
	return IsValidAddress(a) && IsValidAddress(b) && strings.EqualFold(a, b)
}
