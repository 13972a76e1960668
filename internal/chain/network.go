// Package chain provides the ledger model shared by every send path:
// networks, ledger types, fixed-point amounts and RPC helpers.
package chain

import (
	"fmt"
	"strings"
)

// LedgerType is the transaction model of a network.
// The set is closed: every switch over it must handle all three values.
type LedgerType int

// Supported ledger types.
const (
	LedgerUnknown LedgerType = iota
	LedgerEVM                // account-based C-chain
	LedgerAVM                // X-chain UTXO ledger
	LedgerPVM                // P-chain UTXO ledger
)

// String returns the ledger type name.
func (l LedgerType) String() string {
	switch l {
	case LedgerEVM:
		return "evm"
	case LedgerAVM:
		return "avm"
	case LedgerPVM:
		return "pvm"
	case LedgerUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// IsUTXO returns true for the X and P ledgers.
func (l LedgerType) IsUTXO() bool {
	return l == LedgerAVM || l == LedgerPVM
}

// ChainAlias returns the Avalanche chain alias for the ledger.
func (l LedgerType) ChainAlias() string {
	switch l {
	case LedgerEVM:
		return "C"
	case LedgerAVM:
		return "X"
	case LedgerPVM:
		return "P"
	case LedgerUnknown:
		return ""
	default:
		return ""
	}
}

// ParseLedgerType parses a ledger type name.
func ParseLedgerType(s string) (LedgerType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm", "c":
		return LedgerEVM, true
	case "avm", "x":
		return LedgerAVM, true
	case "pvm", "p":
		return LedgerPVM, true
	default:
		return LedgerUnknown, false
	}
}

// NativeToken describes the gas asset of a network.
type NativeToken struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Name     string `yaml:"name" json:"name"`
	Decimals uint8  `yaml:"decimals" json:"decimals"`
}

// Network is a chain the wallet can transact on.
type Network struct {
	Name      string      `yaml:"name" json:"name"`
	ChainID   int64       `yaml:"chain_id" json:"chain_id"`
	CAIP2     string      `yaml:"caip2" json:"caip2"`
	Ledger    LedgerType  `yaml:"-" json:"ledger"`
	Token     NativeToken `yaml:"token" json:"token"`
	RPCURL    string      `yaml:"rpc_url" json:"rpc_url"`
	HRP       string      `yaml:"hrp,omitempty" json:"hrp,omitempty"`
	IsTestnet bool        `yaml:"testnet" json:"testnet"`
}

// ChainAlias returns the Avalanche chain alias ("C", "X" or "P").
func (n *Network) ChainAlias() string {
	return n.Ledger.ChainAlias()
}

// String returns a short human-readable label.
func (n *Network) String() string {
	return fmt.Sprintf("%s (%s)", n.Name, n.CAIP2)
}

// EVMCAIP2 returns the CAIP-2 identifier for an EVM chain id.
func EVMCAIP2(chainID int64) string {
	return fmt.Sprintf("eip155:%d", chainID)
}

// SplitCAIP2 splits a CAIP-2 chain identifier into namespace and reference.
// It does not validate either part.
func SplitCAIP2(id string) (namespace, reference string, ok bool) {
	namespace, reference, ok = strings.Cut(id, ":")
	if !ok || namespace == "" || reference == "" {
		return "", "", false
	}
	return namespace, reference, true
}
