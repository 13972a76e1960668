// Package module resolves which VM module owns a CAIP-2 chain id and
// whether it permits a method.
package module

import (
	"strings"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Manifest declares what a module supports. Method entries ending in "*"
// match any method sharing the prefix before the star.
type Manifest struct {
	Name       string   `json:"name" yaml:"name"`
	Ledger     string   `json:"ledger" yaml:"ledger"`
	Namespaces []string `json:"namespaces" yaml:"namespaces"`
	ChainIDs   []string `json:"chain_ids" yaml:"chain_ids"`
	Methods    []string `json:"methods" yaml:"methods"`
}

// Module is a VM module: a manifest plus the handlers for its methods.
type Module struct {
	manifest Manifest
	ledger   chain.LedgerType
	handlers map[string]dapp.Handler
}

// New builds a module. Every handler method must be permitted by the
// manifest, and no method may have two handlers.
func New(m Manifest, handlers ...dapp.Handler) (*Module, error) {
	ledger, _ := chain.ParseLedgerType(m.Ledger)
	mod := &Module{
		manifest: m,
		ledger:   ledger,
		handlers: make(map[string]dapp.Handler),
	}
	for _, h := range handlers {
		for _, method := range h.Methods() {
			if !mod.Permits(method) {
				return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{
					"module": m.Name,
					"method": method,
					"reason": "handler method not in manifest",
				})
			}
			if _, dup := mod.handlers[method]; dup {
				return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{
					"module": m.Name,
					"method": method,
					"reason": "duplicate handler",
				})
			}
			mod.handlers[method] = h
		}
	}
	return mod, nil
}

// Name returns the manifest name.
func (m *Module) Name() string { return m.manifest.Name }

// Ledger returns the ledger type the module's chains use.
func (m *Module) Ledger() chain.LedgerType { return m.ledger }

// Manifest returns a copy of the manifest.
func (m *Module) Manifest() Manifest {
	out := m.manifest
	out.Namespaces = append([]string(nil), m.manifest.Namespaces...)
	out.ChainIDs = append([]string(nil), m.manifest.ChainIDs...)
	out.Methods = append([]string(nil), m.manifest.Methods...)
	return out
}

// Permits reports whether the manifest allows method, exactly or by a
// wildcard prefix.
func (m *Module) Permits(method string) bool {
	for _, pattern := range m.manifest.Methods {
		if pattern == method {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok && strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}

// Handler returns the handler registered for method.
func (m *Module) Handler(method string) (dapp.Handler, bool) {
	h, ok := m.handlers[method]
	return h, ok
}
