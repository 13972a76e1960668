package module

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// maxSuggestDistance bounds "did you mean" suggestions for unknown methods.
const maxSuggestDistance = 3

var namespacePattern = regexp.MustCompile(`^[-a-z0-9]{3,8}$`)

// Registry maps chain ids and namespaces to modules. It is built once and
// is read-only afterwards, so lookups need no locking.
type Registry struct {
	modules     []*Module
	byChainID   map[string]*Module
	byNamespace map[string]*Module
}

// NewRegistry indexes modules. A chain id or namespace claimed by two
// modules is a configuration error.
func NewRegistry(modules ...*Module) (*Registry, error) {
	r := &Registry{
		modules:     modules,
		byChainID:   make(map[string]*Module),
		byNamespace: make(map[string]*Module),
	}
	for _, m := range modules {
		for _, id := range m.manifest.ChainIDs {
			if other, dup := r.byChainID[id]; dup {
				return nil, conflict("chain_id", id, other, m)
			}
			r.byChainID[id] = m
		}
		for _, ns := range m.manifest.Namespaces {
			if other, dup := r.byNamespace[ns]; dup {
				return nil, conflict("namespace", ns, other, m)
			}
			r.byNamespace[ns] = m
		}
	}
	return r, nil
}

func conflict(kind, key string, a, b *Module) error {
	return cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{
		kind:     key,
		"module": a.Name() + "," + b.Name(),
		"reason": "claimed by two modules",
	})
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []*Module {
	return append([]*Module(nil), r.modules...)
}

// LoadModule resolves the module owning chainID and checks that it
// permits method. Resolution prefers an explicit chain id over a
// namespace match.
func (r *Registry) LoadModule(chainID, method string) (*Module, error) {
	namespace, _, _ := strings.Cut(chainID, ":")
	if !namespacePattern.MatchString(namespace) {
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedNamespace, map[string]string{"namespace": namespace})
	}

	mod, ok := r.byChainID[chainID]
	if !ok {
		mod, ok = r.byNamespace[namespace]
	}
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedChainID, map[string]string{"chain_id": chainID})
	}

	if !mod.Permits(method) {
		details := map[string]string{"method": method, "module": mod.Name()}
		if s := mod.suggest(method); s != "" {
			details["suggestion"] = s
		}
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedMethod, details)
	}
	return mod, nil
}

// ModuleFor resolves a module by chain id only, without a method check.
func (r *Registry) ModuleFor(chainID string) (*Module, bool) {
	if mod, ok := r.byChainID[chainID]; ok {
		return mod, true
	}
	ns, _, ok := chain.SplitCAIP2(chainID)
	if !ok {
		return nil, false
	}
	mod, ok := r.byNamespace[ns]
	return mod, ok
}

// suggest returns the closest concrete method name, if any is close.
func (m *Module) suggest(method string) string {
	candidates := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		candidates = append(candidates, name)
	}
	for _, p := range m.manifest.Methods {
		if !strings.HasSuffix(p, "*") {
			candidates = append(candidates, p)
		}
	}
	sort.Strings(candidates)

	best, bestDist := "", math.MaxInt
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(method, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist <= maxSuggestDistance {
		return best
	}
	return ""
}
