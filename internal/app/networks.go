package app

import (
	"context"
	"sync"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Networks is the configured network list with one active entry.
type Networks struct {
	mu       sync.RWMutex
	list     []*chain.Network
	byCAIP2  map[string]*chain.Network
	active   *chain.Network
	onChange []func(*chain.Network) error
}

// NewNetworks indexes list by CAIP-2 id and activates active.
func NewNetworks(list []*chain.Network, active string) (*Networks, error) {
	n := &Networks{byCAIP2: make(map[string]*chain.Network, len(list))}
	for _, net := range list {
		if _, dup := n.byCAIP2[net.CAIP2]; dup {
			return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{
				"caip2":  net.CAIP2,
				"reason": "duplicate network",
			})
		}
		n.byCAIP2[net.CAIP2] = net
		n.list = append(n.list, net)
	}
	net, ok := n.byCAIP2[active]
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{
			"field":  "networks.active",
			"caip2":  active,
			"reason": "not a configured network",
		})
	}
	n.active = net
	return n, nil
}

// OnChange registers fn to run, in registration order, each time the
// active network changes. A failing fn aborts the switch.
func (n *Networks) OnChange(fn func(*chain.Network) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = append(n.onChange, fn)
}

// List returns the networks in configuration order.
func (n *Networks) List() []*chain.Network {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*chain.Network(nil), n.list...)
}

// Active returns the active network.
func (n *Networks) Active(_ context.Context) (*chain.Network, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active, nil
}

// ByCAIP2 looks up a configured network.
func (n *Networks) ByCAIP2(_ context.Context, caip2 string) (*chain.Network, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	net, ok := n.byCAIP2[caip2]
	return net, ok
}

// SetActive switches the active network and notifies listeners.
func (n *Networks) SetActive(_ context.Context, caip2 string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	net, ok := n.byCAIP2[caip2]
	if !ok {
		return cwerr.WithDetails(cwerr.ErrResourceNotFound, map[string]string{"chain_id": caip2})
	}
	if net == n.active {
		return nil
	}
	for _, fn := range n.onChange {
		if err := fn(net); err != nil {
			return cwerr.Wrap(err, "switching to %s", caip2)
		}
	}
	n.active = net
	return nil
}
