package send

import (
	"context"
	"sync"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Dispatcher holds one long-lived service per ledger and forwards calls to
// the one matching the active network. Callers never branch on ledger type.
type Dispatcher struct {
	services map[chain.LedgerType]Service
	observer Observer

	mu      sync.RWMutex
	active  Service
	network *chain.Network
}

// NewDispatcher registers the given services. Registering two services for
// the same ledger is a programming error.
func NewDispatcher(observer Observer, services ...Service) (*Dispatcher, error) {
	d := &Dispatcher{
		services: make(map[chain.LedgerType]Service, len(services)),
		observer: observer,
	}
	for _, svc := range services {
		if _, dup := d.services[svc.Ledger()]; dup {
			return nil, cwerr.WithDetails(cwerr.ErrInternal, map[string]string{
				"ledger": svc.Ledger().String(),
				"reason": "duplicate send service",
			})
		}
		d.services[svc.Ledger()] = svc
	}
	return d, nil
}

// SetActiveNetwork resolves the service for the network's ledger once.
func (d *Dispatcher) SetActiveNetwork(n *chain.Network) error {
	if n == nil {
		return errNetworkRequired
	}
	svc, err := d.ServiceFor(n.Ledger)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.active = svc
	d.network = n
	d.mu.Unlock()
	return nil
}

// ActiveNetwork returns the network set by SetActiveNetwork.
func (d *Dispatcher) ActiveNetwork() *chain.Network {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.network
}

// ServiceFor returns the service registered for a ledger.
func (d *Dispatcher) ServiceFor(l chain.LedgerType) (Service, error) {
	svc, ok := d.services[l]
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"ledger": l.String()})
	}
	return svc, nil
}

func (d *Dispatcher) current() (Service, *chain.Network, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return nil, nil, cwerr.WithDetails(cwerr.ErrUnsupportedLedger, map[string]string{"reason": "no active network"})
	}
	return d.active, d.network, nil
}

// ValidateStateAndCalculateFees forwards to the active service. A nil
// network in p defaults to the active network.
func (d *Dispatcher) ValidateStateAndCalculateFees(ctx context.Context, p ValidateParams) (*SendState, error) {
	svc, network, err := d.current()
	if err != nil {
		return nil, err
	}
	if p.Network == nil {
		p.Network = network
	}
	st, err := svc.ValidateStateAndCalculateFees(ctx, p)
	if err == nil && d.observer != nil {
		d.observer.ObserveValidation(svc.Ledger().String(), st.Error.String())
	}
	return st, err
}

// GetTransactionRequest forwards to the active service.
func (d *Dispatcher) GetTransactionRequest(ctx context.Context, p RequestParams) (LedgerSendRequest, error) {
	svc, network, err := d.current()
	if err != nil {
		return nil, err
	}
	if p.Network == nil {
		p.Network = network
	}
	return svc.GetTransactionRequest(ctx, p)
}
