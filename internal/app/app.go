// Package app wires configuration, node clients, send services, the
// module router and the request arbiter into one running wallet.
package app

import (
	"context"
	"math/big"
	"path/filepath"
	"time"

	"github.com/mrz1836/corewallet/internal/arbiter"
	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/metrics"
	"github.com/mrz1836/corewallet/internal/module"
	"github.com/mrz1836/corewallet/internal/service/send"
	"github.com/mrz1836/corewallet/internal/store"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Options are the collaborators New cannot build from config alone.
type Options struct {
	Config *config.Config
	Logger *config.Logger

	// Signer and Accounts are usually the same *signer.Local.
	Signer   dapp.Signer
	Accounts dapp.AccountStore

	// Backends are dialed from config when nil.
	Backends *Backends
	// Sessions is chosen from config when nil.
	Sessions store.ConnectedSessionStore
	Metrics  *metrics.Metrics

	// The arbiter is only built when both are set.
	Transport arbiter.Transport
	Prompter  arbiter.Prompter

	Now func() time.Time
}

// App is the assembled wallet.
type App struct {
	Config     *config.Config
	Logger     *config.Logger
	Metrics    *metrics.Metrics
	Networks   *Networks
	Contacts   *ContactBook
	Backends   *Backends
	Registry   *module.Registry
	Dispatcher *send.Dispatcher
	Sessions   store.ConnectedSessionStore
	Handlers   *dapp.Context
	Engine     *arbiter.Engine

	closers []func()
}

// New assembles the wallet from opts.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{"reason": "config is required"})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: opts.Logger, Metrics: opts.Metrics}
	if a.Logger == nil {
		a.Logger = config.NullLogger()
	}
	if a.Metrics == nil {
		a.Metrics = metrics.New()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	if a.Networks, err = NewNetworks(cfg.ChainNetworks(), cfg.Networks.Active); err != nil {
		return nil, err
	}
	if a.Contacts, err = LoadContacts(filepath.Join(config.ExpandPath(cfg.Home), ContactsFile)); err != nil {
		return nil, err
	}

	backends := opts.Backends
	if backends == nil {
		if backends, err = Dial(ctx, cfg); err != nil {
			return nil, err
		}
	}
	a.Backends = backends.Instrument(a.Metrics)
	a.closers = append(a.closers, a.Backends.Close)

	if err = a.buildSend(cfg, now); err != nil {
		return nil, err
	}
	if a.Registry, err = NewRegistry(cfg); err != nil {
		return nil, err
	}

	a.Sessions = opts.Sessions
	if a.Sessions == nil {
		if a.Sessions, err = a.openSessions(ctx); err != nil {
			return nil, err
		}
	}

	a.Handlers = &dapp.Context{
		Networks: a.Networks,
		Accounts: opts.Accounts,
		Contacts: a.Contacts,
		Signer:   opts.Signer,
		EVM:      a.Backends.EVM,
		XChain:   a.Backends.X,
		PChain:   a.Backends.P,
		Balances: NewBalances(a.Backends, now),
		Send:     a.Dispatcher,
		Logger:   a.Logger.With("handlers"),
	}

	if opts.Transport != nil && opts.Prompter != nil {
		a.Engine, err = arbiter.New(arbiter.Options{
			Registry:  a.Registry,
			Context:   a.Handlers,
			Transport: opts.Transport,
			Prompter:  opts.Prompter,
			Limiter:   chain.NewRateLimiter(cfg.Arbiter.RatePerSecond, cfg.Arbiter.Burst),
			Recorder:  a.Metrics,
			Logger:    a.Logger.With("arbiter"),
			Now:       now,
		})
		if err != nil {
			return nil, err
		}
	}

	ok = true
	return a, nil
}

func (a *App) buildSend(cfg *config.Config, now func() time.Time) error {
	var fees send.FeeSuggester = a.Backends.EVM
	if cfg.Fees.DefaultMaxFeePerGasWei > 0 {
		fees = fixedFee(cfg.Fees.DefaultMaxFeePerGasWei)
	}
	logger := a.Logger.With("send")

	d, err := send.NewDispatcher(a.Metrics,
		send.NewEVMService(&send.EVMConfig{Gas: a.Backends.EVM, Fees: fees, Logger: logger}),
		send.NewAVMService(&send.UTXOConfig{BaseFee: cfg.Fees.XPBaseFeeNAVAX, UTXOs: a.Backends.X, Logger: logger, Now: now}),
		send.NewPVMService(&send.UTXOConfig{BaseFee: cfg.Fees.XPBaseFeeNAVAX, UTXOs: a.Backends.P, Logger: logger, Now: now}),
	)
	if err != nil {
		return err
	}
	active, _ := a.Networks.Active(context.Background())
	if err := d.SetActiveNetwork(active); err != nil {
		return err
	}
	a.Networks.OnChange(d.SetActiveNetwork)
	a.Dispatcher = d
	return nil
}

func (a *App) openSessions(ctx context.Context) (store.ConnectedSessionStore, error) {
	s, closer, err := OpenSessions(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)
	return s, nil
}

// OpenSessions opens the connected-session store named by cfg. The
// returned func releases it.
func OpenSessions(ctx context.Context, cfg *config.Config) (store.ConnectedSessionStore, func(), error) {
	s := cfg.Sessions
	if s.Store != config.StoreRedis {
		return store.NewMemory(), func() {}, nil
	}
	client, err := store.DialRedis(ctx, s.RedisAddr, s.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return store.NewRedis(client, s.RedisPrefix), func() { _ = client.Close() }, nil
}

// Connect records a connected peer session.
func (a *App) Connect(ctx context.Context, s store.ConnectedSession) error {
	return a.Sessions.Save(ctx, s)
}

// RevokeSession removes a connected session and rejects its pending
// requests.
func (a *App) RevokeSession(ctx context.Context, topic string) error {
	err := a.Sessions.Revoke(ctx, topic)
	if a.Engine != nil && (err == nil || cwerr.Is(err, store.ErrSessionNotFound)) {
		a.Engine.OnSessionClosed(ctx, topic)
	}
	return err
}

// RevokeAllSessions removes every connected session.
func (a *App) RevokeAllSessions(ctx context.Context) (int, error) {
	list, err := a.Sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	n, err := a.Sessions.RevokeAll(ctx)
	if err != nil {
		return n, err
	}
	if a.Engine != nil {
		for _, s := range list {
			a.Engine.OnSessionClosed(ctx, s.Topic)
		}
	}
	return n, nil
}

// Housekeep expires stale prompts and prunes finished requests every
// interval until ctx ends.
func (a *App) Housekeep(ctx context.Context, interval time.Duration) {
	if a.Engine == nil {
		return
	}
	timeout := time.Duration(a.Config.Arbiter.PromptTimeoutSeconds) * time.Second
	retention := time.Duration(a.Config.Arbiter.RetentionMinutes) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Engine.ExpirePending(ctx, timeout); n > 0 {
				a.Logger.Info("expired %d pending requests", n)
			}
			if n := a.Engine.Prune(retention); n > 0 {
				a.Logger.Debug("pruned %d finished requests", n)
			}
		}
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

type fixedFee uint64

func (f fixedFee) SuggestMaxFeePerGas(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(uint64(f)), nil
}
