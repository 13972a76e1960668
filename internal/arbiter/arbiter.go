// Package arbiter drives inbound dapp requests through the module router,
// the two-phase handlers and the session table, and relays every outcome
// back to the peer.
package arbiter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/metrics"
	"github.com/mrz1836/corewallet/internal/module"
	"github.com/mrz1836/corewallet/internal/session"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Reply is the answer to one request. Exactly one of Result and Error is set.
type Reply struct {
	ID     string          `json:"id"`
	Topic  string          `json:"topic"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *dapp.RPCError  `json:"error,omitempty"`
}

// Transport delivers replies to the external session.
type Transport interface {
	Respond(ctx context.Context, reply Reply) error
}

// Prompter shows a pending request to the user. The decision comes back
// later through Engine.OnDecision.
type Prompter interface {
	Present(ctx context.Context, prompt dapp.Prompt) error
}

// Recorder receives request dispositions; *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveRequest(method, disposition string)
	ObserveApprove(method string, d time.Duration)
	SetPending(n int)
}

// Options configures an Engine.
type Options struct {
	Registry  *module.Registry
	Table     *session.Table
	Context   *dapp.Context
	Transport Transport
	Prompter  Prompter
	Limiter   *chain.RateLimiter
	Recorder  Recorder
	Logger    dapp.LogWriter
	Now       func() time.Time
}

// Engine is the request arbiter. It is safe for concurrent use.
type Engine struct {
	registry  *module.Registry
	table     *session.Table
	hctx      *dapp.Context
	transport Transport
	prompter  Prompter
	limiter   *chain.RateLimiter
	recorder  Recorder
	logger    dapp.LogWriter
	now       func() time.Time
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil || opts.Transport == nil || opts.Prompter == nil {
		return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{
			"reason": "arbiter needs a registry, a transport and a prompter",
		})
	}
	e := &Engine{
		registry:  opts.Registry,
		table:     opts.Table,
		hctx:      opts.Context,
		transport: opts.Transport,
		prompter:  opts.Prompter,
		limiter:   opts.Limiter,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.table == nil {
		e.table = session.NewTable(session.WithClock(e.now))
	}
	if e.hctx == nil {
		e.hctx = &dapp.Context{}
	}
	if e.limiter == nil {
		e.limiter = chain.DefaultRateLimiter()
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.logger == nil {
		e.logger = nopLogger{}
	}
	return e, nil
}

// Table returns the session table.
func (e *Engine) Table() *session.Table { return e.table }

// OnRequest routes, registers and handles one inbound request. Failures
// are answered on the transport; the returned error is only a transport
// failure.
func (e *Engine) OnRequest(ctx context.Context, req *dapp.Request) error {
	if req.ID == "" && req.Origin == dapp.OriginDeepLink {
		req.ID = dapp.NewRequestID()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = e.now()
	}

	if !e.limiter.Allow(req.Session.Topic) {
		e.recorder.ObserveRequest(req.Method, metrics.DispositionLimited)
		e.logger.Debug("request %s from %q limited", req.ID, req.Session.Topic)
		return e.fail(ctx, req, cwerr.ErrLimitExceeded)
	}

	handler, err := e.route(req.ChainID, req.Method)
	if err != nil {
		e.recorder.ObserveRequest(req.Method, metrics.DispositionRejected)
		return e.fail(ctx, req, err)
	}

	superseded, err := e.table.Register(req)
	if err != nil {
		if cwerr.Is(err, cwerr.ErrInvalidInput) {
			e.recorder.ObserveRequest(req.Method, metrics.DispositionRejected)
			return e.fail(ctx, req, dapp.InvalidParams("request id is required"))
		}
		// Redelivery of a known id: the original outcome stands.
		e.logger.Error("dropping request %s: %v", req.ID, err)
		return nil
	}
	if superseded != nil {
		e.recorder.ObserveRequest(superseded.Request.Method, metrics.DispositionSuperseded)
		if rerr := e.fail(ctx, superseded.Request, dapp.Rejected()); rerr != nil {
			e.logger.Error("notifying superseded request %s: %v", superseded.Request.ID, rerr)
		}
	}

	resp, err := handler.Handle(ctx, req, e.hctx)
	if err != nil {
		if _, terr := e.table.Reject(req.ID, cwerr.Code(err)); terr != nil {
			// Superseded while handling; already answered.
			e.logger.Debug("reject %s: %v", req.ID, terr)
			return nil
		}
		e.recorder.ObserveRequest(req.Method, metrics.DispositionRejected)
		e.logger.Debug("request %s %s rejected: %v", req.ID, req.Method, err)
		return e.fail(ctx, req, err)
	}

	if !resp.IsPending() {
		if _, terr := e.table.Resolve(req.ID); terr != nil {
			// Superseded while handling.
			e.logger.Debug("resolve %s: %v", req.ID, terr)
			return nil
		}
		e.recorder.ObserveRequest(req.Method, metrics.DispositionResolved)
		return e.respond(ctx, Reply{ID: req.ID, Topic: req.Session.Topic, Result: resp.Value})
	}

	if _, terr := e.table.MarkPending(req.ID); terr != nil {
		// Superseded or its session closed while handling.
		e.logger.Debug("mark pending %s: %v", req.ID, terr)
		return nil
	}
	e.recorder.ObserveRequest(req.Method, metrics.DispositionPending)
	e.updatePending()
	if err := e.prompter.Present(ctx, resp.Pending.Prompt); err != nil {
		e.logger.Error("presenting %s: %v", req.ID, err)
		if _, terr := e.table.Reject(req.ID, cwerr.ErrInternal.Code); terr != nil {
			return nil //nolint:nilerr // already finalized elsewhere
		}
		e.updatePending()
		return e.fail(ctx, req, dapp.Internal("prompt unavailable"))
	}
	return nil
}

// OnDecision applies the user's decision to a pending request. A second
// decision for the same id, or one for a request whose handler has not
// answered yet, fails with ErrRequestFinalized and nothing is sent. The approve error, if any, is returned after it was relayed.
func (e *Engine) OnDecision(ctx context.Context, id string, approved bool, payload json.RawMessage) error {
	entry, ok := e.table.Get(id)
	if !ok {
		return cwerr.WithDetails(cwerr.ErrRequestNotFound, map[string]string{"id": id})
	}
	req := entry.Request

	if !approved {
		if _, err := e.table.Decline(id, cwerr.ErrUserRejected.Code); err != nil {
			return err
		}
		e.updatePending()
		e.recorder.ObserveRequest(req.Method, metrics.DispositionRejected)
		return e.fail(ctx, req, dapp.Rejected())
	}

	if _, err := e.table.BeginApprove(id); err != nil {
		return err
	}
	e.updatePending()

	handler, err := e.route(req.ChainID, req.Method)
	var result json.RawMessage
	if err == nil {
		start := e.now()
		result, err = handler.Approve(ctx, dapp.ApproveRequest{Request: req, Payload: payload}, e.hctx)
		e.recorder.ObserveApprove(req.Method, e.now().Sub(start))
	}

	if _, ferr := e.table.Finish(id, err); ferr != nil {
		e.logger.Error("finishing %s: %v", id, ferr)
	}
	if err != nil {
		e.recorder.ObserveRequest(req.Method, metrics.DispositionFailed)
		e.logger.Error("approve %s %s: %v", id, req.Method, err)
		if rerr := e.fail(ctx, req, err); rerr != nil {
			return rerr
		}
		return err
	}
	e.recorder.ObserveRequest(req.Method, metrics.DispositionApproved)
	return e.respond(ctx, Reply{ID: id, Topic: req.Session.Topic, Result: result})
}

// OnSessionClosed rejects the pending requests of a closed session and
// forgets its rate limit bucket.
func (e *Engine) OnSessionClosed(ctx context.Context, topic string) {
	e.limiter.Forget(topic)
	for _, entry := range e.table.RejectSession(topic, "session closed") {
		e.recorder.ObserveRequest(entry.Request.Method, metrics.DispositionRejected)
		if err := e.fail(ctx, entry.Request, dapp.Rejected()); err != nil {
			e.logger.Debug("session %q gone: %v", topic, err)
		}
	}
	e.updatePending()
}

// ExpirePending rejects requests pending for longer than timeout and
// returns how many expired.
func (e *Engine) ExpirePending(ctx context.Context, timeout time.Duration) int {
	cutoff := e.now().Add(-timeout)
	n := 0
	for _, entry := range e.table.Pending() {
		if !entry.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := e.table.Reject(entry.Request.ID, "prompt timeout"); err != nil {
			continue
		}
		n++
		e.recorder.ObserveRequest(entry.Request.Method, metrics.DispositionRejected)
		if err := e.fail(ctx, entry.Request, dapp.Rejected()); err != nil {
			e.logger.Error("expiring %s: %v", entry.Request.ID, err)
		}
	}
	if n > 0 {
		e.updatePending()
	}
	return n
}

// Prune drops final entries older than retention.
func (e *Engine) Prune(retention time.Duration) int {
	return e.table.Prune(e.now().Add(-retention))
}

func (e *Engine) route(chainID, method string) (dapp.Handler, error) {
	mod, err := e.registry.LoadModule(chainID, method)
	if err != nil {
		return nil, err
	}
	handler, ok := mod.Handler(method)
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrUnsupportedMethod, map[string]string{
			"method": method,
			"module": mod.Name(),
		})
	}
	return handler, nil
}

func (e *Engine) fail(ctx context.Context, req *dapp.Request, err error) error {
	return e.respond(ctx, Reply{ID: req.ID, Topic: req.Session.Topic, Error: dapp.ToRPCError(err)})
}

func (e *Engine) respond(ctx context.Context, reply Reply) error {
	if err := e.transport.Respond(ctx, reply); err != nil {
		return cwerr.Wrap(err, "responding to %s", reply.ID)
	}
	return nil
}

func (e *Engine) updatePending() {
	e.recorder.SetPending(len(e.table.Pending()))
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string)        {}
func (nopRecorder) ObserveApprove(string, time.Duration) {}
func (nopRecorder) SetPending(int)                       {}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
