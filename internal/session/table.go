// Package session tracks the lifecycle of dapp requests between receipt
// and final response. It is the single owner of "which request ids exist
// and in what phase".
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/mrz1836/corewallet/internal/dapp"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// State is the phase of a request.
type State int

// Request states. Approved, Rejected and Superseded are final. A request
// is Handling from Register until its handler answers; only Pending
// requests can be approved.
const (
	StatePending State = iota
	StateApproving
	StateApproved
	StateRejected
	StateSuperseded
	StateHandling
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApproving:
		return "approving"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	case StateSuperseded:
		return "superseded"
	case StateHandling:
		return "handling"
	default:
		return "unknown"
	}
}

// IsFinal reports whether no further transition is possible.
func (s State) IsFinal() bool {
	return s == StateApproved || s == StateRejected || s == StateSuperseded
}

// Entry is a request and its phase. Entries returned by the table are
// copies.
type Entry struct {
	Request   *dapp.Request `json:"request"`
	State     State         `json:"-"`
	Status    string        `json:"state"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Table is the owned map of request id to entry. Every state change goes
// through transition.
type Table struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	deepLink string // id of the newest deep-link request
	now      func() time.Time
}

// Option configures a Table.
type Option func(*Table)

// WithClock sets the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// NewTable creates an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{entries: make(map[string]*Entry), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register records a new request in the handling state. A deep-link
// request supersedes any deep-link request still handling or pending; the
// superseded entry is returned so its session can be told. Re-delivering a
// known id fails.
func (t *Table) Register(req *dapp.Request) (*Entry, error) {
	if req == nil || req.ID == "" {
		return nil, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "request id is required"})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[req.ID]; ok {
		return nil, cwerr.WithDetails(cwerr.ErrRequestFinalized, map[string]string{
			"id":    req.ID,
			"state": existing.State.String(),
		})
	}

	now := t.now()
	t.entries[req.ID] = &Entry{Request: req, State: StateHandling, CreatedAt: now, UpdatedAt: now}

	if req.Origin != dapp.OriginDeepLink {
		return nil, nil
	}
	prev := t.deepLink
	t.deepLink = req.ID
	if prev == "" {
		return nil, nil
	}
	superseded, err := t.transition(prev, StateSuperseded, "superseded by "+req.ID, StateHandling, StatePending)
	if err != nil {
		// An approve already under way is not cancelled.
		return nil, nil //nolint:nilerr // nothing to supersede
	}
	return superseded, nil
}

// MarkPending moves a handled request to pending once its prompt is
// about to be shown.
func (t *Table) MarkPending(id string) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(id, StatePending, "", StateHandling)
}

// BeginApprove moves a pending request to approving and returns it. Only
// one caller can win for a given id.
func (t *Table) BeginApprove(id string) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(id, StateApproving, "", StatePending)
}

// Finish finalizes an approving request: approved when approveErr is nil,
// rejected otherwise.
func (t *Table) Finish(id string, approveErr error) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if approveErr != nil {
		return t.transition(id, StateRejected, cwerr.Code(approveErr), StateApproving)
	}
	return t.transition(id, StateApproved, "", StateApproving)
}

// Resolve finalizes a request answered without a prompt.
func (t *Table) Resolve(id string) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(id, StateApproved, "", StateHandling, StatePending)
}

// Reject finalizes a handling or pending request as rejected.
func (t *Table) Reject(id, reason string) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(id, StateRejected, reason, StateHandling, StatePending)
}

// Decline finalizes a pending request the user turned down. A request
// still being handled has no prompt yet and cannot be declined.
func (t *Table) Decline(id, reason string) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(id, StateRejected, reason, StatePending)
}

// RejectSession rejects every open request of a session topic and
// returns them.
func (t *Table) RejectSession(topic, reason string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Entry
	for id, e := range t.entries {
		if e.Request.Session.Topic != topic {
			continue
		}
		if rejected, err := t.transition(id, StateRejected, reason, StateHandling, StatePending); err == nil {
			out = append(out, *rejected)
		}
	}
	sortEntries(out)
	return out
}

// Get returns a copy of one entry.
func (t *Table) Get(id string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.copy(), true
}

// Snapshot returns copies of all entries, oldest first.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.copy())
	}
	sortEntries(out)
	return out
}

// Pending returns copies of the entries awaiting a decision.
func (t *Table) Pending() []Entry {
	all := t.Snapshot()
	out := all[:0]
	for _, e := range all {
		if e.State == StatePending {
			out = append(out, e)
		}
	}
	return out
}

// Prune drops final entries last updated before cutoff and returns how
// many were removed. A pruned id could be registered again.
func (t *Table) Prune(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, e := range t.entries {
		if e.State.IsFinal() && e.UpdatedAt.Before(cutoff) {
			delete(t.entries, id)
			n++
		}
	}
	return n
}

// transition is the only place entries change state. The caller holds mu.
func (t *Table) transition(id string, to State, reason string, from ...State) (*Entry, error) {
	e, ok := t.entries[id]
	if !ok {
		return nil, cwerr.WithDetails(cwerr.ErrRequestNotFound, map[string]string{"id": id})
	}
	allowed := false
	for _, f := range from {
		if e.State == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, cwerr.WithDetails(cwerr.ErrRequestFinalized, map[string]string{
			"id":    id,
			"state": e.State.String(),
		})
	}

	e.State = to
	e.Reason = reason
	e.UpdatedAt = t.now()
	if id == t.deepLink && to.IsFinal() {
		t.deepLink = ""
	}
	out := e.copy()
	return &out, nil
}

func (e *Entry) copy() Entry {
	out := *e
	out.Status = e.State.String()
	return out
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Request.ID < entries[j].Request.ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
