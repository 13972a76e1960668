// Package dapp defines inbound dapp requests, the two-phase handler
// contract and the error vocabulary relayed back to the external session.
package dapp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Origin is how a request reached the wallet.
type Origin string

// Request origins.
const (
	OriginSession  Origin = "session"
	OriginDeepLink Origin = "deeplink"
)

// SessionMetadata identifies the external peer of a request.
type SessionMetadata struct {
	Topic    string   `json:"topic"`
	PeerName string   `json:"peer_name,omitempty"`
	PeerURL  string   `json:"peer_url,omitempty"`
	Icons    []string `json:"icons,omitempty"`
}

// Request is one inbound call. It is not modified after receipt.
type Request struct {
	ID         string          `json:"id"`
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params,omitempty"`
	ChainID    string          `json:"chain_id"`
	Session    SessionMetadata `json:"session"`
	Origin     Origin          `json:"origin"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewRequestID returns a random request id for requests that arrive
// without one (deep links).
func NewRequestID() string {
	return uuid.NewString()
}

// Prompt is what the confirmation surface shows for a pending request.
// Payload is the proposed decision data; the user may return it edited.
type Prompt struct {
	RequestID string          `json:"request_id"`
	Method    string          `json:"method"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary,omitempty"`
	Peer      SessionMetadata `json:"peer"`
	Payload   json.RawMessage `json:"payload"`
}

// PendingToken marks a request suspended awaiting a user decision.
type PendingToken struct {
	Token     string `json:"token"`
	RequestID string `json:"request_id"`
	Prompt    Prompt `json:"prompt"`
}

// Response is the outcome of Handle: either a value resolved without a
// prompt or a pending token.
type Response struct {
	Value   json.RawMessage
	Pending *PendingToken
}

// IsPending reports whether the request awaits a decision.
func (r Response) IsPending() bool { return r.Pending != nil }

// Resolved returns an auto-approved response carrying v.
func Resolved(v any) (Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Response{}, Internal("encoding result: %v", err)
	}
	return Response{Value: raw}, nil
}

// Pending returns a pending response for req with the given prompt.
func Pending(req *Request, title, summary string, payload any) (Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Response{}, Internal("encoding prompt payload: %v", err)
	}
	return Response{Pending: &PendingToken{
		Token:     uuid.NewString(),
		RequestID: req.ID,
		Prompt: Prompt{
			RequestID: req.ID,
			Method:    req.Method,
			Title:     title,
			Summary:   summary,
			Peer:      req.Session,
			Payload:   raw,
		},
	}}, nil
}

// ApproveRequest carries a user decision to Approve. Payload is the
// decision data returned by the confirmation surface and is untrusted.
type ApproveRequest struct {
	Request *Request
	Payload json.RawMessage
}
