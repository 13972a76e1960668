package dapp

import (
	"context"
	"encoding/json"
)

// Handler owns a set of methods and handles them in two phases.
//
// Handle performs only read-only checks. It rejects, resolves an already
// satisfied request, or returns a pending response carrying the prompt.
// Approve runs after the user confirms and performs the mutating action.
// It must re-validate the decision payload on its own.
type Handler interface {
	Methods() []string
	Handle(ctx context.Context, req *Request, c *Context) (Response, error)
	Approve(ctx context.Context, a ApproveRequest, c *Context) (json.RawMessage, error)
}

// DecodePayload strictly decodes an approve payload. A malformed payload
// is an internal error: it never came from the peer directly.
func DecodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return Internal("missing approve payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return Internal("malformed approve payload: %v", err)
	}
	return nil
}

// DecodeParams decodes request params into v; failures are invalid params.
func DecodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return InvalidParams("missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return InvalidParams("malformed params: %v", err)
	}
	return nil
}
