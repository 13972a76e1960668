package handlers

import (
	"context"
	"encoding/json"

	"github.com/mrz1836/corewallet/internal/dapp"
)

// MethodRemoveContact deletes an address book entry.
const MethodRemoveContact = "avalanche_removeContact"

type removeContactPayload struct {
	ID string `json:"id"`
}

// RemoveContact deletes a contact after confirmation.
type RemoveContact struct{}

// Methods implements dapp.Handler.
func (RemoveContact) Methods() []string { return []string{MethodRemoveContact} }

// Handle fails immediately for an unknown contact.
func (RemoveContact) Handle(ctx context.Context, req *dapp.Request, c *dapp.Context) (dapp.Response, error) {
	list, err := paramList(req.Params, 1)
	if err != nil {
		return dapp.Response{}, err
	}
	var p removeContactPayload
	if err = json.Unmarshal(list[0], &p); err != nil || p.ID == "" {
		return dapp.Response{}, dapp.InvalidParams("contact id is required")
	}
	contact, err := lookupContact(ctx, c, p.ID)
	if err != nil {
		return dapp.Response{}, err
	}
	return dapp.Pending(req, "Remove contact", "Remove "+contact.Name+" from contacts", p)
}

// Approve re-checks the contact still exists and removes it.
func (RemoveContact) Approve(ctx context.Context, a dapp.ApproveRequest, c *dapp.Context) (json.RawMessage, error) {
	var p removeContactPayload
	if err := dapp.DecodePayload(a.Payload, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, dapp.Internal("contact id missing from payload")
	}
	if _, err := lookupContact(ctx, c, p.ID); err != nil {
		return nil, err
	}
	if err := c.Contacts.Remove(ctx, p.ID); err != nil {
		return nil, dapp.Internal("removing contact: %v", err)
	}
	return json.RawMessage("true"), nil
}

func lookupContact(ctx context.Context, c *dapp.Context, id string) (*dapp.Contact, error) {
	if c.Contacts == nil {
		return nil, dapp.Internal("no contact store")
	}
	contact, ok, err := c.Contacts.Get(ctx, id)
	if err != nil {
		return nil, dapp.Internal("loading contact: %v", err)
	}
	if !ok {
		return nil, dapp.NotFound("contact", id)
	}
	return contact, nil
}
