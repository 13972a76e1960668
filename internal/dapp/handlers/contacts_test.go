package handlers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/dapp/handlers"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

func TestRemoveContact(t *testing.T) {
	t.Parallel()
	e := newEnv(t, caipFuji)
	req := request(handlers.MethodRemoveContact, caipFujiX, []map[string]string{{"id": "c1"}})

	resp, err := handlers.RemoveContact{}.Handle(context.Background(), req, e.ctx)
	require.NoError(t, err)
	require.True(t, resp.IsPending())
	assert.Contains(t, resp.Pending.Prompt.Summary, "Alice")
	assert.Contains(t, e.contacts.contacts, "c1", "handle must not remove")

	out, err := handlers.RemoveContact{}.Approve(context.Background(), approveWithPrompt(req, resp), e.ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(out))
	assert.NotContains(t, e.contacts.contacts, "c1")

	_, err = handlers.RemoveContact{}.Approve(context.Background(), approveWithPrompt(req, resp), e.ctx)
	require.ErrorIs(t, err, cwerr.ErrResourceNotFound)
}

func TestRemoveContact_HandleErrors(t *testing.T) {
	t.Parallel()
	e := newEnv(t, caipFuji)

	_, err := handlers.RemoveContact{}.Handle(context.Background(),
		request(handlers.MethodRemoveContact, caipFujiX, []map[string]string{{"id": "missing"}}), e.ctx)
	require.ErrorIs(t, err, cwerr.ErrResourceNotFound)

	_, err = handlers.RemoveContact{}.Handle(context.Background(),
		request(handlers.MethodRemoveContact, caipFujiX, []map[string]string{{}}), e.ctx)
	require.ErrorIs(t, err, cwerr.ErrInvalidParams)
}
