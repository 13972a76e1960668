package handlers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/dapp/handlers"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

func TestChainInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		want   string
	}{
		{handlers.MethodEthChainID, `"0xa869"`},
		{handlers.MethodEthAccounts, `["` + activeAddr + `"]`},
		{handlers.MethodEthRequestAccounts, `["` + activeAddr + `"]`},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t, caipFuji)
			resp, err := handlers.ChainInfo{}.Handle(context.Background(), request(tt.method, caipFuji, nil), e.ctx)
			require.NoError(t, err)
			assert.False(t, resp.IsPending())
			assert.JSONEq(t, tt.want, string(resp.Value))
		})
	}
}

func TestChainInfo_NonEVMActive(t *testing.T) {
	t.Parallel()
	e := newEnv(t, caipFujiX)
	_, err := handlers.ChainInfo{}.Handle(context.Background(), request(handlers.MethodEthChainID, caipFuji, nil), e.ctx)
	require.ErrorIs(t, err, cwerr.ErrInvalidParams)
}

func TestReadOnlyHandlers_NoApprove(t *testing.T) {
	t.Parallel()
	e := newEnv(t, caipFuji)
	_, err := handlers.ChainInfo{}.Approve(context.Background(), dapp.ApproveRequest{}, e.ctx)
	require.ErrorIs(t, err, cwerr.ErrInternal)
	_, err = handlers.XPAccounts{}.Approve(context.Background(), dapp.ApproveRequest{}, e.ctx)
	require.ErrorIs(t, err, cwerr.ErrInternal)
}

func TestXPAccounts(t *testing.T) {
	t.Parallel()
	e := newEnv(t, caipFuji)
	resp, err := handlers.XPAccounts{}.Handle(context.Background(),
		request(handlers.MethodAvalancheGetAccount, caipFujiX, nil), e.ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"main","index":0,"addressC":"`+activeAddr+`","addressAVM":"X-`+xp01+`","active":true}]`,
		string(resp.Value))
}

func TestHandlerSets(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for _, h := range append(handlers.EVM(), handlers.Avalanche()...) {
		for _, m := range h.Methods() {
			assert.False(t, seen[m], "method %s registered twice", m)
			seen[m] = true
		}
	}
	assert.True(t, seen[handlers.MethodSwitchChain])
	assert.True(t, seen["eth_signTypedData_v4"])
	assert.True(t, seen[handlers.MethodRemoveContact])
}
