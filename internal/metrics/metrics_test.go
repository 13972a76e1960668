package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	t.Parallel()
	m := New()

	m.ObserveRequest("eth_sendTransaction", DispositionPending)
	m.ObserveRequest("eth_sendTransaction", DispositionPending)
	m.ObserveRequest("eth_sendTransaction", DispositionApproved)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("eth_sendTransaction", DispositionPending)), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("eth_sendTransaction", DispositionApproved)), 0.001)
}

func TestMetrics_ObserveValidation(t *testing.T) {
	t.Parallel()
	m := New()

	m.ObserveValidation("EVM", "")
	m.ObserveValidation("avm", "INSUFFICIENT_BALANCE")

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("evm", "ok")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("avm", "INSUFFICIENT_BALANCE")), 0.001)
}

func TestMetrics_RecordRPCCall(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordRPCCall("evm", nil)
	m.RecordRPCCall("evm", cwerr.ErrNetworkError)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("evm", "ok")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("evm", "error")), 0.001)
}

func TestMetrics_PendingAndApprove(t *testing.T) {
	t.Parallel()
	m := New()

	m.SetPending(3)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.pending), 0.001)

	m.ObserveApprove("personal_sign", 250*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.approveTiming))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()
	m := New()
	m.ObserveRequest("eth_chainId", DispositionResolved)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `corewallet_dapp_requests_total{disposition="resolved",method="eth_chainId"} 1`)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	t.Parallel()
	a, b := New(), New()
	a.ObserveRequest("x", DispositionResolved)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.requests.WithLabelValues("x", DispositionResolved)), 0.001)
	assert.NotSame(t, a.Registry(), b.Registry())
}
