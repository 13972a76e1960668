package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/session"
	"github.com/mrz1836/corewallet/internal/signer"
	"github.com/mrz1836/corewallet/internal/store"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

type decisionRecord struct {
	id       string
	approved bool
	payload  string
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTTYPrompter_Run(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	p := newTTYPrompter(strings.NewReader("y\nno\nYES\n"), &out, config.NullLogger())

	decisions := make(chan decisionRecord, 3)
	p.decide = func(_ context.Context, id string, approved bool, payload json.RawMessage) error {
		decisions <- decisionRecord{id: id, approved: approved, payload: string(payload)}
		if id == "3" {
			return cwerr.ErrRequestFinalized
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.run(ctx)

	prompts := []dapp.Prompt{
		{RequestID: "1", Method: "eth_sendTransaction", Title: "Send AVAX", Payload: json.RawMessage(`{"to":"0x1"}`)},
		{RequestID: "2", Method: "personal_sign", Title: "Sign message", Peer: dapp.SessionMetadata{PeerName: "dex"}},
		{RequestID: "3", Method: "avalanche_sendTransaction", Title: "Send on X-Chain", Summary: "1 AVAX"},
	}
	for _, pr := range prompts {
		require.NoError(t, p.Present(ctx, pr))
	}

	var got []decisionRecord
	for range prompts {
		select {
		case d := <-decisions:
			got = append(got, d)
		case <-time.After(2 * time.Second):
			t.Fatal("prompter did not decide")
		}
	}

	assert.Equal(t, []decisionRecord{
		{id: "1", approved: true, payload: `{"to":"0x1"}`},
		{id: "2", approved: false},
		{id: "3", approved: true},
	}, got)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Request 3 is no longer pending.")
	}, 2*time.Second, 10*time.Millisecond)
	text := out.String()
	assert.Contains(t, text, "Send AVAX")
	assert.Contains(t, text, "From:    dex")
	assert.Contains(t, text, "Details: 1 AVAX")
	assert.Contains(t, text, "Approve? [y/N]: ")
}

func TestTTYPrompter_PresentQueueFull(t *testing.T) {
	t.Parallel()

	p := newTTYPrompter(strings.NewReader(""), &bytes.Buffer{}, config.NullLogger())
	for i := 0; i < promptQueueSize; i++ {
		require.NoError(t, p.Present(context.Background(), dapp.Prompt{RequestID: "x"}))
	}
	err := p.Present(context.Background(), dapp.Prompt{RequestID: "overflow"})
	require.Error(t, err)
	assert.True(t, cwerr.Is(err, cwerr.ErrLimitExceeded))
}

func TestTTYPrompter_ClosedInputStops(t *testing.T) {
	t.Parallel()

	p := newTTYPrompter(strings.NewReader(""), &bytes.Buffer{}, config.NullLogger())
	p.decide = func(context.Context, string, bool, json.RawMessage) error {
		t.Error("no decision expected without an answer")
		return nil
	}
	require.NoError(t, p.Present(context.Background(), dapp.Prompt{RequestID: "1"}))

	done := make(chan struct{})
	go func() {
		p.run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on closed input")
	}
}

func TestTTYPrompter_AnswerWithoutNewline(t *testing.T) {
	t.Parallel()

	p := newTTYPrompter(strings.NewReader("y"), &bytes.Buffer{}, config.NullLogger())
	approved, err := p.ask(dapp.Prompt{RequestID: "1", Title: "Switch chain"})
	require.NoError(t, err)
	assert.True(t, approved)
}

// NOT parallel: mutates package-level flag variables.
func TestRunServe_InvalidFlags(t *testing.T) {
	setupTestEnv(t)
	origMode, origInterval := servePromptMode, serveHousekeep
	t.Cleanup(func() { servePromptMode, serveHousekeep = origMode, origInterval })

	servePromptMode, serveHousekeep = "email", time.Second
	cmd, _ := newTestCmd()
	err := runServe(cmd, nil)
	require.Error(t, err)
	assert.True(t, cwerr.Is(err, cwerr.ErrInvalidInput))

	servePromptMode, serveHousekeep = promptModeStdio, 0
	err = runServe(cmd, nil)
	require.Error(t, err)
	assert.True(t, cwerr.Is(err, cwerr.ErrInvalidInput))

	servePromptMode, serveHousekeep = promptModeStdio, time.Second
	err = runServe(cmd, nil)
	require.Error(t, err)
	assert.True(t, cwerr.Is(err, cwerr.ErrNotFound), "missing keystore, got %v", err)
}

// NOT parallel: reads the package-level config.
func TestServe_TTYModeRefusesPeerDecisions(t *testing.T) {
	setupTestEnv(t)

	loc, err := signer.FromMnemonic(testMnemonic, "", signerOptions(cfg))
	require.NoError(t, err)
	t.Cleanup(loc.Close)

	var out syncBuffer
	lw := newLineWriter(&out)
	tp := newTTYPrompter(blockingReader{}, io.Discard, config.NullLogger())

	a, err := app.New(context.Background(), app.Options{
		Config:   cfg,
		Logger:   config.NullLogger(),
		Signer:   loc,
		Accounts: loc,
		Backends: &app.Backends{
			EVM: &fakeEVM{balance: big.NewInt(0)},
			X:   &fakeUTXO{},
			P:   &fakeUTXO{},
		},
		Sessions:  store.NewMemory(),
		Transport: lw,
		Prompter:  tp,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := &stdioServer{host: appHost{a: a}, out: lw, logger: config.NullLogger(), now: time.Now}
	input := strings.Join([]string{
		`{"type":"request","request":{"id":"1","method":"personal_sign","params":["0x68656c6c6f","` + testAddressC + `"],"chain_id":"` + cfg.Networks.C.CAIP2 + `","session":{"topic":"t"}}}`,
		`{"type":"decision","decision":{"id":"1","approved":true,"payload":{"kind":"personal_sign","address":"` + testAddressC + `","data":"0x68656c6c6f"}}}`,
	}, "\n")
	require.NoError(t, srv.serve(context.Background(), strings.NewReader(input)))

	entry, ok := a.Engine.Table().Get("1")
	require.True(t, ok)
	assert.Equal(t, session.StatePending, entry.State, "only the terminal may decide")
	assert.Len(t, tp.queue, 1)

	var buf bytes.Buffer
	buf.WriteString(out.String())
	envs := readEnvelopes(t, &buf)
	require.Len(t, envs, 1)
	assert.Equal(t, envError, envs[0].Type)
	require.NotNil(t, envs[0].Error)
	assert.Equal(t, cwerr.ErrPermission.Code, envs[0].Error.Code)
	assert.Equal(t, 2, envs[0].Error.Line)
}
