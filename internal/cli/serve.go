package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/store"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Prompt modes of serve.
const (
	promptModeTTY   = "tty"
	promptModeStdio = "stdio"
)

const (
	promptQueueSize   = 32
	metricsReadHeader = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// serveCmd runs the wallet as a session host.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dapp sessions over stdin/stdout",
	Long: `Run the wallet as a session host. Envelopes are read from stdin and written
to stdout, one JSON object per line:

  {"type":"connect","session":{"topic":"t1","peer_name":"dapp","chain_ids":["eip155:43114"]}}
  {"type":"request","request":{"id":"1","method":"eth_chainId","params":[],"chain_id":"eip155:43114","session":{"topic":"t1"}}}
  {"type":"decision","decision":{"id":"2","approved":true,"payload":{...}}}
  {"type":"disconnect","topic":"t1"}

Requests that need approval are shown on the terminal (--prompt tty) or
written to stdout as prompt envelopes for the peer UI (--prompt stdio).
Decision envelopes are refused in tty mode.
The keystore password is read from the terminal.`,
	Example: `  corewallet serve
  corewallet serve --prompt stdio --housekeep-interval 10s`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	servePromptMode string
	serveHousekeep  time.Duration
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.GroupID = "dapp"

	serveCmd.Flags().StringVar(&servePromptMode, "prompt", promptModeTTY, "where approvals are asked: tty or stdio")
	serveCmd.Flags().DurationVar(&serveHousekeep, "housekeep-interval", 30*time.Second, "how often stale prompts expire")
	serveCmd.Flags().BoolVar(&usePassphrase, "passphrase", false, "prompt for a BIP39 passphrase")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	if servePromptMode != promptModeTTY && servePromptMode != promptModeStdio {
		return invalidFlag("prompt", servePromptMode, "must be tty or stdio")
	}
	if serveHousekeep <= 0 {
		return invalidFlag("housekeep-interval", serveHousekeep.String(), "must be positive")
	}

	loc, err := openSigner(cc)
	if err != nil {
		return err
	}
	defer loc.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lw := newLineWriter(cmd.OutOrStdout())
	opts := app.Options{
		Config:    cc.Cfg,
		Logger:    cc.Log,
		Signer:    loc,
		Accounts:  loc,
		Transport: lw,
		Prompter:  lw,
	}

	var tp *ttyPrompter
	if servePromptMode == promptModeTTY {
		tty, openErr := os.OpenFile(ttyPath, os.O_RDWR, 0)
		if openErr != nil {
			return cwerr.WithSuggestion(
				cwerr.Wrap(openErr, "opening terminal"),
				"use --prompt stdio when no terminal is attached")
		}
		defer func() { _ = tty.Close() }()
		tp = newTTYPrompter(tty, tty, cc.Log)
		opts.Prompter = tp
	}

	a, err := cc.NewApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if tp != nil {
		tp.decide = a.Engine.OnDecision
		go tp.run(ctx)
	}
	go a.Housekeep(ctx, serveHousekeep)

	if cc.Cfg.Metrics.Enabled {
		srv := startMetrics(cc.Cfg.Metrics.Listen, a.Metrics.Handler(), cc.Log)
		defer shutdownMetrics(srv, cc.Log)
	}

	cc.Log.Info("serving sessions, prompt mode %s", servePromptMode)
	srv := &stdioServer{
		host:        appHost{a: a},
		out:         lw,
		logger:      cc.Log,
		now:         time.Now,
		peerDecides: servePromptMode == promptModeStdio,
	}
	if err := srv.serve(ctx, cmd.InOrStdin()); err != nil {
		return cwerr.Wrap(err, "reading stdin")
	}
	cc.Log.Info("session host stopped")
	return nil
}

// appHost drives the assembled wallet from the stdio loop.
type appHost struct {
	a *app.App
}

func (h appHost) OnRequest(ctx context.Context, req *dapp.Request) error {
	return h.a.Engine.OnRequest(ctx, req)
}

func (h appHost) OnDecision(ctx context.Context, id string, approved bool, payload json.RawMessage) error {
	return h.a.Engine.OnDecision(ctx, id, approved, payload)
}

func (h appHost) Connect(ctx context.Context, s store.ConnectedSession) error {
	return h.a.Connect(ctx, s)
}

func (h appHost) RevokeSession(ctx context.Context, topic string) error {
	return h.a.RevokeSession(ctx, topic)
}

func startMetrics(addr string, handler http.Handler, log *config.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeader,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server: %v", err)
		}
	}()
	log.Info("metrics listening on %s", addr)
	return srv
}

func shutdownMetrics(srv *http.Server, log *config.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("metrics shutdown: %v", err)
	}
}

// decideFunc applies a user decision to a pending request.
type decideFunc func(ctx context.Context, id string, approved bool, payload json.RawMessage) error

// ttyPrompter asks approval questions on the terminal one at a time.
type ttyPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	queue  chan dapp.Prompt
	decide decideFunc
	logger *config.Logger
}

func newTTYPrompter(in io.Reader, out io.Writer, log *config.Logger) *ttyPrompter {
	return &ttyPrompter{
		in:     bufio.NewReader(in),
		out:    out,
		queue:  make(chan dapp.Prompt, promptQueueSize),
		logger: log,
	}
}

// Present implements arbiter.Prompter. It never blocks; a full queue
// rejects the prompt.
func (p *ttyPrompter) Present(_ context.Context, prompt dapp.Prompt) error {
	select {
	case p.queue <- prompt:
		return nil
	default:
		return cwerr.WithDetails(cwerr.ErrLimitExceeded, map[string]string{"reason": "too many prompts waiting"})
	}
}

func (p *ttyPrompter) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case prompt := <-p.queue:
			approved, err := p.ask(prompt)
			if err != nil {
				p.logger.Error("reading answer for %s: %v", prompt.RequestID, err)
				return
			}
			if err := p.decide(ctx, prompt.RequestID, approved, prompt.Payload); err != nil {
				if cwerr.Is(err, cwerr.ErrRequestFinalized) || cwerr.Is(err, cwerr.ErrRequestNotFound) {
					out(p.out, "Request %s is no longer pending.\n", prompt.RequestID)
					continue
				}
				p.logger.Error("decision for %s: %v", prompt.RequestID, err)
			}
		}
	}
}

func (p *ttyPrompter) ask(prompt dapp.Prompt) (bool, error) {
	out(p.out, "\n%s\n", prompt.Title)
	if peer := prompt.Peer.PeerName; peer != "" {
		out(p.out, "  From:    %s %s\n", peer, prompt.Peer.PeerURL)
	}
	out(p.out, "  Method:  %s\n", prompt.Method)
	if prompt.Summary != "" {
		out(p.out, "  Details: %s\n", prompt.Summary)
	}
	out(p.out, "Approve? [y/N]: ")

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
