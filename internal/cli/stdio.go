package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mrz1836/corewallet/internal/arbiter"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/store"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Envelope types on the stdio session transport.
const (
	envRequest    = "request"
	envConnect    = "connect"
	envDisconnect = "disconnect"
	envDecision   = "decision"
	envReply      = "reply"
	envPrompt     = "prompt"
	envError      = "error"
)

const maxLineSize = 1 << 20

// envelope is one JSON line in either direction.
type envelope struct {
	Type     string                  `json:"type"`
	Request  *dapp.Request           `json:"request,omitempty"`
	Session  *store.ConnectedSession `json:"session,omitempty"`
	Topic    string                  `json:"topic,omitempty"`
	Decision *decision               `json:"decision,omitempty"`
	Reply    *arbiter.Reply          `json:"reply,omitempty"`
	Prompt   *dapp.Prompt            `json:"prompt,omitempty"`
	Error    *envelopeError          `json:"error,omitempty"`
}

type decision struct {
	ID       string          `json:"id"`
	Approved bool            `json:"approved"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// lineWriter writes envelopes as JSON lines. It is the arbiter transport
// and, in stdio prompt mode, the prompter.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(w)}
}

func (l *lineWriter) write(env envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(env)
}

// Respond implements arbiter.Transport.
func (l *lineWriter) Respond(_ context.Context, reply arbiter.Reply) error {
	return l.write(envelope{Type: envReply, Reply: &reply})
}

// Present implements arbiter.Prompter by handing the prompt to the peer
// UI, which answers with a decision envelope.
func (l *lineWriter) Present(_ context.Context, prompt dapp.Prompt) error {
	return l.write(envelope{Type: envPrompt, Prompt: &prompt})
}

func (l *lineWriter) fail(line int, code string, err error) {
	_ = l.write(envelope{Type: envError, Error: &envelopeError{Code: code, Message: err.Error(), Line: line}})
}

// sessionHost is what the stdio loop drives.
type sessionHost interface {
	OnRequest(ctx context.Context, req *dapp.Request) error
	OnDecision(ctx context.Context, id string, approved bool, payload json.RawMessage) error
	Connect(ctx context.Context, s store.ConnectedSession) error
	RevokeSession(ctx context.Context, topic string) error
}

// stdioServer reads envelopes until EOF or ctx ends. Decision envelopes
// are only accepted when peerDecides is set, that is when the peer UI is
// the prompter; otherwise the peer could approve its own requests.
type stdioServer struct {
	host        sessionHost
	out         *lineWriter
	logger      *config.Logger
	now         func() time.Time
	peerDecides bool
}

func (s *stdioServer) serve(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			n++
			if strings.TrimSpace(line) == "" {
				continue
			}
			s.handleLine(ctx, n, line)
		}
	}
}

func (s *stdioServer) handleLine(ctx context.Context, n int, line string) {
	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		s.out.fail(n, "PARSE_ERROR", err)
		return
	}

	var err error
	switch env.Type {
	case envRequest:
		if env.Request == nil {
			err = errMissing("request")
			break
		}
		err = s.host.OnRequest(ctx, env.Request)
	case envConnect:
		if env.Session == nil || env.Session.Topic == "" {
			err = errMissing("session.topic")
			break
		}
		if env.Session.ConnectedAt.IsZero() {
			env.Session.ConnectedAt = s.now()
		}
		err = s.host.Connect(ctx, *env.Session)
	case envDisconnect:
		if env.Topic == "" {
			err = errMissing("topic")
			break
		}
		err = s.host.RevokeSession(ctx, env.Topic)
	case envDecision:
		if !s.peerDecides {
			err = cwerr.WithSuggestion(
				cwerr.WithDetails(cwerr.ErrPermission, map[string]string{"reason": "decisions are taken on the terminal"}),
				"run serve with --prompt stdio to answer prompts over stdin")
			break
		}
		if env.Decision == nil || env.Decision.ID == "" {
			err = errMissing("decision.id")
			break
		}
		err = s.host.OnDecision(ctx, env.Decision.ID, env.Decision.Approved, env.Decision.Payload)
	default:
		err = cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"type": env.Type, "reason": "unknown envelope type"})
	}
	if err != nil {
		s.logger.Debug("line %d (%s): %v", n, env.Type, err)
		s.out.fail(n, cwerr.Code(err), err)
	}
}

func errMissing(field string) error {
	return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"missing": field})
}
