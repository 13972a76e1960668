// Package store keeps the connected dapp sessions, in memory or in Redis.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// ConnectedSession is a peer the wallet has an open session with.
type ConnectedSession struct {
	Topic       string    `json:"topic"`
	PeerName    string    `json:"peer_name"`
	PeerURL     string    `json:"peer_url,omitempty"`
	Icons       []string  `json:"icons,omitempty"`
	ChainIDs    []string  `json:"chain_ids,omitempty"`
	Accounts    []string  `json:"accounts,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the session expired at now.
func (s ConnectedSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ConnectedSessionStore lists and revokes connected sessions.
type ConnectedSessionStore interface {
	Save(ctx context.Context, s ConnectedSession) error
	List(ctx context.Context) ([]ConnectedSession, error)
	Revoke(ctx context.Context, topic string) error
	RevokeAll(ctx context.Context) (int, error)
}

// ErrSessionNotFound is returned when revoking an unknown topic.
var ErrSessionNotFound = &cwerr.WalletError{
	Code:     "SESSION_NOT_FOUND",
	Message:  "session not found",
	ExitCode: cwerr.ExitNotFound,
}

func checkTopic(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "session topic is required"})
	}
	return nil
}

func notFound(topic string) error {
	return cwerr.WithDetails(ErrSessionNotFound, map[string]string{"topic": topic})
}

func sortSessions(s []ConnectedSession) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].ConnectedAt.Equal(s[j].ConnectedAt) {
			return s[i].Topic < s[j].Topic
		}
		return s[i].ConnectedAt.Before(s[j].ConnectedAt)
	})
}
