package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/output"
	"github.com/mrz1836/corewallet/internal/store"
)

const storeTimeout = 10 * time.Second

// openSessionsFn opens the connected-session store, replaced in tests.
//
//nolint:gochecknoglobals // Swappable for tests
var openSessionsFn = app.OpenSessions

// sessionsCmd is the parent command for connected sessions.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage connected dapp sessions",
	Long: `List and revoke the dapp sessions recorded in the session store.

The memory store only lives inside a running serve process; use the redis
store to manage sessions from another shell.`,
}

// sessionsListCmd lists connected sessions.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected sessions",
	Long:  `List the sessions in the session store with their peer and chains.`,
	Example: `  corewallet sessions list
  corewallet sessions list -o json`,
	Args: cobra.NoArgs,
	RunE:  runSessionsList,
}

// sessionsRevokeCmd revokes one session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke <topic>",
	Short: "Revoke a connected session",
	Long:  `Remove one session from the session store by its topic.`,
	Example: `  corewallet sessions revoke 7f3a9c`,
	Args:    cobra.ExactArgs(1),
	RunE:  runSessionsRevoke,
}

// sessionsRevokeAllCmd revokes every session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sessionsRevokeAllCmd = &cobra.Command{
	Use:   "revoke-all",
	Short: "Revoke every connected session",
	Long:  `Remove every session from the session store after confirmation.`,
	Example: `  corewallet sessions revoke-all
  corewallet sessions revoke-all --yes`,
	Args: cobra.NoArgs,
	RunE:  runSessionsRevokeAll,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var sessionsYes bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.GroupID = "dapp"
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRevokeCmd)
	sessionsCmd.AddCommand(sessionsRevokeAllCmd)

	sessionsRevokeAllCmd.Flags().BoolVarP(&sessionsYes, "yes", "y", false, "skip the confirmation prompt")
}

func withSessions(cmd *cobra.Command, fn func(ctx context.Context, s store.ConnectedSessionStore) error) error {
	cc := GetCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, storeTimeout)
	defer cancel()

	s, closeStore, err := openSessionsFn(ctx, cc.Cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if cc.Cfg.Sessions.Store != config.StoreRedis {
		output.Std().Warnf("the %s session store only holds sessions of a running serve", cc.Cfg.Sessions.Store)
	}
	return fn(ctx, s)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	return withSessions(cmd, func(ctx context.Context, s store.ConnectedSessionStore) error {
		list, err := s.List(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if cc.Fmt.IsJSON() {
			if list == nil {
				list = []store.ConnectedSession{}
			}
			return writeJSON(w, list)
		}
		if len(list) == 0 {
			outln(w, "No connected sessions.")
			return nil
		}
		table := output.NewTable("TOPIC", "PEER", "CHAINS", "CONNECTED")
		for _, sess := range list {
			table.AddRow(sess.Topic, peerLabel(sess), strings.Join(sess.ChainIDs, ","), sess.ConnectedAt.Format(time.RFC3339))
		}
		return table.Render(w)
	})
}

func peerLabel(s store.ConnectedSession) string {
	switch {
	case s.PeerName != "" && s.PeerURL != "":
		return s.PeerName + " (" + s.PeerURL + ")"
	case s.PeerName != "":
		return s.PeerName
	default:
		return s.PeerURL
	}
}

func runSessionsRevoke(cmd *cobra.Command, args []string) error {
	return withSessions(cmd, func(ctx context.Context, s store.ConnectedSessionStore) error {
		if err := s.Revoke(ctx, args[0]); err != nil {
			return err
		}
		out(cmd.OutOrStdout(), "Revoked session %s\n", args[0])
		return nil
	})
}

func runSessionsRevokeAll(cmd *cobra.Command, _ []string) error {
	if !sessionsYes && !promptConfirmFn("Revoke every connected session?") {
		return nil
	}
	return withSessions(cmd, func(ctx context.Context, s store.ConnectedSessionStore) error {
		n, err := s.RevokeAll(ctx)
		if err != nil {
			return err
		}
		out(cmd.OutOrStdout(), "Revoked %d sessions\n", n)
		return nil
	})
}
