package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/version"
)

const (
	devVersionString = version.Dev
	releaseOwner     = "mrz1836"
	releaseRepo      = "corewallet"
	releaseTimeout   = 15 * time.Second
)

// versionCheckerFn builds the release checker, replaced in tests.
//
//nolint:gochecknoglobals // Swappable for tests
var versionCheckerFn = func() (*version.Checker, error) {
	return version.NewChecker(releaseOwner, releaseRepo)
}

// versionCmd prints the build stamp.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show the corewallet build version.

With --check the latest published release is fetched and compared.`,
	Example: `  corewallet version
  corewallet version --check -o json`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var versionCheck bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.GroupID = "config"
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	current := buildInfo.Version
	if current == "" {
		current = devVersionString
	}

	report := versionReport{Version: current, Commit: buildInfo.Commit, Date: buildInfo.Date}

	var check *version.Info
	if versionCheck {
		checker, err := versionCheckerFn()
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, releaseTimeout)
		defer cancel()
		if check, err = checker.Check(ctx, current); err != nil {
			return err
		}
		report.Latest = check.Latest
		report.URL = check.URL
		report.UpdateAvailable = &check.IsNewer
	}

	return cc.Fmt.Emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
		return writeVersionText(w, buildInfo, check)
	})
}

type versionReport struct {
	Version         string `json:"version"`
	Commit          string `json:"commit,omitempty"`
	Date            string `json:"date,omitempty"`
	Latest          string `json:"latest,omitempty"`
	URL             string `json:"url,omitempty"`
	UpdateAvailable *bool  `json:"update_available,omitempty"`
}

func writeVersionText(w io.Writer, info BuildInfo, check *version.Info) error {
	outln(w, "corewallet", formatVersion(info))
	if check == nil {
		return nil
	}
	if !check.IsNewer {
		outln(w, "You are running the latest release.")
		return nil
	}
	out(w, "A newer release is available: %s\n", check.Latest)
	if check.URL != "" {
		out(w, "  %s\n", check.URL)
	}
	return nil
}
