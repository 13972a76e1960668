// Package main is the entry point for the corewallet CLI.
package main

import (
	"os"

	"github.com/mrz1836/corewallet/internal/cli"
)

// Set at build time through -ldflags -X.
//
//nolint:gochecknoglobals // build metadata injected at link time
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetBuildInfo(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
