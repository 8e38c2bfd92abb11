// Package main provides the entry point for gitpress, which signs in to GitHub from the
// desktop and manages the repository a site is published to.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/router-for-me/gitpress/internal/buildinfo"
	"github.com/router-for-me/gitpress/internal/cmd"
	"github.com/router-for-me/gitpress/internal/logging"
	log "github.com/sirupsen/logrus"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate = Version, Commit, BuildDate
}

func main() {
	// GITPRESS_* overrides may live in ./.env during development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("ignoring unreadable .env file")
	}

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCodeOf(err))
	}
}
