// Package main is the entrypoint for the chkconf CLI.
// chkconf resolves build-time feature flags to a consistent state under a
// set of dependency rules.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/canonica-labs/chkconf/internal/cli"
)

var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.New().ExecuteContext(ctx)
	stop()
	os.Exit(code)
}
