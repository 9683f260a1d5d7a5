// Command shmimg provisions, inspects and snapshots grouped shared-memory
// image segments.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cmdMain = &cobra.Command{
	Use:               "shmimg",
	Short:             "Grouped shared-memory image segments",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	fs := cmdMain.PersistentFlags()
	fs.String("config", "", "Config file (yaml, json or toml)")
	fs.String("dir", "", "Directory holding segments (default /dev/shm or the OS temp dir)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "text", "Log format (text or json)")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmdMain.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
