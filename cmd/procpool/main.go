package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aryankumar/procpool/internal/builtin"
	"github.com/aryankumar/procpool/internal/cli"
	"github.com/aryankumar/procpool/internal/registry"
	"github.com/aryankumar/procpool/internal/util"
	"github.com/aryankumar/procpool/pkg/procpool"
)

func main() {
	// Workers run this same binary, so the registry must be complete before ServeIfWorker
	if err := builtin.Register(registry.Default); err != nil {
		slog.Error("failed to register builtin functions", "error", err)
		os.Exit(2)
	}
	procpool.ServeIfWorker()

	// Setup signal handling for graceful shutdown
	ctx := util.SetupSignalHandler()

	// Execute the CLI
	if err := cli.Execute(ctx); err != nil {
		slog.Debug("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", util.FriendlyError(err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	switch {
	case util.IsCancelled(err):
		return 130
	case util.IsTimeout(err):
		return 124
	default:
		return 1
	}
}
