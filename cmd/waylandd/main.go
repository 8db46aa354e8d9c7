package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fnr1r/wayland-go/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "waylandd",
		Short: "Standalone Wayland display server daemon",
		Long: `waylandd runs the display server engine as a daemon.

It listens on a socket under XDG_RUNTIME_DIR, dispatches client
requests on a single-threaded event loop and flushes buffered events
on a fixed cadence. A diagnostic HTTP surface can expose connected
clients, advertised globals, Prometheus metrics and a live message
stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// info prints a plain status line.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
