package main

import (
	goerrors "errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/fnr1r/wayland-go/internal/config"
	"github.com/fnr1r/wayland-go/internal/errors"
	"github.com/fnr1r/wayland-go/pkg/inspect"
	"github.com/fnr1r/wayland-go/pkg/server"
	"github.com/fnr1r/wayland-go/pkg/telemetry"
)

func serveCmd() *cobra.Command {
	var (
		configPath  string
		socketName  string
		inspectAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the display server",
		Long: `Run the display server until interrupted.

The socket lives under XDG_RUNTIME_DIR. Without --socket the first
free wayland-N name is claimed, so several servers can coexist for
one user.

Examples:
  waylandd serve
  waylandd serve --socket=wayland-1
  waylandd serve --inspect=localhost:9222`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, socketName, inspectAddr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to waylandd.json (default: working directory)")
	cmd.Flags().StringVarP(&socketName, "socket", "S", "", "Socket name (default: first free wayland-N)")
	cmd.Flags().StringVarP(&inspectAddr, "inspect", "i", "", "Enable the diagnostic HTTP surface on this address")

	return cmd
}

func runServe(configPath, socketName, inspectAddr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	// Flags override file settings.
	if socketName != "" {
		cfg.SocketName = socketName
	}
	if inspectAddr != "" {
		cfg.Inspect.Enabled = true
		cfg.Inspect.Addr = inspectAddr
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	loop, err := server.NewEventLoop()
	if err != nil {
		return errors.New("E301").Wrap(err)
	}
	defer loop.Close()

	display := server.NewDisplay(loop)
	defer display.Close()

	var socketPath string
	if cfg.SocketName != "" {
		socketPath, err = display.AddSocket(cfg.SocketName)
	} else {
		socketPath, err = display.AddSocketAuto()
	}
	if err != nil {
		return socketError(err)
	}
	success("listening on %s", socketPath)

	if cfg.Telemetry.Metrics {
		loop.AddHooks(telemetry.Prometheus(
			telemetry.WithNamespace(cfg.Telemetry.Namespace),
		))
	}
	if cfg.Telemetry.Tracing {
		loop.AddHooks(telemetry.Tracing())
	}

	if cfg.Inspect.Enabled {
		ins := inspect.New(loop)
		defer ins.Close()
		loop.AddHooks(ins.Hooks())
		go func() {
			if err := http.ListenAndServe(cfg.Inspect.Addr, ins.Router()); err != nil {
				logger.Error("inspect listener failed", "error", err)
			}
		}()
		info("inspect surface on http://%s", cfg.Inspect.Addr)
	}

	if err := registerHeartbeat(loop); err != nil {
		return errors.New("E301").Wrap(err)
	}

	// Buffered events reach clients on a fixed cadence; the engine never
	// flushes on its own.
	flusher, err := loop.AddTimerSource(func(h *server.LoopHandle, _ uint64) {
		display.FlushClients()
	})
	if err != nil {
		return errors.New("E301").Wrap(err)
	}
	defer flusher.Remove()
	if err := flusher.SetInterval(cfg.FlushIntervalDuration()); err != nil {
		return errors.New("E301").Wrap(err)
	}

	for _, sig := range []unix.Signal{unix.SIGINT, unix.SIGTERM} {
		src, err := loop.AddSignalSource(sig, func(h *server.LoopHandle, sig unix.Signal) {
			logger.Info("shutting down", "signal", sig.String())
			h.EventLoop().Stop()
		})
		if err != nil {
			return errors.New("E301").Wrap(err)
		}
		defer src.Remove()
	}

	logger.Info("serving", "socket", socketPath, "flush_interval", cfg.FlushInterval)
	if err := loop.Run(); err != nil {
		return errors.New("E302").Wrap(err)
	}
	display.FlushClients()
	return nil
}

// loadConfig resolves the configuration from an explicit path or the
// working directory.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.New("E101").Wrap(err)
	}
	return config.Load(dir)
}

// newLogger builds the daemon logger from config.
func newLogger(lc config.LogConfig) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// socketError folds engine socket failures into coded CLI errors.
func socketError(err error) error {
	switch {
	case goerrors.Is(err, server.ErrNoRuntimeDir):
		return errors.New("E201")
	case goerrors.Is(err, server.ErrNoFreeSocket):
		return errors.New("E203")
	default:
		return errors.New("E204").Wrap(err)
	}
}
