// Command ably-fault-proxy runs the fault-injection proxy's control API: a
// REST surface for creating, enabling, resolving and cleaning up fault
// simulations, each fronted by a TCP Tunnel or WebSocket Terminator bound to
// a single local port (§6).
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/control"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/version"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.New()
	reg := simulation.NewRegistry()
	srv := control.New(cfg.ControlAddr, reg, cfg, logger)

	if err := srv.Start(); err != nil {
		slog.Error("control server failed to start", "error", err)
		os.Exit(1)
	}
	slog.Info("ably-fault-proxy started",
		"version", version.String(),
		"controlAddr", cfg.ControlAddr,
		"upstream", cfg.UpstreamHost,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	for _, sim := range reg.Snapshot() {
		if err := sim.CleanUp(); err != nil {
			slog.Error("cleanup failed", "id", sim.ID(), "error", err)
		}
	}
	if err := srv.Stop(); err != nil {
		slog.Error("control server stop failed", "error", err)
	}
}
