package faults

import (
	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/tcptunnel"
)

// newTcpConnectionRefused stops the tunnel's listener on enable (new
// connects fail with ECONNREFUSED) and restarts it on resolve (§4.3). A
// fatal-style "listener down" effect is rare enough that it shares no
// helper with the interceptor-based faults.
func newTcpConnectionRefused(id string, cfg *config.Config) simulation.FaultSimulation {
	tunnel := tcptunnel.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort, instanceLogger(id, "TcpConnectionRefused", cfg))
	hooks := simulation.Hooks{
		OnEnable:  tunnel.Stop,
		OnResolve: tunnel.Start,
	}
	return simulation.NewInstance(id, "TcpConnectionRefused", simulation.Nonfatal, tunnel, hooks)
}

// newTcpConnectionUnresponsive closes the forwarding gate for
// cfg.UnresponsiveWindow on enable; the existing TCP connection stays open
// but carries no bytes (§4.3). Resolve reopens the gate immediately and
// cancels the timer.
func newTcpConnectionUnresponsive(id string, cfg *config.Config) simulation.FaultSimulation {
	tunnel := tcptunnel.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort, instanceLogger(id, "TcpConnectionUnresponsive", cfg))
	var gate timerGate

	hooks := simulation.Hooks{
		OnEnable: func() error {
			tunnel.SetForwarding(false)
			gate.start(cfg.UnresponsiveWindow, func() { tunnel.SetForwarding(true) })
			return nil
		},
		OnResolve: func() error {
			gate.cancel()
			tunnel.SetForwarding(true)
			return nil
		},
		OnCleanUp: func() error { gate.cancel(); return nil },
	}
	return simulation.NewInstance(id, "TcpConnectionUnresponsive", simulation.Nonfatal, tunnel, hooks)
}
