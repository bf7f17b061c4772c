package faults

import (
	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/tcptunnel"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wsterm"
)

// NullTransportFault is the TCP Tunnel with no strategy at all: bytes pass
// through byte-for-byte, only the Host header is rewritten as C1 always
// does (§4.3).
func newNullTransportFault(id string, cfg *config.Config) simulation.FaultSimulation {
	proxy := tcptunnel.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort, instanceLogger(id, "NullTransportFault", cfg))
	return simulation.NewInstance(id, "NullTransportFault", simulation.Nonfatal, proxy, simulation.Hooks{})
}

// NullApplicationLayerFault is the WebSocket Terminator with
// interceptor.PassThrough installed: every frame and the handshake
// parameters pass through unmodified (§4.3).
func newNullApplicationLayerFault(id string, cfg *config.Config) simulation.FaultSimulation {
	proxy := wsterm.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort,
		func() interceptor.Interceptor { return interceptor.PassThrough{} },
		instanceLogger(id, "NullApplicationLayerFault", cfg))
	return simulation.NewInstance(id, "NullApplicationLayerFault", simulation.Nonfatal, proxy, simulation.Hooks{})
}
