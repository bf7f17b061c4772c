package faults

import (
	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wsterm"
)

// newDisconnectAndSuspend closes every active client-side connection on
// enable, rejects new upgrades for cfg.SuspendWindow, and restores accepts
// either when the window elapses or resolve is called explicitly, whichever
// comes first (§4.3, §8 scenario 6).
func newDisconnectAndSuspend(id string, cfg *config.Config) simulation.FaultSimulation {
	proxy := wsterm.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort,
		func() interceptor.Interceptor { return interceptor.PassThrough{} },
		instanceLogger(id, "DisconnectAndSuspend", cfg))
	var gate timerGate

	hooks := simulation.Hooks{
		OnEnable: func() error {
			proxy.SetSuspended(true)
			proxy.CloseAllClientSides()
			gate.start(cfg.SuspendWindow, func() { proxy.SetSuspended(false) })
			return nil
		},
		OnResolve: func() error {
			gate.cancel()
			proxy.SetSuspended(false)
			return nil
		},
		OnCleanUp: func() error { gate.cancel(); return nil },
	}
	return simulation.NewInstance(id, "DisconnectAndSuspend", simulation.Fatal, proxy, hooks)
}
