package faults

import (
	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wsterm"
)

// newAttachUnresponsive swallows client ATTACH messages; every other frame,
// including HEARTBEAT, passes through (§4.3, §8 scenario 4).
func newAttachUnresponsive(id string, cfg *config.Config) simulation.FaultSimulation {
	return newGatedSwallowFault(id, "AttachUnresponsive", cfg, func(msg *wire.Message) bool {
		return msg.Action == wire.ActionAttach
	})
}

// newDetachUnresponsive swallows client DETACH messages.
func newDetachUnresponsive(id string, cfg *config.Config) simulation.FaultSimulation {
	return newGatedSwallowFault(id, "DetachUnresponsive", cfg, func(msg *wire.Message) bool {
		return msg.Action == wire.ActionDetach
	})
}

// newEnterUnresponsive swallows client PRESENCE ENTER messages.
func newEnterUnresponsive(id string, cfg *config.Config) simulation.FaultSimulation {
	return newGatedSwallowFault(id, "EnterUnresponsive", cfg, func(msg *wire.Message) bool {
		return hasPresenceAction(msg, wire.PresenceEnter)
	})
}

func newGatedSwallowFault(id, name string, cfg *config.Config, match func(*wire.Message) bool) simulation.FaultSimulation {
	gate := &gatedSwallow{match: match}
	proxy := wsterm.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort,
		func() interceptor.Interceptor { return gate },
		instanceLogger(id, name, cfg))

	hooks := simulation.Hooks{
		OnEnable:  func() error { gate.active.Store(true); return nil },
		OnResolve: func() error { gate.active.Store(false); return nil },
	}
	return simulation.NewInstance(id, name, simulation.Nonfatal, proxy, hooks)
}
