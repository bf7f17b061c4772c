package faults

import (
	"go.uber.org/atomic"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wsterm"
)

// presenceNackInterceptor recognizes a client PRESENCE message carrying the
// given inner action and, while active, fabricates a NACK back to the
// client in its place instead of forwarding the original upstream (§4.3,
// §8 scenario 5).
type presenceNackInterceptor struct {
	active   atomic.Bool
	action   wire.PresenceAction
	errCode  int
	errText  string
}

func (p *presenceNackInterceptor) InterceptConnection(params *wire.ConnectionParams) *wire.ConnectionParams {
	return params
}

func (p *presenceNackInterceptor) InterceptFrame(dir wire.Direction, f wire.Frame) []wire.Action {
	if !p.active.Load() || dir != wire.ToUpstream || f.Opcode != wire.OpBinary {
		return []wire.Action{wire.Forward(dir, f)}
	}
	msg, err := wire.DecodeMessage(f.Payload)
	if err != nil || !hasPresenceAction(msg, p.action) {
		return []wire.Action{wire.Forward(dir, f)}
	}

	nack := wire.EncodeNack(msg.Channel, wire.ErrorInfo{Code: p.errCode, Message: p.errText, StatusCode: 400})
	return []wire.Action{
		{Direction: wire.ToClient, Frame: wire.Frame{Opcode: wire.OpBinary, Payload: nack, Final: true}},
	}
}

var _ interceptor.Interceptor = (*presenceNackInterceptor)(nil)

// newEnterFailedWithNonfatalNack NACKs PRESENCE ENTER with a non-fatal
// error, suppressing the original frame upstream.
func newEnterFailedWithNonfatalNack(id string, cfg *config.Config) simulation.FaultSimulation {
	return newPresenceNackFault(id, "EnterFailedWithNonfatalNack", cfg, wire.PresenceEnter, wire.ErrEnterFailedNonfatal, "enter failed")
}

// newUpdateFailedWithNonfatalNack NACKs PRESENCE UPDATE with a non-fatal
// error, suppressing the original frame upstream.
func newUpdateFailedWithNonfatalNack(id string, cfg *config.Config) simulation.FaultSimulation {
	return newPresenceNackFault(id, "UpdateFailedWithNonfatalNack", cfg, wire.PresenceUpdate, wire.ErrUpdateFailedNonfatal, "update failed")
}

func newPresenceNackFault(id, name string, cfg *config.Config, action wire.PresenceAction, errCode int, errText string) simulation.FaultSimulation {
	intc := &presenceNackInterceptor{action: action, errCode: errCode, errText: errText}
	proxy := wsterm.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort,
		func() interceptor.Interceptor { return intc },
		instanceLogger(id, name, cfg))

	hooks := simulation.Hooks{
		OnEnable:  func() error { intc.active.Store(true); return nil },
		OnResolve: func() error { intc.active.Store(false); return nil },
	}
	return simulation.NewInstance(id, name, simulation.Nonfatal, proxy, hooks)
}
