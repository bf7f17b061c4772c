package faults

import (
	"go.uber.org/atomic"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wsterm"
)

// disconnectWithFailedResume closes the upstream side of the connection on
// the first CONNECTED frame seen after enable, then strips the resume
// parameter from the next handshake so upstream is forced into a fresh
// session instead of a resume (§4.3).
type disconnectWithFailedResume struct {
	active     atomic.Bool
	closedOnce atomic.Bool
}

func (d *disconnectWithFailedResume) InterceptConnection(params *wire.ConnectionParams) *wire.ConnectionParams {
	if !d.active.Load() {
		return params
	}
	if _, ok := params.Resume(); ok {
		next := params.Clone()
		next.ClearResume()
		return next
	}
	return params
}

func (d *disconnectWithFailedResume) InterceptFrame(dir wire.Direction, f wire.Frame) []wire.Action {
	if !d.active.Load() || dir != wire.ToClient || f.Opcode != wire.OpBinary {
		return []wire.Action{wire.Forward(dir, f)}
	}
	msg, err := wire.DecodeMessage(f.Payload)
	if err != nil || msg.Action != wire.ActionConnected {
		return []wire.Action{wire.Forward(dir, f)}
	}
	if !d.closedOnce.CompareAndSwap(false, true) {
		return []wire.Action{wire.Forward(dir, f)}
	}
	return []wire.Action{
		wire.Forward(dir, f),
		{Direction: wire.ToUpstream, Frame: wire.Frame{Opcode: wire.OpClose}, SendAndClose: true},
	}
}

var _ interceptor.Interceptor = (*disconnectWithFailedResume)(nil)

func newDisconnectWithFailedResume(id string, cfg *config.Config) simulation.FaultSimulation {
	intc := &disconnectWithFailedResume{}
	proxy := wsterm.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort,
		func() interceptor.Interceptor { return intc },
		instanceLogger(id, "DisconnectWithFailedResume", cfg))

	hooks := simulation.Hooks{
		OnEnable: func() error {
			intc.closedOnce.Store(false)
			intc.active.Store(true)
			return nil
		},
		OnResolve: func() error { intc.active.Store(false); return nil },
	}
	return simulation.NewInstance(id, "DisconnectWithFailedResume", simulation.NonfatalWithResume, proxy, hooks)
}

// reenterOnResumeFailed forces exactly one upstream resume failure (by
// corrupting the resume parameter on the first resuming handshake it sees),
// then NACKs the client's next PRESENCE ENTER - the re-entry the client
// issues once it notices the resume failed (§4.3, §9 open question).
type reenterOnResumeFailed struct {
	active        atomic.Bool
	resumeForced  atomic.Bool
	reenterNacked atomic.Bool
}

func (r *reenterOnResumeFailed) InterceptConnection(params *wire.ConnectionParams) *wire.ConnectionParams {
	if !r.active.Load() {
		return params
	}
	if _, ok := params.Resume(); ok && r.resumeForced.CompareAndSwap(false, true) {
		next := params.Clone()
		next.SetResume("forced-resume-failure")
		return next
	}
	return params
}

func (r *reenterOnResumeFailed) InterceptFrame(dir wire.Direction, f wire.Frame) []wire.Action {
	if !r.active.Load() || !r.resumeForced.Load() || r.reenterNacked.Load() {
		return []wire.Action{wire.Forward(dir, f)}
	}
	if dir != wire.ToUpstream || f.Opcode != wire.OpBinary {
		return []wire.Action{wire.Forward(dir, f)}
	}
	msg, err := wire.DecodeMessage(f.Payload)
	if err != nil || !hasPresenceAction(msg, wire.PresenceEnter) {
		return []wire.Action{wire.Forward(dir, f)}
	}
	if !r.reenterNacked.CompareAndSwap(false, true) {
		return []wire.Action{wire.Forward(dir, f)}
	}
	nack := wire.EncodeNack(msg.Channel, wire.ErrorInfo{Code: wire.ErrEnterFailedNonfatal, Message: "re-enter failed", StatusCode: 400})
	return []wire.Action{
		{Direction: wire.ToClient, Frame: wire.Frame{Opcode: wire.OpBinary, Payload: nack, Final: true}},
	}
}

var _ interceptor.Interceptor = (*reenterOnResumeFailed)(nil)

func newReenterOnResumeFailed(id string, cfg *config.Config) simulation.FaultSimulation {
	intc := &reenterOnResumeFailed{}
	proxy := wsterm.New(cfg.ListenHost, cfg.ListenPort, cfg.UpstreamHost, cfg.UpstreamPort,
		func() interceptor.Interceptor { return intc },
		instanceLogger(id, "ReenterOnResumeFailed", cfg))

	hooks := simulation.Hooks{
		OnEnable: func() error {
			intc.resumeForced.Store(false)
			intc.reenterNacked.Store(false)
			intc.active.Store(true)
			return nil
		},
		OnResolve: func() error { intc.active.Store(false); return nil },
	}
	return simulation.NewInstance(id, "ReenterOnResumeFailed", simulation.NonfatalWithResume, proxy, hooks)
}
