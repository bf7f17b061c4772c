package faults

import (
	"go.uber.org/atomic"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
)

// gatedSwallow is the Interceptor shape behind AttachUnresponsive,
// DetachUnresponsive and EnterUnresponsive: while active, a client->upstream
// frame whose decoded message satisfies match is dropped (zero Actions);
// every other frame passes through unchanged (§4.3). One instance is shared
// across every connection the Terminator opens for this fault, since the
// catalog assumes a single concurrent simulation (§6).
type gatedSwallow struct {
	active atomic.Bool
	match  func(*wire.Message) bool
}

func (g *gatedSwallow) InterceptConnection(params *wire.ConnectionParams) *wire.ConnectionParams {
	return params
}

func (g *gatedSwallow) InterceptFrame(dir wire.Direction, f wire.Frame) []wire.Action {
	if g.active.Load() && dir == wire.ToUpstream && f.Opcode == wire.OpBinary {
		if msg, err := wire.DecodeMessage(f.Payload); err == nil && g.match(msg) {
			return nil
		}
	}
	return []wire.Action{wire.Forward(dir, f)}
}

var _ interceptor.Interceptor = (*gatedSwallow)(nil)

func hasPresenceAction(msg *wire.Message, action wire.PresenceAction) bool {
	if msg.Action != wire.ActionPresence {
		return false
	}
	for _, pm := range msg.Presence {
		if pm.Action == action {
			return true
		}
	}
	return false
}
