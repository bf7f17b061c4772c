package wsterm

import (
	"testing"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
)

func TestNewDefaultsToPassThroughFactory(t *testing.T) {
	term := New("127.0.0.1", 0, "realtime.ably.io", 443, nil, nil)
	intc := term.newIntc()
	if _, ok := intc.(interceptor.PassThrough); !ok {
		t.Fatalf("default factory returned %T, want interceptor.PassThrough", intc)
	}
}

// orderRecorder always emits two actions, a ping then the forwarded frame.
// The test below checks that order in the returned slice; it does not run
// the actions through a session.
type orderRecorder struct{}

func (orderRecorder) InterceptConnection(p *wire.ConnectionParams) *wire.ConnectionParams { return p }

func (orderRecorder) InterceptFrame(dir wire.Direction, f wire.Frame) []wire.Action {
	return []wire.Action{
		{Direction: dir, Frame: wire.Frame{Opcode: wire.OpPing}},
		wire.Forward(dir, f),
	}
}

func TestInterceptorActionsPreserveOrder(t *testing.T) {
	rec := orderRecorder{}
	actions := rec.InterceptFrame(wire.ToUpstream, wire.Frame{Opcode: wire.OpText, Payload: []byte("hi")})
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].Frame.Opcode != wire.OpPing {
		t.Fatalf("first action opcode = %v, want ping", actions[0].Frame.Opcode)
	}
	if actions[1].Frame.Opcode != wire.OpText || string(actions[1].Frame.Payload) != "hi" {
		t.Fatalf("second action = %+v, want forwarded text frame", actions[1])
	}
}

func TestToWireOpcodeAndBackRoundTrip(t *testing.T) {
	for _, op := range []wire.Opcode{wire.OpText, wire.OpBinary, wire.OpPing, wire.OpPong, wire.OpClose} {
		if got := toWireOpcode(toGorillaOpcode(op)); got != op {
			t.Fatalf("round trip for %v produced %v", op, got)
		}
	}
}
