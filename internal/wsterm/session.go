package wsterm

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
)

// session owns one terminated connection: the client-facing WebSocket and
// the upstream WebSocket dialed on its behalf, plus the Interceptor that
// decides what each inbound frame turns into.
type session struct {
	client   *websocket.Conn
	upstream *websocket.Conn
	intc     interceptor.Interceptor
	logger   *slog.Logger

	// clientWriteMu and upstreamWriteMu guard WriteMessage on the
	// connection of the matching name.
	// Both pumps can target either connection (an Interceptor may fabricate
	// a cross-direction Action), and gorilla/websocket allows only one
	// concurrent writer per connection, so every write takes the matching
	// mutex first.
	clientWriteMu   sync.Mutex
	upstreamWriteMu sync.Mutex

	closeOnce sync.Once
}

func newSession(client, upstream *websocket.Conn, intc interceptor.Interceptor, logger *slog.Logger) *session {
	return &session{client: client, upstream: upstream, intc: intc, logger: logger}
}

// run pumps both directions concurrently. As soon as either direction ends,
// it closes both connections so the other direction's blocking read errors
// out promptly too (§5 "Cancellation": closing the socket is the canonical
// mechanism), then waits for both pumps to actually return.
func (s *session) run() {
	done := make(chan struct{}, 2)
	go func() {
		s.pump(s.client, wire.ToUpstream)
		done <- struct{}{}
	}()
	go func() {
		s.pump(s.upstream, wire.ToClient)
		done <- struct{}{}
	}()
	<-done
	s.close()
	<-done
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		_ = s.client.Close()
		_ = s.upstream.Close()
	})
}

// closeClient closes only the client-side connection, letting the
// resulting read error on the client pump drive the rest of run()'s normal
// teardown (it still closes upstream once the client pump ends).
func (s *session) closeClient() {
	_ = s.client.Close()
}

// pump reads frames from src (arriving in direction dir), runs each through
// the interceptor, and executes the resulting actions in order.
func (s *session) pump(src *websocket.Conn, dir wire.Direction) {
	for {
		opcode, payload, err := src.ReadMessage()
		if err != nil {
			return
		}
		frame := wire.Frame{Opcode: toWireOpcode(opcode), Payload: payload, Final: true}

		for _, action := range s.intc.InterceptFrame(dir, frame) {
			if err := s.send(action); err != nil {
				return
			}
			if action.SendAndClose {
				return
			}
		}
	}
}

// send writes action.Frame on the connection its Direction targets, taking
// that connection's write mutex first since the two pumps can both target
// either side.
func (s *session) send(action wire.Action) error {
	dst := s.upstream
	mu := &s.upstreamWriteMu
	if action.Direction == wire.ToClient {
		dst = s.client
		mu = &s.clientWriteMu
	}
	mu.Lock()
	defer mu.Unlock()
	return dst.WriteMessage(toGorillaOpcode(action.Frame.Opcode), action.Frame.Payload)
}

func toWireOpcode(gorillaOp int) wire.Opcode {
	switch gorillaOp {
	case websocket.TextMessage:
		return wire.OpText
	case websocket.BinaryMessage:
		return wire.OpBinary
	case websocket.PingMessage:
		return wire.OpPing
	case websocket.PongMessage:
		return wire.OpPong
	case websocket.CloseMessage:
		return wire.OpClose
	default:
		return wire.OpBinary
	}
}

func toGorillaOpcode(op wire.Opcode) int {
	switch op {
	case wire.OpText:
		return websocket.TextMessage
	case wire.OpPing:
		return websocket.PingMessage
	case wire.OpPong:
		return websocket.PongMessage
	case wire.OpClose:
		return websocket.CloseMessage
	default:
		return websocket.BinaryMessage
	}
}
