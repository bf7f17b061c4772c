// Package interceptor defines the pluggable per-connection capability the
// WebSocket Terminator (C2) threads every connection and frame through
// (§4.2, §9 "Interceptor polymorphism").
package interceptor

import (
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
)

// Interceptor is the capability concrete faults implement: rewrite the
// handshake's connection parameters, and turn each inbound frame into zero
// or more directed Actions. Implementations must be safe under concurrent
// invocation from both forwarding tasks of one connection (§5), since
// nothing upstream of it serializes calls across directions.
type Interceptor interface {
	// InterceptConnection is called once per connection, before dialing
	// upstream, and may rewrite the handshake query parameters.
	InterceptConnection(params *wire.ConnectionParams) *wire.ConnectionParams

	// InterceptFrame is called once per inbound frame traveling in dir,
	// and returns the directed actions to perform in response.
	InterceptFrame(dir wire.Direction, frame wire.Frame) []wire.Action
}

// PassThrough is the identity Interceptor: InterceptConnection returns its
// argument unchanged, InterceptFrame forwards the frame as a single Action
// in its original direction.
type PassThrough struct{}

func (PassThrough) InterceptConnection(params *wire.ConnectionParams) *wire.ConnectionParams {
	return params
}

func (PassThrough) InterceptFrame(dir wire.Direction, frame wire.Frame) []wire.Action {
	return []wire.Action{wire.Forward(dir, frame)}
}
