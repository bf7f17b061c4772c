// Package faults is the fault catalog (C5): the twelve concrete
// FaultSimulation factories tabulated in the proxy's public contract, each
// binding a TCP Tunnel or WebSocket Terminator to either a TCP-gate
// strategy or an interceptor.Interceptor.
package faults

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/logging"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
)

type factory func(id string, cfg *config.Config) simulation.FaultSimulation

var catalog = map[string]factory{
	"NullTransportFault":           newNullTransportFault,
	"NullApplicationLayerFault":    newNullApplicationLayerFault,
	"TcpConnectionRefused":         newTcpConnectionRefused,
	"TcpConnectionUnresponsive":    newTcpConnectionUnresponsive,
	"AttachUnresponsive":           newAttachUnresponsive,
	"DetachUnresponsive":           newDetachUnresponsive,
	"DisconnectWithFailedResume":   newDisconnectWithFailedResume,
	"EnterFailedWithNonfatalNack":  newEnterFailedWithNonfatalNack,
	"UpdateFailedWithNonfatalNack": newUpdateFailedWithNonfatalNack,
	"DisconnectAndSuspend":         newDisconnectAndSuspend,
	"ReenterOnResumeFailed":        newReenterOnResumeFailed,
	"EnterUnresponsive":            newEnterUnresponsive,
}

// ErrUnknown is returned by Create for a name absent from the catalog.
var ErrUnknown = fmt.Errorf("faults: unknown fault name")

// List returns every catalog entry's name, in no particular order.
func List() []string {
	return lo.Keys(catalog)
}

// Create builds a fresh FaultSimulation for name under id, or ErrUnknown.
// The caller still owns calling Simulate() on the result.
func Create(name, id string, cfg *config.Config) (simulation.FaultSimulation, error) {
	f, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return f(id, cfg), nil
}

// instanceLogger derives the per-simulation Instance every fault binds to
// its proxy, which the proxy uses both for its own static log lines
// (Instance.Logger) and to tag each accepted connection with a fresh id
// (Instance.ForConnection).
func instanceLogger(id, name string, cfg *config.Config) *logging.Instance {
	return logging.NewInstance(id, name, cfg.ListenPort)
}
