package faults

import (
	"sync"
	"time"
)

// timerGate owns the single timer a fault with a time-bounded effect
// (TcpConnectionUnresponsive, DisconnectAndSuspend) needs. Cancelling a
// fault must stop the timer before anything else (§9 "Per-simulation state
// on faults with timers"), so every access goes through this type rather
// than a bare *time.Timer field.
type timerGate struct {
	mu    sync.Mutex
	timer *time.Timer
}

// start arms the timer, replacing any previously armed one.
func (g *timerGate) start(d time.Duration, onExpire func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(d, onExpire)
}

// cancel stops the timer, if armed.
func (g *timerGate) cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
