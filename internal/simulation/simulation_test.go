package simulation_test

import (
	"errors"
	"testing"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
)

type fakeProxy struct {
	started, stopped  bool
	startErr, stopErr error
}

func (p *fakeProxy) Start() error       { p.started = true; return p.startErr }
func (p *fakeProxy) Stop() error        { p.stopped = true; return p.stopErr }
func (p *fakeProxy) ListenHost() string { return "127.0.0.1" }
func (p *fakeProxy) ListenPort() int    { return 13579 }

func TestLifecycleHappyPath(t *testing.T) {
	proxy := &fakeProxy{}
	var enabled, resolved, cleaned bool
	inst := simulation.NewInstance("id-1", "NullTransportFault", simulation.Nonfatal, proxy, simulation.Hooks{
		OnEnable:  func() error { enabled = true; return nil },
		OnResolve: func() error { resolved = true; return nil },
		OnCleanUp: func() error { cleaned = true; return nil },
	})

	if err := inst.Simulate(); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if inst.State() != simulation.StateIdle {
		t.Fatalf("state after Simulate = %v, want idle", inst.State())
	}
	if !proxy.started {
		t.Fatal("proxy not started")
	}

	if err := inst.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !enabled || inst.State() != simulation.StateActive {
		t.Fatalf("enable hook=%v state=%v", enabled, inst.State())
	}

	if err := inst.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved || inst.State() != simulation.StateResolved {
		t.Fatalf("resolve hook=%v state=%v", resolved, inst.State())
	}

	if err := inst.CleanUp(); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if !cleaned || !proxy.stopped || inst.State() != simulation.StateDestroyed {
		t.Fatalf("cleanup hook=%v stopped=%v state=%v", cleaned, proxy.stopped, inst.State())
	}
}

func TestCleanUpIsIdempotent(t *testing.T) {
	proxy := &fakeProxy{}
	calls := 0
	inst := simulation.NewInstance("id-1", "NullTransportFault", simulation.Nonfatal, proxy, simulation.Hooks{
		OnCleanUp: func() error { calls++; return nil },
	})
	_ = inst.Simulate()

	if err := inst.CleanUp(); err != nil {
		t.Fatalf("first CleanUp: %v", err)
	}
	if err := inst.CleanUp(); err != nil {
		t.Fatalf("second CleanUp: %v", err)
	}
	if calls != 1 {
		t.Fatalf("OnCleanUp hook ran %d times, want 1 (second call is a no-op)", calls)
	}
}

func TestEnableAfterCleanUpIsClientError(t *testing.T) {
	proxy := &fakeProxy{}
	inst := simulation.NewInstance("id-1", "NullTransportFault", simulation.Nonfatal, proxy, simulation.Hooks{})
	_ = inst.Simulate()
	_ = inst.CleanUp()

	err := inst.Enable()
	if !errors.Is(err, simulation.ErrInvalidTransition) {
		t.Fatalf("Enable after CleanUp = %v, want ErrInvalidTransition", err)
	}
}

func TestResolveBeforeEnableIsClientError(t *testing.T) {
	proxy := &fakeProxy{}
	inst := simulation.NewInstance("id-1", "NullTransportFault", simulation.Nonfatal, proxy, simulation.Hooks{})
	_ = inst.Simulate()

	err := inst.Resolve()
	if !errors.Is(err, simulation.ErrInvalidTransition) {
		t.Fatalf("Resolve before Enable = %v, want ErrInvalidTransition", err)
	}
}
