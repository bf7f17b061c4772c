package simulation_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
)

func newTestInstance(id string) *simulation.Instance {
	return simulation.NewInstance(id, "NullTransportFault", simulation.Nonfatal, &fakeProxy{}, simulation.Hooks{})
}

func TestRegistryAddGet(t *testing.T) {
	c := qt.New(t)

	reg := simulation.NewRegistry()
	inst := newTestInstance("id-1")
	reg.Add(inst)

	got, err := reg.Get("id-1")
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID(), qt.Equals, "id-1")

	_, err = reg.Get("missing")
	c.Assert(errors.Is(err, simulation.ErrNotFound), qt.IsTrue)
}

func TestRegistryEnableResolveCleanUpDelegate(t *testing.T) {
	c := qt.New(t)

	reg := simulation.NewRegistry()
	inst := newTestInstance("id-1")
	c.Assert(inst.Simulate(), qt.IsNil)
	reg.Add(inst)

	c.Assert(reg.Enable("id-1"), qt.IsNil)
	c.Assert(inst.State(), qt.Equals, simulation.StateActive)

	c.Assert(reg.Resolve("id-1"), qt.IsNil)
	c.Assert(inst.State(), qt.Equals, simulation.StateResolved)

	c.Assert(reg.CleanUp("id-1"), qt.IsNil)
	c.Assert(inst.State(), qt.Equals, simulation.StateDestroyed)

	// second clean-up on the same (still known) id is a no-op success
	c.Assert(reg.CleanUp("id-1"), qt.IsNil)
}

func TestRegistryOperationOnUnknownIDIsNotFound(t *testing.T) {
	c := qt.New(t)

	reg := simulation.NewRegistry()
	c.Assert(errors.Is(reg.Enable("ghost"), simulation.ErrNotFound), qt.IsTrue)
	c.Assert(errors.Is(reg.Resolve("ghost"), simulation.ErrNotFound), qt.IsTrue)
	c.Assert(errors.Is(reg.CleanUp("ghost"), simulation.ErrNotFound), qt.IsTrue)
}

func TestRegistrySnapshotReturnsEveryEntry(t *testing.T) {
	c := qt.New(t)

	reg := simulation.NewRegistry()
	reg.Add(newTestInstance("id-1"))
	reg.Add(newTestInstance("id-2"))

	snap := reg.Snapshot()
	c.Assert(len(snap), qt.Equals, 2)
}
