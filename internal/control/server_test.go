package control

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
)

// newTestServer returns a Server exercised directly as an http.Handler
// (bypassing Start's own listener) bound to a private proxy port so test
// runs don't collide with each other or a real proxy instance.
func newTestServer(proxyPort int) (*Server, *httptest.Server) {
	cfg := &config.Config{
		ListenHost:         "127.0.0.1",
		ListenPort:         proxyPort,
		UpstreamHost:       "realtime.ably.io",
		UpstreamPort:       443,
		UnresponsiveWindow: 20 * time.Millisecond,
		SuspendWindow:      20 * time.Millisecond,
	}
	s := New(":0", simulation.NewRegistry(), cfg, nil)
	return s, httptest.NewServer(s)
}

func decodeSimulationDescriptor(t *testing.T, resp *http.Response) simulationDescriptor {
	t.Helper()
	var d simulationDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return d
}

// TestListFaultsReturnsTwelveNames covers §8 end-to-end scenario 1.
func TestListFaultsReturnsTwelveNames(t *testing.T) {
	c := qt.New(t)
	_, httpSrv := newTestServer(23001)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/faults")
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	var names []string
	c.Assert(json.NewDecoder(resp.Body).Decode(&names), qt.IsNil)
	c.Assert(names, qt.HasLen, 12)
}

// TestTcpConnectionRefusedLifecycle covers §8 end-to-end scenarios 2 and 3.
func TestTcpConnectionRefusedLifecycle(t *testing.T) {
	c := qt.New(t)
	const port = 23002
	_, httpSrv := newTestServer(port)
	defer httpSrv.Close()

	resp, err := http.Post(httpSrv.URL+"/faults/TcpConnectionRefused/simulation", "", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	descriptor := decodeSimulationDescriptor(t, resp)
	resp.Body.Close()
	c.Assert(descriptor.Name, qt.Equals, "TcpConnectionRefused")
	c.Assert(descriptor.Type, qt.Equals, "Nonfatal")
	c.Assert(descriptor.Proxy.ListenPort, qt.Equals, port)

	// listener is up, fault not yet enabled: connect succeeds
	conn, err := net.DialTimeout("tcp", "127.0.0.1:23002", time.Second)
	c.Assert(err, qt.IsNil)
	conn.Close()

	resp, err = http.Post(httpSrv.URL+"/fault-simulations/"+descriptor.ID+"/enable", "", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	resp.Body.Close()

	_, err = net.DialTimeout("tcp", "127.0.0.1:23002", time.Second)
	c.Assert(err, qt.IsNotNil)

	resp, err = http.Post(httpSrv.URL+"/fault-simulations/"+descriptor.ID+"/resolve", "", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	resp.Body.Close()

	conn, err = net.DialTimeout("tcp", "127.0.0.1:23002", time.Second)
	c.Assert(err, qt.IsNil)
	conn.Close()

	resp, err = http.Post(httpSrv.URL+"/fault-simulations/"+descriptor.ID+"/clean-up", "", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	resp.Body.Close()
}

func TestOperationOnUnknownIDIs404(t *testing.T) {
	c := qt.New(t)
	_, httpSrv := newTestServer(23003)
	defer httpSrv.Close()

	resp, err := http.Post(httpSrv.URL+"/fault-simulations/ghost/enable", "", nil)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestCreateUnknownFaultNameIs404(t *testing.T) {
	c := qt.New(t)
	_, httpSrv := newTestServer(23004)
	defer httpSrv.Close()

	resp, err := http.Post(httpSrv.URL+"/faults/NotARealFault/simulation", "", nil)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestEnableAfterCleanUpIs409(t *testing.T) {
	c := qt.New(t)
	const port = 23005
	_, httpSrv := newTestServer(port)
	defer httpSrv.Close()

	resp, _ := http.Post(httpSrv.URL+"/faults/NullTransportFault/simulation", "", nil)
	descriptor := decodeSimulationDescriptor(t, resp)
	resp.Body.Close()

	resp, _ = http.Post(httpSrv.URL+"/fault-simulations/"+descriptor.ID+"/clean-up", "", nil)
	resp.Body.Close()

	resp, err := http.Post(httpSrv.URL+"/fault-simulations/"+descriptor.ID+"/enable", "", nil)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusConflict)
}

func TestHealthzOK(t *testing.T) {
	c := qt.New(t)
	_, httpSrv := newTestServer(23006)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/healthz")
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
}
