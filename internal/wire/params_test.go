package wire_test

import (
	"net/url"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
)

func TestParseConnectionParamsRoundTrip(t *testing.T) {
	c := qt.New(t)

	raw := "clientId=abc&resume=tok123&foo=bar&v=1.2"
	p, err := wire.ParseConnectionParams(raw)
	c.Assert(err, qt.IsNil)

	clientID, ok := p.ClientID()
	c.Assert(ok, qt.IsTrue)
	c.Assert(clientID, qt.Equals, "abc")

	resume, ok := p.Resume()
	c.Assert(ok, qt.IsTrue)
	c.Assert(resume, qt.Equals, "tok123")

	c.Assert(p.Encode(), qt.Equals, raw)
}

func TestConnectionParamsClearResumeMakesKeyAbsent(t *testing.T) {
	c := qt.New(t)

	p, err := wire.ParseConnectionParams("clientId=abc&resume=tok123")
	c.Assert(err, qt.IsNil)

	p.ClearResume()
	_, ok := p.Resume()
	c.Assert(ok, qt.IsFalse)
	c.Assert(p.Encode(), qt.Equals, "clientId=abc")
}

func TestConnectionParamsApplyRewritesURLQuery(t *testing.T) {
	c := qt.New(t)

	p, err := wire.ParseConnectionParams("clientId=abc&resume=tok123")
	c.Assert(err, qt.IsNil)
	p.ClearResume()

	u := &url.URL{Scheme: "wss", Host: "realtime.ably.io", Path: "/"}
	p.Apply(u)
	c.Assert(u.RawQuery, qt.Equals, "clientId=abc")
}

func TestConnectionParamsAbsentKeyStaysAbsent(t *testing.T) {
	c := qt.New(t)

	p, err := wire.ParseConnectionParams("clientId=abc")
	c.Assert(err, qt.IsNil)

	_, ok := p.Resume()
	c.Assert(ok, qt.IsFalse)

	// setting and then clearing must leave no trace
	p.Set("resume", "x")
	p.Clear("resume")
	_, ok = p.Resume()
	c.Assert(ok, qt.IsFalse)
}
