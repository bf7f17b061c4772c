// Package wsterm implements the WebSocket Terminator (C2): it terminates
// the client's WebSocket connection, opens its own upstream WebSocket
// connection to the realtime service, and pumps frames between them through
// a per-connection interceptor.Interceptor.
package wsterm

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/helper"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/interceptor"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/logging"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

var upstreamDialer = &websocket.Dialer{
	TLSClientConfig: &tls.Config{KeyLogWriter: helper.GetTLSKeyLogWriter()},
}

// Factory supplies the Interceptor for one incoming connection; it is
// called once per upgrade. A factory may return a shared value (every
// fault in the catalog does) or build a fresh one each call.
type Factory func() interceptor.Interceptor

// Terminator is the WebSocket Terminator proxy. It satisfies
// simulation.Proxy.
type Terminator struct {
	listenHost string
	listenPort int
	targetHost string
	targetPort int
	newIntc    Factory
	instance   *logging.Instance
	logger     *slog.Logger

	// suspended gates new upgrades, for DisconnectAndSuspend (§4.3): while
	// true, handleUpgrade rejects the upgrade instead of dialing upstream.
	suspended atomic.Bool

	mu     sync.Mutex
	srv    *http.Server
	active map[*session]struct{}
}

// New constructs a Terminator forwarding listenHost:listenPort to an
// upstream wss endpoint at targetHost:targetPort, calling newIntc once per
// connection for its Interceptor. instance may be nil, in which
// case the default logger is used with no per-connection id tagging.
func New(listenHost string, listenPort int, targetHost string, targetPort int, newIntc Factory, instance *logging.Instance) *Terminator {
	logger := slog.Default()
	if instance != nil {
		logger = instance.Logger()
	}
	if newIntc == nil {
		newIntc = func() interceptor.Interceptor { return interceptor.PassThrough{} }
	}
	return &Terminator{
		listenHost: listenHost,
		listenPort: listenPort,
		targetHost: targetHost,
		targetPort: targetPort,
		newIntc:    newIntc,
		instance:   instance,
		logger:     logger.With("in", "wsterm", "listenPort", listenPort),
		active:     make(map[*session]struct{}),
	}
}

// connLogger returns a fresh per-connection logger tagged with a new
// connection id, mirroring the teacher's per-connection instance logger.
func (t *Terminator) connLogger() *slog.Logger {
	if t.instance != nil {
		return t.instance.ForConnection()
	}
	return t.logger
}

func (t *Terminator) ListenHost() string { return t.listenHost }
func (t *Terminator) ListenPort() int    { return t.listenPort }

// Start binds the HTTP listener and begins serving the single "/" upgrade
// route. Calling Start twice is a no-op.
func (t *Terminator) Start() error {
	t.mu.Lock()
	if t.srv != nil {
		t.mu.Unlock()
		return nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleUpgrade)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", t.listenHost, t.listenPort),
		Handler: mux,
	}
	t.srv = srv
	t.mu.Unlock()

	ln, err := listen(srv.Addr)
	if err != nil {
		t.mu.Lock()
		t.srv = nil
		t.mu.Unlock()
		return err
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return nil
}

// Stop tears down the HTTP listener and every active session.
func (t *Terminator) Stop() error {
	t.mu.Lock()
	srv := t.srv
	t.srv = nil
	sessions := make([]*session, 0, len(t.active))
	for s := range t.active {
		sessions = append(sessions, s)
	}
	t.active = make(map[*session]struct{})
	t.mu.Unlock()

	if srv != nil {
		_ = srv.Close()
	}
	for _, s := range sessions {
		s.close()
	}
	return nil
}

// SetSuspended flips the upgrade-rejection gate used by DisconnectAndSuspend.
func (t *Terminator) SetSuspended(on bool) { t.suspended.Store(on) }

// Suspended reports the current gate state.
func (t *Terminator) Suspended() bool { return t.suspended.Load() }

// CloseAllClientSides closes the client-facing connection of every active
// session, driving each through its normal teardown (§8 scenario 6).
func (t *Terminator) CloseAllClientSides() {
	t.mu.Lock()
	sessions := make([]*session, 0, len(t.active))
	for s := range t.active {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()

	for _, s := range sessions {
		s.closeClient()
	}
}

func (t *Terminator) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if t.suspended.Load() {
		http.Error(w, "connections suspended", http.StatusServiceUnavailable)
		return
	}

	logger := t.connLogger()
	intc := t.newIntc()

	params, err := wire.ParseConnectionParams(r.URL.RawQuery)
	if err != nil {
		http.Error(w, "bad query string", http.StatusBadRequest)
		return
	}
	params = intc.InterceptConnection(params)

	upstreamURL := fmt.Sprintf("wss://%s:%d%s", t.targetHost, t.targetPort, r.URL.Path)
	upstreamConn, _, err := upstreamDialer.Dial(upstreamURL+"?"+params.Encode(), nil)
	if err != nil {
		logger.Error("upstream dial failed", "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("client upgrade failed", "error", err)
		_ = upstreamConn.Close()
		return
	}

	sess := newSession(clientConn, upstreamConn, intc, logger)
	t.mu.Lock()
	t.active[sess] = struct{}{}
	t.mu.Unlock()

	sess.run()

	t.mu.Lock()
	delete(t.active, sess)
	t.mu.Unlock()
}
