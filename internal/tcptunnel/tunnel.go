// Package tcptunnel implements the Layer-4 raw TCP proxy (C1): it forwards
// a TLS byte stream verbatim between a client and the upstream realtime
// service, rewriting only the HTTP Host header during the WebSocket
// upgrade, and exposing a forwarding gate faults can flip.
package tcptunnel

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"sync"

	"go.uber.org/atomic"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/helper"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/logging"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/neterr"
)

const bufSize = 4 * 1024

var hostHeaderRE = regexp.MustCompile(`(?mi)^Host:[^\r\n]*\r\n`)

// Tunnel is the TCP Tunnel proxy. It satisfies simulation.Proxy.
type Tunnel struct {
	listenHost string
	listenPort int
	targetHost string
	targetPort int
	instance   *logging.Instance
	logger     *slog.Logger

	// IsForwarding gates byte forwarding in both directions: while false,
	// reads still advance their source but writes are dropped, simulating
	// a black-holed network (§4.1 "Forwarding gate"). Fault code flips it
	// with no lock, per §9.
	isForwarding atomic.Bool

	mu       sync.Mutex
	ln       net.Listener
	started  bool
	conns    map[*tunnelConn]struct{}
}

type tunnelConn struct {
	client net.Conn
	server net.Conn
}

// New constructs a Tunnel forwarding listenHost:listenPort to an upstream
// TLS endpoint at targetHost:targetPort. The tunnel starts forwarding.
// instance may be nil, in which case the default logger is used with no
// per-connection id tagging.
func New(listenHost string, listenPort int, targetHost string, targetPort int, instance *logging.Instance) *Tunnel {
	logger := slog.Default()
	if instance != nil {
		logger = instance.Logger()
	}
	t := &Tunnel{
		listenHost: listenHost,
		listenPort: listenPort,
		targetHost: targetHost,
		targetPort: targetPort,
		instance:   instance,
		logger:     logger.With("in", "tcptunnel", "listenPort", listenPort),
		conns:      make(map[*tunnelConn]struct{}),
	}
	t.isForwarding.Store(true)
	return t
}

// connLogger returns a fresh per-connection logger tagged with a new
// connection id, mirroring the teacher's per-connection instance logger.
func (t *Tunnel) connLogger() *slog.Logger {
	if t.instance != nil {
		return t.instance.ForConnection()
	}
	return t.logger
}

func (t *Tunnel) ListenHost() string { return t.listenHost }
func (t *Tunnel) ListenPort() int    { return t.listenPort }

// SetForwarding flips the forwarding gate. Safe to call from any goroutine,
// including while connections are active.
func (t *Tunnel) SetForwarding(on bool) { t.isForwarding.Store(on) }

// IsForwarding reports the current gate state.
func (t *Tunnel) IsForwarding() bool { return t.isForwarding.Load() }

// Start binds the listener and spawns the accept loop. Calling Start twice
// is a no-op (§4.1).
func (t *Tunnel) Start() error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", t.listenHost, t.listenPort))
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.ln = ln
	t.started = true
	t.mu.Unlock()

	go t.acceptLoop(ln)
	return nil
}

// Stop closes the listener (ending the accept loop) and every registered
// connection. Safe to call repeatedly and from any state.
func (t *Tunnel) Stop() error {
	t.mu.Lock()
	ln := t.ln
	t.started = false
	t.ln = nil
	conns := make([]*tunnelConn, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	t.conns = make(map[*tunnelConn]struct{})
	t.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.client.Close()
		_ = c.server.Close()
	}
	return nil
}

func (t *Tunnel) acceptLoop(ln net.Listener) {
	for {
		client, err := ln.Accept()
		if err != nil {
			neterr.Log(t.logger, err)
			return
		}
		go t.handleClient(client)
	}
}

func (t *Tunnel) handleClient(client net.Conn) {
	logger := t.connLogger()

	tlsConfig := &tls.Config{KeyLogWriter: helper.GetTLSKeyLogWriter()}
	server, err := tls.Dial("tcp", fmt.Sprintf("%s:%d", t.targetHost, t.targetPort), tlsConfig)
	if err != nil {
		logger.Error("upstream TLS dial failed", "error", err)
		_ = client.Close()
		return
	}

	tc := &tunnelConn{client: client, server: server}
	t.mu.Lock()
	t.conns[tc] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.conns, tc)
		t.mu.Unlock()
		_ = client.Close()
		_ = server.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		t.forward(logger, client, server, true)
	}()
	go func() {
		defer wg.Done()
		t.forward(logger, server, client, false)
	}()
	wg.Wait()
}

// forward copies src -> dst, applying the Host-header rewrite on the first
// buffer when rewriteHost is true, and honoring the forwarding gate on
// every buffer, the first one included.
func (t *Tunnel) forward(logger *slog.Logger, src, dst net.Conn, rewriteHost bool) {
	buf := make([]byte, bufSize)
	first := true
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if first && rewriteHost {
				chunk = rewriteHostHeader(chunk, t.targetHost)
				first = false
			}
			if t.isForwarding.Load() {
				if _, werr := dst.Write(chunk); werr != nil {
					neterr.Log(logger, werr)
					return
				}
			}
			// while not forwarding, the chunk is silently dropped: the
			// read still advanced src, simulating a black hole.
		}
		if err != nil {
			neterr.Log(logger, err)
			return
		}
	}
}

// rewriteHostHeader substitutes the first "Host: ...\r\n" header with
// "Host: <targetHost>\r\n", leaving every other byte untouched. If no Host
// header is found in this buffer (e.g. it arrived split across reads), the
// buffer is returned unchanged.
func rewriteHostHeader(buf []byte, targetHost string) []byte {
	loc := hostHeaderRE.FindIndex(buf)
	if loc == nil {
		return buf
	}
	replacement := []byte("Host: " + targetHost + "\r\n")
	out := make([]byte, 0, len(buf)-(loc[1]-loc[0])+len(replacement))
	out = append(out, buf[:loc[0]]...)
	out = append(out, replacement...)
	out = append(out, buf[loc[1]:]...)
	return out
}
