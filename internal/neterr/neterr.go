// Package neterr classifies the socket-teardown errors that are a normal
// part of a forwarding proxy's life, so callers can log them at Debug
// instead of spamming Error on every client disconnect.
package neterr

import (
	"log/slog"
	"strings"
)

var normalMsgs = []string{
	"read: connection reset by peer",
	"write: broken pipe",
	"i/o timeout",
	"net/http: TLS handshake timeout",
	"io: read/write on closed pipe",
	"connect: connection refused",
	"connect: connection reset by peer",
	"use of closed network connection",
	"EOF",
}

// IsNormal reports whether err is an expected side effect of a peer closing
// a connection, as opposed to something worth an operator's attention.
func IsNormal(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	for _, s := range normalMsgs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Log writes err to logger at Debug if it's a normal teardown error, Error
// otherwise.
func Log(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	if IsNormal(err) {
		logger.Debug("connection ended", "error", err)
		return
	}
	logger.Error("unexpected error", "error", err)
}
