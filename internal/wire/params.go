// Package wire models the pieces of the realtime handshake and frame
// traffic that the fault catalog needs to read or rewrite: the handshake
// query string, a WebSocket frame, and the packed realtime protocol message
// carried inside binary frames.
package wire

import (
	"net/url"
	"strings"
)

// RecognizedParamKeys are the handshake query-string keys ConnectionParams
// understands. Any other key present in a query string is carried through
// untouched, in place, by Encode.
var RecognizedParamKeys = []string{
	"clientId", "connectionSerial", "resume", "key", "heartbeats", "v", "format", "agent",
}

type pair struct {
	key, value string
}

// ConnectionParams is an ordered, nullable projection of the realtime
// handshake query string over RecognizedParamKeys. It preserves the
// original key order (recognized or not) across a parse/encode round trip,
// and null (absent) means the key stays absent upstream.
type ConnectionParams struct {
	pairs []pair
}

// ParseConnectionParams parses a raw query string (as found in
// req.URL.RawQuery) into a ConnectionParams, preserving key order and
// leaving unrecognized keys untouched.
func ParseConnectionParams(rawQuery string) (*ConnectionParams, error) {
	p := &ConnectionParams{}
	if rawQuery == "" {
		return p, nil
	}
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		var key, value string
		if i := strings.IndexByte(part, '='); i >= 0 {
			key, value = part[:i], part[i+1:]
		} else {
			key = part
		}
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		p.pairs = append(p.pairs, pair{key: k, value: v})
	}
	return p, nil
}

// Get returns the first value for key and whether it is present.
func (p *ConnectionParams) Get(key string) (string, bool) {
	for _, kv := range p.pairs {
		if kv.key == key {
			return kv.value, true
		}
	}
	return "", false
}

// Set assigns value to key, replacing the first existing occurrence in
// place or appending a new pair if key was absent.
func (p *ConnectionParams) Set(key, value string) {
	for i, kv := range p.pairs {
		if kv.key == key {
			p.pairs[i].value = value
			return
		}
	}
	p.pairs = append(p.pairs, pair{key: key, value: value})
}

// Clear removes every occurrence of key, making it absent.
func (p *ConnectionParams) Clear(key string) {
	out := p.pairs[:0]
	for _, kv := range p.pairs {
		if kv.key != key {
			out = append(out, kv)
		}
	}
	p.pairs = out
}

// Clone returns an independent copy.
func (p *ConnectionParams) Clone() *ConnectionParams {
	cp := &ConnectionParams{pairs: make([]pair, len(p.pairs))}
	copy(cp.pairs, p.pairs)
	return cp
}

// Encode reassembles the query string in the original key order.
func (p *ConnectionParams) Encode() string {
	parts := make([]string, 0, len(p.pairs))
	for _, kv := range p.pairs {
		parts = append(parts, url.QueryEscape(kv.key)+"="+url.QueryEscape(kv.value))
	}
	return strings.Join(parts, "&")
}

// Apply rewrites u's RawQuery to this ConnectionParams' encoding.
func (p *ConnectionParams) Apply(u *url.URL) {
	u.RawQuery = p.Encode()
}

// ClientID, Resume and the other recognized-key accessors are thin
// convenience wrappers that faults use instead of spelling out the key
// literal everywhere.
func (p *ConnectionParams) ClientID() (string, bool) { return p.Get("clientId") }
func (p *ConnectionParams) Resume() (string, bool)   { return p.Get("resume") }
func (p *ConnectionParams) ClearResume()             { p.Clear("resume") }
func (p *ConnectionParams) SetResume(token string)   { p.Set("resume", token) }
