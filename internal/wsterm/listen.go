package wsterm

import "net"

// listen binds addr synchronously so Start can report a bind failure (port
// already in use, etc.) instead of it surfacing only inside the goroutine
// running http.Server.Serve.
func listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
