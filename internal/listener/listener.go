// Package listener opens the TCP listener of the reference server.
package listener

import (
	"fmt"
	"net"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
)

// DefaultHeaderTimeout bounds the wait for a PROXY protocol header
const DefaultHeaderTimeout = 5 * time.Second

// Listen opens a TCP listener on addr. With proxyProtocol set, a leading
// PROXY protocol (v1 or v2) header is consumed from each connection and
// RemoteAddr reports the client address it carries, so lookups for the
// caller's own IP work behind HAProxy or a cloud load balancer. Connections
// without a header keep their socket address.
func Listen(addr string, proxyProtocol bool, headerTimeout time.Duration) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if !proxyProtocol {
		return l, nil
	}

	if headerTimeout <= 0 {
		headerTimeout = DefaultHeaderTimeout
	}
	return &proxyproto.Listener{Listener: l, ReadHeaderTimeout: headerTimeout}, nil
}
