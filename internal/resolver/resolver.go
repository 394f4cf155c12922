package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"
)

// ErrNoAddress is returned when a hostname resolves to nothing usable
var ErrNoAddress = errors.New("hostname has no address")

// Resolver turns a hostname into IP addresses
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSResolver resolves through the system resolver with a per-lookup timeout
type DNSResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewDNSResolver creates a resolver; timeout <= 0 means 5s
func NewDNSResolver(timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSResolver{
		resolver: net.DefaultResolver,
		timeout:  timeout,
	}
}

// LookupHost implements Resolver
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	return addrs, nil
}

// StaticResolver answers from a fixed table; unknown names fail
type StaticResolver map[string][]string

// LookupHost implements Resolver
func (s StaticResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	addrs, ok := s[host]
	if !ok || len(addrs) == 0 {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, ErrNoAddress)
	}
	return addrs, nil
}

// PreferIPv4 picks the address a lookup should use: the first IPv4 address
// in sorted order, or the first IPv6 address when there is no IPv4 one.
func PreferIPv4(addrs []string) (string, error) {
	var v4, v6 []string
	for _, a := range addrs {
		ip := net.ParseIP(a)
		switch {
		case ip == nil:
			continue
		case ip.To4() != nil:
			v4 = append(v4, a)
		default:
			v6 = append(v6, a)
		}
	}
	if len(v4) > 0 {
		sort.Strings(v4)
		return v4[0], nil
	}
	if len(v6) > 0 {
		sort.Strings(v6)
		return v6[0], nil
	}
	return "", ErrNoAddress
}
