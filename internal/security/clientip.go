package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver finds the address a request came from. X-Forwarded-For
// and X-Real-IP are honoured only when the direct peer is a trusted proxy;
// a nil resolver trusts nobody.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxies given as addresses or CIDR ranges
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{}
	for _, entry := range trustedProxies {
		prefix, err := ParseProxy(entry)
		if err != nil {
			return nil, err
		}
		r.trusted = append(r.trusted, prefix)
	}
	return r, nil
}

// ParseProxy parses "10.0.0.1" or "10.0.0.0/8" into a prefix
func ParseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// ClientIP returns the client address used for rate limiting and logging
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	peer, err := netip.ParseAddr(remote)
	if err != nil || !c.isTrusted(peer) {
		return remote
	}

	// Walk the chain from the nearest hop; the first untrusted hop is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		client := peer
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop
			if !c.isTrusted(hop) {
				break
			}
		}
		return client.Unmap().String()
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return realIP.Unmap().String()
	}
	return remote
}

func (c *ClientIPResolver) isTrusted(addr netip.Addr) bool {
	if c == nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
