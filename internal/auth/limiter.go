package auth

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter throttles sign-in attempts per client address.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterInfo
	every    time.Duration
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// NewIPLimiter allows perMinute attempts a minute per address, with bursts up
// to burst.
func NewIPLimiter(perMinute, burst int) *IPLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &IPLimiter{
		limiters: make(map[string]*limiterInfo),
		every:    time.Minute / time.Duration(perMinute),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow consumes one attempt for ip.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for addr, info := range l.limiters {
		if now.Sub(info.lastAccessed) > l.idle {
			delete(l.limiters, addr)
		}
	}

	info, ok := l.limiters[ip]
	if !ok {
		info = &limiterInfo{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[ip] = info
	}
	info.lastAccessed = now
	return info.limiter.AllowN(now, 1)
}

// ProxyResolver finds the caller address of a request. Forwarding headers are
// only read when the socket peer is one of the trusted proxies.
type ProxyResolver struct {
	trusted []netip.Prefix
}

// NewProxyResolver parses trusted proxy addresses or CIDR ranges. An empty
// list trusts no one, so only the socket peer counts.
func NewProxyResolver(trusted []string) (*ProxyResolver, error) {
	r := &ProxyResolver{}
	for _, raw := range trusted {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			r.trusted = append(r.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		r.trusted = append(r.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return r, nil
}

func (p *ProxyResolver) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range p.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the socket peer, or when that peer is a trusted proxy the
// nearest untrusted hop of X-Forwarded-For, falling back to X-Real-IP.
func (p *ProxyResolver) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !p.isTrusted(peer) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !p.isTrusted(hop) {
			return hop.Unmap().String()
		}
	}
	if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return realIP.Unmap().String()
	}
	return host
}
