package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP resolves the caller address. With trustProxy the left-most
// X-Forwarded-For entry wins, then X-Real-IP; otherwise only RemoteAddr counts.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := hostOnly(first); ip != "" {
				return ip
			}
		}
		if ip := hostOnly(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	return hostOnly(r.RemoteAddr)
}

// hostOnly strips an optional port and brackets.
func hostOnly(s string) string {
	s = strings.TrimSpace(s)
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return strings.Trim(s, "[]")
}

// AllowList matches client addresses against IPs and CIDR prefixes.
// A bare IP is stored as a single-address prefix.
type AllowList struct {
	prefixes []netip.Prefix
}

// ParseAllowList builds an AllowList. Entries that are neither an IP nor a
// CIDR are returned in rejected so the caller can log them.
func ParseAllowList(entries []string) (list AllowList, rejected []string) {
	for _, raw := range entries {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			list.prefixes = append(list.prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(s); err == nil {
			addr = addr.Unmap()
			list.prefixes = append(list.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		rejected = append(rejected, s)
	}
	return list, rejected
}

func (l AllowList) Empty() bool { return len(l.prefixes) == 0 }

// Contains reports whether ip falls inside any entry. Unparseable input never matches.
func (l AllowList) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
