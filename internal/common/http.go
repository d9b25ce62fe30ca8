package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address from r.RemoteAddr. Proxy headers are not read
// here; mount chi's RealIP middleware first when the service sits behind a proxy.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap().String()
	}
	if addr, err := netip.ParseAddr(remote); err == nil {
		return addr.Unmap().String()
	}
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

// PrefersText reports whether the client asked for a plain text rendering, either with
// ?format=text or an Accept header naming text/plain.
func PrefersText(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		return true
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "text/plain") {
			return true
		}
	}
	return false
}
