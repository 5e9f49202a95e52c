package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// Fingerprint identifies the client a refresh token was issued to.
type Fingerprint struct {
	IP        string
	UserAgent string
	Hash      string
}

// FingerprintRequest derives a Fingerprint from r.
func FingerprintRequest(r *http.Request) Fingerprint {
	ip := ClientIP(r)
	ua := r.UserAgent()
	sum := sha256.Sum256([]byte(ip + "|" + ua))
	return Fingerprint{IP: ip, UserAgent: ua, Hash: hex.EncodeToString(sum[:])}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return strings.TrimSpace(xr)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
