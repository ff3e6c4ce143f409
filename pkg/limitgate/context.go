package limitgate

import (
	"net"
	"net/http"
	"strings"
)

// Request is the engine's view of one inbound request. The host service
// (router, auth layer) fills it in; every field except OriginAddr is
// optional.
type Request struct {
	// PrincipalID identifies the authenticated caller, when there is one
	PrincipalID string

	// PrincipalTier is the tier attribute attached to the principal
	PrincipalTier string

	// CredentialID is the API key or similar credential presented with
	// the request. Only a prefix of it ever reaches a rate-limit key.
	CredentialID string

	// CredentialTier is the tier associated with the credential's
	// metadata, used when the principal carries no tier
	CredentialTier string

	// OriginAddr is the network origin of the request (host or host:port)
	OriginAddr string
}

// RequestExtractor builds a Request from an HTTP request. Hosts that
// authenticate upstream should install their own extractor so PrincipalID
// and tier attributes are populated; the default only sees the network.
type RequestExtractor func(*http.Request) Request

// ExtractFromHeaders is the default RequestExtractor. It takes the
// credential from X-API-Key or a bearer Authorization header and the origin
// from proxy headers with a RemoteAddr fallback.
func ExtractFromHeaders(r *http.Request) Request {
	req := Request{OriginAddr: originAddr(r)}

	if key := r.Header.Get("X-API-Key"); key != "" {
		req.CredentialID = key
	} else if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			req.CredentialID = parts[1]
		}
	}

	return req
}

// originAddr resolves the client address, preferring proxy headers.
// X-Forwarded-For can be a comma-separated chain; the first entry is the
// original client.
func originAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
