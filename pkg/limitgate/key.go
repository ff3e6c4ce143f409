package limitgate

import (
	"net"
	"strings"
)

// credentialPrefixLen bounds how much of a credential id is embedded in a
// rate-limit key. The full secret never becomes a store key.
const credentialPrefixLen = 8

// KeyStrategy derives a rate-limit key from a request, or "" when the
// request carries nothing this strategy can use.
type KeyStrategy func(Request) string

// KeyResolver derives a canonical rate-limit key by walking a prioritized
// strategy chain; the first non-empty result wins. The default chain is
// principal id, then credential prefix, then origin address, so an
// authenticated caller is always limited on identity rather than on a
// possibly shared network origin.
type KeyResolver struct {
	strategies []KeyStrategy
}

// NewKeyResolver builds a resolver from the given strategies, evaluated in
// order. With no arguments it uses the default chain.
func NewKeyResolver(strategies ...KeyStrategy) *KeyResolver {
	if len(strategies) == 0 {
		strategies = []KeyStrategy{PrincipalKey, CredentialKey, OriginKey}
	}
	return &KeyResolver{strategies: strategies}
}

// Resolve returns the first key the chain produces. ErrEmptyKey means the
// request exposed no identity at all, which a well-formed host never sends.
func (kr *KeyResolver) Resolve(req Request) (string, error) {
	for _, strategy := range kr.strategies {
		if key := strategy(req); key != "" {
			return key, nil
		}
	}
	return "", ErrEmptyKey
}

// PrincipalKey keys on the authenticated principal: "user:<id>".
func PrincipalKey(req Request) string {
	if req.PrincipalID == "" {
		return ""
	}
	return "user:" + req.PrincipalID
}

// CredentialKey keys on a prefix of the presented credential:
// "apikey:<prefix>". Short credentials are used whole.
func CredentialKey(req Request) string {
	if req.CredentialID == "" {
		return ""
	}
	prefix := req.CredentialID
	if len(prefix) > credentialPrefixLen {
		prefix = prefix[:credentialPrefixLen]
	}
	return "apikey:" + prefix
}

// OriginKey keys on the network origin address: "ip:<address>". A port
// suffix, if present, is stripped so one client maps to one key.
func OriginKey(req Request) string {
	if req.OriginAddr == "" {
		return ""
	}
	addr := req.OriginAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return "ip:" + strings.TrimSpace(addr)
}
