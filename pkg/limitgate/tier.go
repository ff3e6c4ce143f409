package limitgate

// TierResolver extracts the caller's quota class from a request. It never
// fails: when neither the principal nor the credential carries a tier
// attribute, the configured default tier is returned, and the policy table
// guarantees the default always resolves to a policy.
type TierResolver struct {
	defaultTier string
}

// NewTierResolver creates a resolver that falls back to defaultTier.
func NewTierResolver(defaultTier string) *TierResolver {
	return &TierResolver{defaultTier: defaultTier}
}

// Resolve returns the tier for a request: the principal's tier attribute if
// present, else the credential's, else the default.
func (tr *TierResolver) Resolve(req Request) string {
	if req.PrincipalTier != "" {
		return req.PrincipalTier
	}
	if req.CredentialTier != "" {
		return req.CredentialTier
	}
	return tr.defaultTier
}
