package limitgate

import (
	"fmt"
	"time"
)

// Policy is the quota for one tier: at most Limit requests per Window.
// Policies are immutable once loaded into a table.
type Policy struct {
	// Tier is the quota class name (e.g. "free", "pro", "enterprise")
	Tier string

	// Limit is the maximum number of requests per window
	Limit int64

	// Window is the fixed counting interval
	Window time.Duration
}

// Validate checks that a policy has positive limit and window.
func (p Policy) Validate() error {
	if p.Tier == "" {
		return fmt.Errorf("%w: policy tier name is empty", ErrInvalidConfig)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("%w: tier %q limit must be positive", ErrInvalidConfig, p.Tier)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: tier %q window must be positive", ErrInvalidConfig, p.Tier)
	}
	return nil
}

// PolicyTable maps tier names to policies. Lookups for unknown tiers fall
// back to the default tier, which is mandatory, so a lookup never fails at
// request time.
type PolicyTable struct {
	policies    map[string]Policy
	defaultTier string
}

// NewPolicyTable builds a table from the given policies. defaultTier must
// name one of them; a missing or invalid entry fails here, at startup,
// rather than on a request path.
func NewPolicyTable(defaultTier string, policies ...Policy) (*PolicyTable, error) {
	if defaultTier == "" {
		return nil, fmt.Errorf("%w: default tier name is empty", ErrInvalidConfig)
	}

	table := make(map[string]Policy, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := table[p.Tier]; dup {
			return nil, fmt.Errorf("%w: duplicate policy for tier %q", ErrInvalidConfig, p.Tier)
		}
		table[p.Tier] = p
	}

	if _, ok := table[defaultTier]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDefaultTier, defaultTier)
	}

	return &PolicyTable{policies: table, defaultTier: defaultTier}, nil
}

// Lookup returns the policy for a tier, or the default tier's policy when
// the tier has no entry.
func (t *PolicyTable) Lookup(tier string) Policy {
	if p, ok := t.policies[tier]; ok {
		return p
	}
	return t.policies[t.defaultTier]
}

// DefaultTier returns the name of the mandatory default tier.
func (t *PolicyTable) DefaultTier() string {
	return t.defaultTier
}

// Tiers returns the names of all configured tiers.
func (t *PolicyTable) Tiers() []string {
	names := make([]string, 0, len(t.policies))
	for name := range t.policies {
		names = append(names, name)
	}
	return names
}
