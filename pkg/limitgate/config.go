package limitgate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine's startup configuration, conventionally loaded from a
// YAML file.
type Config struct {
	// DefaultTier names the tier applied to requests carrying no tier
	// attribute. Mandatory, and it must appear in Tiers.
	DefaultTier string `yaml:"default_tier"`

	// Tiers maps tier names to their quotas.
	Tiers map[string]TierConfig `yaml:"tiers"`

	// Redis is the distributed counter store connection target.
	Redis RedisConfig `yaml:"redis"`

	// ProbeInterval is the distributed store health probe cadence.
	// Format: "5s", "1m". Default: "5s".
	ProbeInterval string `yaml:"probe_interval,omitempty"`

	// SweepInterval is how often the local fallback store evicts expired
	// windows. Default: "1m".
	SweepInterval string `yaml:"sweep_interval,omitempty"`
}

// TierConfig is one tier's quota in the configuration file.
type TierConfig struct {
	// Limit is the maximum number of requests per window
	Limit int64 `yaml:"limit"`

	// Window is the fixed counting interval, e.g. "1m", "10s"
	Window string `yaml:"window"`
}

// RedisConfig is the distributed store connection target.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// KeyPrefix namespaces counter keys. Default: "limitgate".
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// LoadConfigFromFile loads and validates configuration from a YAML file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	if config.ProbeInterval == "" {
		config.ProbeInterval = "5s"
	}
	if config.SweepInterval == "" {
		config.SweepInterval = "1m"
	}
	if config.Redis.KeyPrefix == "" {
		config.Redis.KeyPrefix = "limitgate"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the whole configuration. A tier without a policy, a
// missing default tier, or an unparseable duration fails here so a bad
// deployment never reaches request traffic.
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers configured", ErrInvalidConfig)
	}
	if _, err := c.PolicyTable(); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.ProbeInterval); err != nil {
		return fmt.Errorf("%w: invalid probe_interval %q", ErrInvalidConfig, c.ProbeInterval)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("%w: invalid sweep_interval %q", ErrInvalidConfig, c.SweepInterval)
	}
	return nil
}

// PolicyTable builds the immutable policy table from the configured tiers.
func (c *Config) PolicyTable() (*PolicyTable, error) {
	policies := make([]Policy, 0, len(c.Tiers))
	for name, tc := range c.Tiers {
		window, err := time.ParseDuration(tc.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid window %q for tier %q", ErrInvalidConfig, tc.Window, name)
		}
		policies = append(policies, Policy{Tier: name, Limit: tc.Limit, Window: window})
	}
	return NewPolicyTable(c.DefaultTier, policies...)
}

// Intervals returns the parsed probe and sweep intervals. Call Validate
// first; unparseable values fall back to the defaults here.
func (c *Config) Intervals() (probe, sweep time.Duration) {
	probe, err := time.ParseDuration(c.ProbeInterval)
	if err != nil || probe <= 0 {
		probe = 5 * time.Second
	}
	sweep, err = time.ParseDuration(c.SweepInterval)
	if err != nil || sweep <= 0 {
		sweep = time.Minute
	}
	return probe, sweep
}
