package extension

import "time"

// Config holds the accounts extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.accounts" or "accounts" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// EntitlementCacheTTL controls how long entitlement snapshots are
	// cached before re-reading the store (default: 5m).
	EntitlementCacheTTL time.Duration `json:"entitlement_cache_ttl" mapstructure:"entitlement_cache_ttl" yaml:"entitlement_cache_ttl"`

	// CohortMarker is the organization/role marker that triggers handle
	// suffixing (default: "district").
	CohortMarker string `json:"cohort_marker" mapstructure:"cohort_marker" yaml:"cohort_marker"`

	// CohortSuffix is the suffix appended to cohort handles (default: "wsdr4").
	CohortSuffix string `json:"cohort_suffix" mapstructure:"cohort_suffix" yaml:"cohort_suffix"`

	// OrgLimit bounds the organization membership query (default: 20).
	OrgLimit int `json:"org_limit" mapstructure:"org_limit" yaml:"org_limit"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EntitlementCacheTTL: 5 * time.Minute,
		CohortMarker:        "district",
		CohortSuffix:        "wsdr4",
		OrgLimit:            20,
	}
}
