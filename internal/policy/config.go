// Package policy applies the user's check policy to rule findings: rule
// enable/disable, severity overrides, a minimum reported severity and the
// enforcement threshold that makes a check run fail.
package policy

// PolicyConfig is the "checks" section of startstop.yaml.
type PolicyConfig struct {
	Rules map[string]RuleConfig `yaml:"rules" json:"rules,omitempty"`

	// MinSeverity drops findings below this severity from the report.
	MinSeverity string `yaml:"min_severity,omitempty" json:"min_severity,omitempty"`

	// FailOnSeverity makes a check run fail when any finding is at or
	// above this severity. Empty disables enforcement.
	FailOnSeverity string `yaml:"fail_on_severity,omitempty" json:"fail_on_severity,omitempty"`
}

// RuleConfig overrides the behaviour of a single rule.
type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`
}
