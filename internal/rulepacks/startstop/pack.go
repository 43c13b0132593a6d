// Package startstop provides the pre-deployment check rule pack.
// New returns every check rule in evaluation order; callers register them
// into a RuleRegistry via a loop rather than listing each rule explicitly.
//
// Adding a new check:
//  1. Implement the rule in internal/rules/ following the Rule interface.
//  2. Append it to the slice returned by New().
//  3. No other files need to change.
package startstop

import "github.com/pankaj-dahiya-devops/auto-start-stop/internal/rules"

// New returns all check rules in the order they should be evaluated.
func New() []rules.Rule {
	return []rules.Rule{
		rules.CodeArtifactMissingRule{},    // CRITICAL
		rules.EC2TargetNotFoundRule{},      // HIGH
		rules.RDSTargetNotFoundRule{},      // HIGH
		rules.ActionNotAllowedRule{},       // HIGH
		rules.EC2TargetTerminatedRule{},    // MEDIUM
		rules.RDSTargetClusterMemberRule{}, // MEDIUM
		rules.WildcardResourceScopeRule{},  // MEDIUM
		rules.DuplicateTargetIDRule{},      // LOW
		rules.EmptyTargetListRule{},        // INFO
	}
}

// IDs returns the rule IDs of New in order.
func IDs() []string {
	pack := New()
	ids := make([]string, len(pack))
	for i, r := range pack {
		ids[i] = r.ID()
	}
	return ids
}
