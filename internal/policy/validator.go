package policy

import (
	"fmt"
	"sort"
	"strings"
)

// validSeverities is the set of allowed severity strings (upper-case canonical form).
var validSeverities = map[string]struct{}{
	"CRITICAL": {},
	"HIGH":     {},
	"MEDIUM":   {},
	"LOW":      {},
	"INFO":     {},
}

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - rule IDs must appear in availableRuleIDs
//   - rule severity overrides must be valid severity values if set
//   - min_severity and fail_on_severity must be valid severity values if set
//
// All errors are collected before returning; Validate never stops at the first error.
// Errors are ordered by rule ID so output is stable.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	ruleIDs := make([]string, 0, len(cfg.Rules))
	for id := range cfg.Rules {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Strings(ruleIDs)

	for _, ruleID := range ruleIDs {
		rcfg := cfg.Rules[ruleID]
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("checks.rules.%s: unknown rule ID", ruleID))
		}
		if rcfg.Severity != "" && !validSeverity(rcfg.Severity) {
			errs = append(errs, fmt.Errorf("checks.rules.%s.severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", ruleID, rcfg.Severity))
		}
	}

	if cfg.MinSeverity != "" && !validSeverity(cfg.MinSeverity) {
		errs = append(errs, fmt.Errorf("checks.min_severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", cfg.MinSeverity))
	}
	if cfg.FailOnSeverity != "" && !validSeverity(cfg.FailOnSeverity) {
		errs = append(errs, fmt.Errorf("checks.fail_on_severity: invalid value %q; valid values: CRITICAL, HIGH, MEDIUM, LOW, INFO", cfg.FailOnSeverity))
	}

	return errs
}

func validSeverity(s string) bool {
	_, ok := validSeverities[strings.ToUpper(s)]
	return ok
}
