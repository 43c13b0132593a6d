package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
)

// ApplyPolicy returns findings with rule-level disables, severity overrides
// and the minimum severity applied. A nil cfg returns findings unchanged.
func ApplyPolicy(findings []models.Finding, cfg *PolicyConfig) []models.Finding {
	if cfg == nil {
		return findings
	}

	minRank, hasMin := models.SeverityRank[models.Severity(strings.ToUpper(cfg.MinSeverity))]

	result := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		ruleCfg, hasRule := cfg.Rules[f.RuleID]

		// Rule-level disable
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}

		// Severity override
		if hasRule && ruleCfg.Severity != "" {
			f.Severity = models.Severity(strings.ToUpper(ruleCfg.Severity))
		}

		if hasMin {
			if r, ok := models.SeverityRank[f.Severity]; ok && r > minRank {
				continue
			}
		}

		result = append(result, f)
	}

	return result
}
