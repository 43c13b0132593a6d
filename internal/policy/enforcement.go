package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
)

// ShouldFail reports whether any finding in findings has a severity at or above
// the configured fail_on_severity threshold.
//
// It returns false when:
//   - cfg is nil (no policy loaded)
//   - fail_on_severity is empty or an unrecognised value
//   - findings is empty
func ShouldFail(findings []models.Finding, cfg *PolicyConfig) bool {
	if cfg == nil || cfg.FailOnSeverity == "" {
		return false
	}
	threshold, ok := models.SeverityRank[models.Severity(strings.ToUpper(cfg.FailOnSeverity))]
	if !ok {
		return false
	}
	for _, f := range findings {
		if r, ok := models.SeverityRank[f.Severity]; ok && r <= threshold {
			return true
		}
	}
	return false
}
