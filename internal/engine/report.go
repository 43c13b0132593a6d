package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rules"
)

// buildReport assembles the final CheckReport from the rule context and
// policy-filtered findings. Findings are first merged per resource (same
// ResourceID+Region), then sorted CRITICAL → HIGH → MEDIUM → LOW → INFO,
// ties broken by ResourceID.
func buildReport(rctx rules.RuleContext, findings []models.Finding) *models.CheckReport {
	merged := mergeFindings(findings)
	sortFindings(merged)
	report := &models.CheckReport{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		StackName:   rctx.StackName,
		Profile:     rctx.Profile,
		AccountID:   rctx.AccountID,
		Region:      rctx.Region,
		Parameters:  rctx.Parameters,
		Summary:     computeSummary(merged),
		Findings:    merged,
	}
	if rctx.Inventory != nil {
		report.Warnings = rctx.Inventory.Warnings
	}
	return report
}

// findingGroupKey is the composite key used to group findings by resource.
type findingGroupKey struct {
	resourceID string
	region     string
}

// mergeFindings collapses findings that refer to the same resource
// (same ResourceID + Region) into a single Finding:
//   - Severity: highest (lowest SeverityRank) across the group
//   - Metadata["rules"]: []string of every RuleID that fired on this resource
//
// All other fields are taken from the first finding in the group. Additional
// Metadata keys from later findings are merged in without overwriting keys
// already set by earlier findings.
// Insertion order of groups is preserved so sortFindings controls final order.
func mergeFindings(raw []models.Finding) []models.Finding {
	type entry struct {
		f       models.Finding
		ruleIDs []string
	}

	index := make(map[findingGroupKey]int)
	var order []findingGroupKey
	entries := make([]entry, 0, len(raw))

	for _, f := range raw {
		key := findingGroupKey{resourceID: f.ResourceID, region: f.Region}
		pos, exists := index[key]
		if !exists {
			meta := make(map[string]any, len(f.Metadata)+1)
			for k, v := range f.Metadata {
				meta[k] = v
			}
			f.Metadata = meta
			entries = append(entries, entry{f: f, ruleIDs: []string{f.RuleID}})
			index[key] = len(entries) - 1
			order = append(order, key)
			continue
		}

		e := &entries[pos]
		e.ruleIDs = append(e.ruleIDs, f.RuleID)

		if models.SeverityRank[f.Severity] < models.SeverityRank[e.f.Severity] {
			e.f.Severity = f.Severity
		}

		for k, v := range f.Metadata {
			if _, alreadySet := e.f.Metadata[k]; !alreadySet {
				e.f.Metadata[k] = v
			}
		}
	}

	result := make([]models.Finding, 0, len(entries))
	for _, key := range order {
		e := &entries[index[key]]
		e.f.Metadata["rules"] = e.ruleIDs
		result = append(result, e.f)
	}
	return result
}

// sortFindings sorts findings in-place: severity descending (CRITICAL first),
// then ResourceID ascending within the same severity.
func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri := models.SeverityRank[findings[i].Severity]
		rj := models.SeverityRank[findings[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return findings[i].ResourceID < findings[j].ResourceID
	})
}

// computeSummary aggregates finding counts across all severity levels.
func computeSummary(findings []models.Finding) models.CheckSummary {
	var s models.CheckSummary
	s.TotalFindings = len(findings)
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			s.CriticalFindings++
		case models.SeverityHigh:
			s.HighFindings++
		case models.SeverityMedium:
			s.MediumFindings++
		case models.SeverityLow:
			s.LowFindings++
		case models.SeverityInfo:
			s.InfoFindings++
		}
	}
	return s
}
