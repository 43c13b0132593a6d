package engine

import (
	"reflect"
	"testing"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
)

func newFinding(resourceID, region, ruleID string, sev models.Severity) models.Finding {
	return models.Finding{
		ID:         ruleID + "-" + resourceID,
		RuleID:     ruleID,
		ResourceID: resourceID,
		Region:     region,
		Severity:   sev,
	}
}

func TestMergeFindings_SameResource(t *testing.T) {
	f1 := newFinding("i-1", "us-east-1", "EC2_TARGET_TERMINATED", models.SeverityMedium)
	f1.Metadata = map[string]any{"state": "terminated"}
	f2 := newFinding("i-1", "us-east-1", "DUPLICATE_TARGET_ID", models.SeverityLow)
	f2.Metadata = map[string]any{"state": "ignored", "count": 2}

	merged := mergeFindings([]models.Finding{f2, f1})
	if len(merged) != 1 {
		t.Fatalf("want 1 merged finding; got %d", len(merged))
	}
	m := merged[0]
	if m.Severity != models.SeverityMedium {
		t.Errorf("severity = %s; want MEDIUM (highest in group)", m.Severity)
	}
	if m.RuleID != "DUPLICATE_TARGET_ID" {
		t.Errorf("rule = %s; want first finding's rule", m.RuleID)
	}
	if m.Metadata["state"] != "ignored" {
		t.Errorf("metadata state = %v; earlier keys must not be overwritten", m.Metadata["state"])
	}
	want := []string{"DUPLICATE_TARGET_ID", "EC2_TARGET_TERMINATED"}
	if !reflect.DeepEqual(m.Metadata["rules"], want) {
		t.Errorf("rules = %v; want %v", m.Metadata["rules"], want)
	}
	if _, ok := f2.Metadata["rules"]; ok {
		t.Error("input metadata was mutated")
	}
}

func TestMergeFindings_DifferentRegionsKeptApart(t *testing.T) {
	merged := mergeFindings([]models.Finding{
		newFinding("db-1", "us-east-1", "RDS_TARGET_NOT_FOUND", models.SeverityHigh),
		newFinding("db-1", "eu-west-1", "RDS_TARGET_NOT_FOUND", models.SeverityHigh),
	})
	if len(merged) != 2 {
		t.Errorf("want 2 findings; got %d", len(merged))
	}
}

func TestSortFindings_SeverityThenResource(t *testing.T) {
	findings := []models.Finding{
		newFinding("b", "", "R", models.SeverityInfo),
		newFinding("z", "", "R", models.SeverityHigh),
		newFinding("a", "", "R", models.SeverityHigh),
		newFinding("c", "", "R", models.SeverityCritical),
	}
	sortFindings(findings)
	var got []string
	for _, f := range findings {
		got = append(got, f.ResourceID)
	}
	if want := []string{"c", "a", "z", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v; want %v", got, want)
	}
}

func TestComputeSummary(t *testing.T) {
	s := computeSummary([]models.Finding{
		{Severity: models.SeverityCritical},
		{Severity: models.SeverityHigh},
		{Severity: models.SeverityHigh},
		{Severity: models.SeverityLow},
		{Severity: models.SeverityInfo},
	})
	want := models.CheckSummary{
		TotalFindings:    5,
		CriticalFindings: 1,
		HighFindings:     2,
		LowFindings:      1,
		InfoFindings:     1,
	}
	if s != want {
		t.Errorf("summary = %+v; want %+v", s, want)
	}
}
