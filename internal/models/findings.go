package models

import "time"

// Severity represents the impact level of a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// SeverityRank maps Severity values to sort keys (lower = higher priority).
var SeverityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// ResourceType identifies the kind of resource a finding refers to.
type ResourceType string

const (
	ResourceEC2Instance ResourceType = "EC2_INSTANCE"
	ResourceRDSInstance ResourceType = "RDS_INSTANCE"
	ResourceIAMPolicy   ResourceType = "IAM_POLICY"
	ResourceS3Object    ResourceType = "S3_OBJECT"
	ResourceStackParam  ResourceType = "STACK_PARAMETER"
)

// Finding is a single issue detected by a check rule.
type Finding struct {
	ID             string         `json:"id"`
	RuleID         string         `json:"rule_id"`
	ResourceID     string         `json:"resource_id"`
	ResourceType   ResourceType   `json:"resource_type"`
	Region         string         `json:"region,omitempty"`
	AccountID      string         `json:"account_id,omitempty"`
	Profile        string         `json:"profile,omitempty"`
	Severity       Severity       `json:"severity"`
	Explanation    string         `json:"explanation"`
	Recommendation string         `json:"recommendation"`
	DetectedAt     time.Time      `json:"detected_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CheckSummary aggregates finding counts per severity.
type CheckSummary struct {
	TotalFindings    int `json:"total_findings"`
	CriticalFindings int `json:"critical_findings"`
	HighFindings     int `json:"high_findings"`
	MediumFindings   int `json:"medium_findings"`
	LowFindings      int `json:"low_findings"`
	InfoFindings     int `json:"info_findings"`
}

// CheckReport is the output of a pre-deployment check run.
type CheckReport struct {
	ReportID    string            `json:"report_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	StackName   string            `json:"stack_name"`
	Profile     string            `json:"profile,omitempty"`
	AccountID   string            `json:"account_id,omitempty"`
	Region      string            `json:"region,omitempty"`
	Offline     bool              `json:"offline"`
	Parameters  map[string]string `json:"parameters"`
	Summary     CheckSummary      `json:"summary"`
	Findings    []Finding         `json:"findings"`

	// Warnings lists collection problems that did not abort the run, such as
	// an IAM simulation the caller is not allowed to perform.
	Warnings []string `json:"warnings,omitempty"`
}
