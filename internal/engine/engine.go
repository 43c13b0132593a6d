package engine

import (
	"context"
	"fmt"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/policy"
)

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// ParseReportFormat validates a --format value.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(s); f {
	case ReportFormatJSON, ReportFormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q; valid values: table, json", s)
	}
}

// CheckOptions configures a single pre-deployment check run.
// It is the sole input to Engine.RunCheck.
type CheckOptions struct {
	// StackName is the stack that would be deployed.
	StackName string

	// Profile is the named AWS profile to use. Empty means the default profile.
	Profile string

	// Region is the deployment region. Empty means the profile's region.
	Region string

	// Runtime overrides the function runtime. Empty keeps the default.
	Runtime string

	// Parameters are the template parameter values keyed by logical ID.
	// Missing parameters take their template defaults.
	Parameters map[string]string

	// Offline skips all AWS calls; only template-level rules produce findings.
	Offline bool

	// Policy is applied to the raw findings. May be nil.
	Policy *policy.PolicyConfig
}

// Engine is the central orchestration interface.
// It coordinates stack synthesis, inventory collection and rule evaluation,
// returning a fully populated CheckReport.
//
// Engine must not call AWS SDK clients directly; it delegates to the
// provider and collector interfaces.
type Engine interface {
	RunCheck(ctx context.Context, opts CheckOptions) (*models.CheckReport, error)
}
