package rules

import (
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
)

// EC2TargetNotFoundRule flags EC2 identifiers that do not resolve to an
// instance in the deployment region. StartInstances/StopInstances calls
// naming them would fail at run time.
type EC2TargetNotFoundRule struct{}

func (r EC2TargetNotFoundRule) ID() string   { return "EC2_TARGET_NOT_FOUND" }
func (r EC2TargetNotFoundRule) Name() string { return "EC2 Target Not Found" }

func (r EC2TargetNotFoundRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Inventory == nil {
		return nil
	}
	var findings []models.Finding
	for _, t := range ctx.Inventory.EC2Targets {
		if t.Found {
			continue
		}
		findings = append(findings, models.Finding{
			ID:             fmt.Sprintf("%s-%s", r.ID(), t.InstanceID),
			RuleID:         r.ID(),
			ResourceID:     t.InstanceID,
			ResourceType:   models.ResourceEC2Instance,
			Region:         ctx.Inventory.Region,
			AccountID:      ctx.AccountID,
			Profile:        ctx.Profile,
			Severity:       models.SeverityHigh,
			Explanation:    fmt.Sprintf("EC2 instance %s does not exist in %s.", t.InstanceID, ctx.Inventory.Region),
			Recommendation: "Check the identifier and the target region; the stack must be deployed in the region that hosts the instance.",
			DetectedAt:     time.Now().UTC(),
		})
	}
	return findings
}

// EC2TargetTerminatedRule flags EC2 targets that are terminated or being
// terminated. They can never be started again.
type EC2TargetTerminatedRule struct{}

func (r EC2TargetTerminatedRule) ID() string   { return "EC2_TARGET_TERMINATED" }
func (r EC2TargetTerminatedRule) Name() string { return "EC2 Target Terminated" }

func (r EC2TargetTerminatedRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Inventory == nil {
		return nil
	}
	var findings []models.Finding
	for _, t := range ctx.Inventory.EC2Targets {
		if !t.Found || (t.State != "terminated" && t.State != "shutting-down") {
			continue
		}
		findings = append(findings, models.Finding{
			ID:             fmt.Sprintf("%s-%s", r.ID(), t.InstanceID),
			RuleID:         r.ID(),
			ResourceID:     t.InstanceID,
			ResourceType:   models.ResourceEC2Instance,
			Region:         ctx.Inventory.Region,
			AccountID:      ctx.AccountID,
			Profile:        ctx.Profile,
			Severity:       models.SeverityMedium,
			Explanation:    fmt.Sprintf("EC2 instance %s is %s.", t.InstanceID, t.State),
			Recommendation: "Remove the instance from the EC2 list.",
			DetectedAt:     time.Now().UTC(),
			Metadata: map[string]any{
				"state": t.State,
				"name":  t.Name,
			},
		})
	}
	return findings
}
