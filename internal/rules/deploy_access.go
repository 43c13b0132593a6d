package rules

import (
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// CodeArtifactMissingRule flags a function code object that cannot be read
// from its bucket. CloudFormation would fail creating the function and roll
// the whole stack back.
type CodeArtifactMissingRule struct{}

func (r CodeArtifactMissingRule) ID() string   { return "CODE_ARTIFACT_MISSING" }
func (r CodeArtifactMissingRule) Name() string { return "Function Code Artifact Missing" }

func (r CodeArtifactMissingRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Inventory == nil || ctx.Inventory.Code == nil || ctx.Inventory.Code.Found {
		return nil
	}
	code := ctx.Inventory.Code
	uri := stack.Code{Bucket: code.Bucket, Key: code.Key}.URI()
	reason := code.Reason
	if reason == "" {
		reason = "not found"
	}
	return []models.Finding{{
		ID:             fmt.Sprintf("%s-%s", r.ID(), uri),
		RuleID:         r.ID(),
		ResourceID:     uri,
		ResourceType:   models.ResourceS3Object,
		Region:         ctx.Inventory.Region,
		AccountID:      ctx.AccountID,
		Profile:        ctx.Profile,
		Severity:       models.SeverityCritical,
		Explanation:    fmt.Sprintf("Function code %s is not readable: %s.", uri, reason),
		Recommendation: "Upload the start/stop script to the bucket, in the same region as the stack, before deploying.",
		DetectedAt:     time.Now().UTC(),
		Metadata: map[string]any{
			"reason": reason,
		},
	}}
}

// ActionNotAllowedRule flags required actions that IAM policy simulation
// does not allow under the inline policy. The function would fail at run
// time on the first call to such an action.
type ActionNotAllowedRule struct{}

func (r ActionNotAllowedRule) ID() string   { return "ACTION_NOT_ALLOWED" }
func (r ActionNotAllowedRule) Name() string { return "Required Action Not Allowed" }

func (r ActionNotAllowedRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Inventory == nil {
		return nil
	}
	var findings []models.Finding
	for _, d := range ctx.Inventory.Permissions {
		if d.Allowed {
			continue
		}
		findings = append(findings, models.Finding{
			ID:             fmt.Sprintf("%s-%s", r.ID(), d.Action),
			RuleID:         r.ID(),
			ResourceID:     d.Action,
			ResourceType:   models.ResourceIAMPolicy,
			Region:         ctx.Inventory.Region,
			AccountID:      ctx.AccountID,
			Profile:        ctx.Profile,
			Severity:       models.SeverityHigh,
			Explanation:    fmt.Sprintf("IAM simulation of %s returned %s for %s.", stack.InlinePolicyName, d.Decision, d.Action),
			Recommendation: "Grant the action in the inline policy, or check that it is spelled as IAM expects.",
			DetectedAt:     time.Now().UTC(),
			Metadata: map[string]any{
				"decision": d.Decision,
			},
		})
	}
	return findings
}
