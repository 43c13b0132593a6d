package rules

import (
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// EmptyTargetListRule flags a stack whose identifier lists are both empty.
// Such a deployment succeeds, but the function has nothing to act on.
type EmptyTargetListRule struct{}

func (r EmptyTargetListRule) ID() string   { return "EMPTY_TARGET_LIST" }
func (r EmptyTargetListRule) Name() string { return "No Start/Stop Targets" }

func (r EmptyTargetListRule) Evaluate(ctx RuleContext) []models.Finding {
	if len(stack.Identifiers(ctx.Parameters[stack.ParamEC2Resources])) > 0 ||
		len(stack.Identifiers(ctx.Parameters[stack.ParamRDSResources])) > 0 {
		return nil
	}
	return []models.Finding{{
		ID:             fmt.Sprintf("%s-%s", r.ID(), ctx.StackName),
		RuleID:         r.ID(),
		ResourceID:     ctx.StackName,
		ResourceType:   models.ResourceStackParam,
		Region:         ctx.Region,
		AccountID:      ctx.AccountID,
		Profile:        ctx.Profile,
		Severity:       models.SeverityInfo,
		Explanation:    fmt.Sprintf("Both %s and %s are empty; the scheduled function will not start or stop anything.", stack.ParamEC2Resources, stack.ParamRDSResources),
		Recommendation: "Pass --ec2 and/or --rds, or set parameters.ec2_resources / parameters.rds_resources in the config file.",
		DetectedAt:     time.Now().UTC(),
	}}
}

// DuplicateTargetIDRule flags identifiers listed more than once in the same
// parameter. Each duplicate produces one finding regardless of its count.
type DuplicateTargetIDRule struct{}

func (r DuplicateTargetIDRule) ID() string   { return "DUPLICATE_TARGET_ID" }
func (r DuplicateTargetIDRule) Name() string { return "Duplicate Target Identifier" }

func (r DuplicateTargetIDRule) Evaluate(ctx RuleContext) []models.Finding {
	var findings []models.Finding
	for _, p := range []struct {
		param string
		typ   models.ResourceType
	}{
		{stack.ParamEC2Resources, models.ResourceEC2Instance},
		{stack.ParamRDSResources, models.ResourceRDSInstance},
	} {
		counts := make(map[string]int)
		var order []string
		for _, id := range stack.Identifiers(ctx.Parameters[p.param]) {
			if counts[id] == 0 {
				order = append(order, id)
			}
			counts[id]++
		}
		for _, id := range order {
			if counts[id] < 2 {
				continue
			}
			findings = append(findings, models.Finding{
				ID:             fmt.Sprintf("%s-%s", r.ID(), id),
				RuleID:         r.ID(),
				ResourceID:     id,
				ResourceType:   p.typ,
				Region:         ctx.Region,
				AccountID:      ctx.AccountID,
				Profile:        ctx.Profile,
				Severity:       models.SeverityLow,
				Explanation:    fmt.Sprintf("%s lists %s %d times.", p.param, id, counts[id]),
				Recommendation: "Remove the repeated identifier; the function would issue the same call more than once.",
				DetectedAt:     time.Now().UTC(),
				Metadata: map[string]any{
					"parameter": p.param,
					"count":     counts[id],
				},
			})
		}
	}
	return findings
}
