package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// WildcardResourceScopeRule flags inline policy statements that grant their
// actions on every resource in the account. The execution role applies to
// whatever identifiers the parameters name, so the grant is account-wide.
type WildcardResourceScopeRule struct{}

func (r WildcardResourceScopeRule) ID() string   { return "WILDCARD_RESOURCE_SCOPE" }
func (r WildcardResourceScopeRule) Name() string { return "Policy Statement Scoped To All Resources" }

// Evaluate returns one MEDIUM finding per statement with Resource "*".
// It needs no live state and fires offline too.
func (r WildcardResourceScopeRule) Evaluate(ctx RuleContext) []models.Finding {
	var findings []models.Finding
	for i, st := range stack.CustomPolicy().Statement {
		if st.Resource != "*" {
			continue
		}
		resourceID := fmt.Sprintf("%s/statement-%d", stack.InlinePolicyName, i)
		findings = append(findings, models.Finding{
			ID:             fmt.Sprintf("%s-%s", r.ID(), resourceID),
			RuleID:         r.ID(),
			ResourceID:     resourceID,
			ResourceType:   models.ResourceIAMPolicy,
			Region:         ctx.Region,
			AccountID:      ctx.AccountID,
			Profile:        ctx.Profile,
			Severity:       models.SeverityMedium,
			Explanation:    fmt.Sprintf("Inline policy %s grants %s on every resource.", stack.InlinePolicyName, strings.Join(st.Action, ", ")),
			Recommendation: "Accept the account-wide grant knowingly, or tag the target instances and restrict the role with a condition on the tag.",
			DetectedAt:     time.Now().UTC(),
			Metadata: map[string]any{
				"actions": st.Action,
			},
		})
	}
	return findings
}
