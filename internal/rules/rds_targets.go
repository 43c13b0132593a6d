package rules

import (
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
)

// RDSTargetNotFoundRule flags RDS identifiers with no matching DB instance
// in the deployment region.
type RDSTargetNotFoundRule struct{}

func (r RDSTargetNotFoundRule) ID() string   { return "RDS_TARGET_NOT_FOUND" }
func (r RDSTargetNotFoundRule) Name() string { return "RDS Target Not Found" }

func (r RDSTargetNotFoundRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Inventory == nil {
		return nil
	}
	var findings []models.Finding
	for _, t := range ctx.Inventory.RDSTargets {
		if t.Found {
			continue
		}
		findings = append(findings, models.Finding{
			ID:             fmt.Sprintf("%s-%s", r.ID(), t.DBInstanceID),
			RuleID:         r.ID(),
			ResourceID:     t.DBInstanceID,
			ResourceType:   models.ResourceRDSInstance,
			Region:         ctx.Inventory.Region,
			AccountID:      ctx.AccountID,
			Profile:        ctx.Profile,
			Severity:       models.SeverityHigh,
			Explanation:    fmt.Sprintf("RDS DB instance %s does not exist in %s.", t.DBInstanceID, ctx.Inventory.Region),
			Recommendation: "Use the DB instance identifier, not the endpoint or ARN, and deploy to the instance's region.",
			DetectedAt:     time.Now().UTC(),
		})
	}
	return findings
}

// RDSTargetClusterMemberRule flags RDS targets that belong to an Aurora
// cluster. StopDBInstance and StartDBInstance are rejected for cluster
// members; the cluster has to be stopped as a whole.
type RDSTargetClusterMemberRule struct{}

func (r RDSTargetClusterMemberRule) ID() string   { return "RDS_TARGET_CLUSTER_MEMBER" }
func (r RDSTargetClusterMemberRule) Name() string { return "RDS Target Is Cluster Member" }

func (r RDSTargetClusterMemberRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Inventory == nil {
		return nil
	}
	var findings []models.Finding
	for _, t := range ctx.Inventory.RDSTargets {
		if !t.Found || t.ClusterID == "" {
			continue
		}
		findings = append(findings, models.Finding{
			ID:             fmt.Sprintf("%s-%s", r.ID(), t.DBInstanceID),
			RuleID:         r.ID(),
			ResourceID:     t.DBInstanceID,
			ResourceType:   models.ResourceRDSInstance,
			Region:         ctx.Inventory.Region,
			AccountID:      ctx.AccountID,
			Profile:        ctx.Profile,
			Severity:       models.SeverityMedium,
			Explanation:    fmt.Sprintf("RDS DB instance %s is a member of cluster %s and cannot be stopped individually.", t.DBInstanceID, t.ClusterID),
			Recommendation: "Remove the instance from the RDS list and manage the cluster schedule separately.",
			DetectedAt:     time.Now().UTC(),
			Metadata: map[string]any{
				"cluster_id": t.ClusterID,
				"engine":     t.Engine,
			},
		})
	}
	return findings
}
