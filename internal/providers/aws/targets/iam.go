package targets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// simulatePolicy evaluates doc against every action in actions with
// resource "*". Results are returned in the order IAM reports them.
func simulatePolicy(
	ctx context.Context,
	client common.IAMClient,
	doc stack.PolicyDocument,
	actions []string,
) ([]models.ActionDecision, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	policyJSON, err := doc.JSON()
	if err != nil {
		return nil, err
	}

	paginator := iamsvc.NewSimulateCustomPolicyPaginator(client, &iamsvc.SimulateCustomPolicyInput{
		PolicyInputList: []string{policyJSON},
		ActionNames:     actions,
		ResourceArns:    []string{"*"},
	})

	var decisions []models.ActionDecision
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("SimulateCustomPolicy page: %w", err)
		}
		for _, r := range page.EvaluationResults {
			decisions = append(decisions, models.ActionDecision{
				Action:   aws.ToString(r.EvalActionName),
				Decision: string(r.EvalDecision),
				Allowed:  r.EvalDecision == iamtypes.PolicyEvaluationDecisionTypeAllowed,
			})
		}
	}
	return decisions, nil
}
