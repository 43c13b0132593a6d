package targets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
)

// ec2NotFoundCodes are returned when any identifier in a DescribeInstances
// request does not resolve. The whole request fails in that case.
var ec2NotFoundCodes = []string{"InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed"}

// collectEC2Targets resolves ids in one paged DescribeInstances call. When
// the batch is rejected because some identifier is unknown, it falls back to
// one call per identifier so the known ones are still reported.
//
// The result has one entry per distinct id, in input order.
func collectEC2Targets(ctx context.Context, client common.EC2Client, ids []string) ([]models.EC2Target, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := describeInstances(ctx, client, ids)
	if common.IsAPIError(err, ec2NotFoundCodes...) {
		found = make(map[string]ec2types.Instance, len(ids))
		for _, id := range ids {
			one, err := describeInstances(ctx, client, []string{id})
			if common.IsAPIError(err, ec2NotFoundCodes...) {
				continue
			}
			if err != nil {
				return nil, err
			}
			for k, v := range one {
				found[k] = v
			}
		}
	} else if err != nil {
		return nil, err
	}

	targets := make([]models.EC2Target, 0, len(ids))
	for _, id := range ids {
		inst, ok := found[id]
		if !ok {
			targets = append(targets, models.EC2Target{InstanceID: id})
			continue
		}
		targets = append(targets, toEC2Target(inst))
	}
	return targets, nil
}

func describeInstances(ctx context.Context, client common.EC2Client, ids []string) (map[string]ec2types.Instance, error) {
	paginator := ec2svc.NewDescribeInstancesPaginator(client, &ec2svc.DescribeInstancesInput{
		InstanceIds: ids,
	})
	out := make(map[string]ec2types.Instance, len(ids))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances page: %w", err)
		}
		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				out[aws.ToString(inst.InstanceId)] = inst
			}
		}
	}
	return out, nil
}

// toEC2Target converts an SDK Instance to the internal model.
func toEC2Target(inst ec2types.Instance) models.EC2Target {
	t := models.EC2Target{
		InstanceID: aws.ToString(inst.InstanceId),
		Found:      true,
		Lifecycle:  string(inst.InstanceLifecycle),
	}
	if inst.State != nil {
		t.State = string(inst.State.Name)
	}
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" {
			t.Name = aws.ToString(tag.Value)
		}
	}
	if t.Lifecycle == "" {
		t.Lifecycle = "on-demand"
	}
	return t
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
