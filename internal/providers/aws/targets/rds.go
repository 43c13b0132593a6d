package targets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
)

// collectRDSTargets looks up each DB instance identifier individually.
// DBInstanceNotFound marks the target as not found; other errors abort.
func collectRDSTargets(ctx context.Context, client common.RDSClient, ids []string) ([]models.RDSTarget, error) {
	ids = distinct(ids)
	targets := make([]models.RDSTarget, 0, len(ids))
	for _, id := range ids {
		out, err := client.DescribeDBInstances(ctx, &rdssvc.DescribeDBInstancesInput{
			DBInstanceIdentifier: aws.String(id),
		})
		if common.IsAPIError(err, "DBInstanceNotFound") {
			targets = append(targets, models.RDSTarget{DBInstanceID: id})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("DescribeDBInstances %s: %w", id, err)
		}
		if len(out.DBInstances) == 0 {
			targets = append(targets, models.RDSTarget{DBInstanceID: id})
			continue
		}
		db := out.DBInstances[0]
		targets = append(targets, models.RDSTarget{
			DBInstanceID: id,
			Found:        true,
			Status:       aws.ToString(db.DBInstanceStatus),
			Engine:       aws.ToString(db.Engine),
			ClusterID:    aws.ToString(db.DBClusterIdentifier),
		})
	}
	return targets, nil
}
