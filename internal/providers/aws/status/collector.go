// Package status reports on a deployed stack: its CloudFormation state, the
// function it created, both schedule rules, recent invocation metrics and
// the function's last log activity.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/log"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/deploy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// DefaultDays is the metric window used when Options.Days is not positive.
const DefaultDays = 7

// Options select the stack and metric window.
type Options struct {
	StackName string
	Days      int
}

// Collector gathers the deployed state of a stack.
type Collector interface {
	Collect(ctx context.Context, clients *common.ClientSet, opts Options) (*models.StackStatus, error)
}

// DefaultCollector is the production Collector. Only the CloudFormation
// lookup is fatal; every other lookup failure becomes a report warning.
type DefaultCollector struct {
	now func() time.Time
}

// NewDefaultCollector returns a collector that measures metric windows from
// the current time.
func NewDefaultCollector() *DefaultCollector {
	return &DefaultCollector{now: time.Now}
}

// NewDefaultCollectorAt returns a collector with a fixed clock.
func NewDefaultCollectorAt(now func() time.Time) *DefaultCollector {
	return &DefaultCollector{now: now}
}

// Collect builds the status report for opts.StackName.
func (c *DefaultCollector) Collect(ctx context.Context, clients *common.ClientSet, opts Options) (*models.StackStatus, error) {
	s, err := deploy.NewDeployer(clients.CloudFormation).Describe(ctx, opts.StackName)
	if err != nil {
		return nil, err
	}
	st := &models.StackStatus{StackName: opts.StackName}
	if s == nil {
		st.Status = deploy.StatusDoesNotExist
		return st, nil
	}

	st.StackID = aws.ToString(s.StackId)
	st.Status = string(s.StackStatus)
	st.Reason = aws.ToString(s.StackStatusReason)
	st.LastUpdated = aws.ToTime(s.CreationTime)
	if s.LastUpdatedTime != nil {
		st.LastUpdated = *s.LastUpdatedTime
	}
	st.Outputs = deploy.Outputs(s)
	st.Parameters = deploy.Parameters(s)

	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		log.Warn(ctx, "status lookup failed", "stack", opts.StackName, "detail", msg)
		st.Warnings = append(st.Warnings, msg)
	}

	if fn := st.Outputs[stack.OutputFunctionName]; fn != "" {
		st.Function = c.function(ctx, clients, fn, opts.Days, warn)
	} else {
		warn("stack has no %s output", stack.OutputFunctionName)
	}

	for _, tr := range stack.Triggers() {
		name := st.Outputs[tr.OutputName]
		if name == "" {
			warn("stack has no %s output", tr.OutputName)
			continue
		}
		ts := models.TriggerStatus{Name: name, Output: tr.OutputName}
		out, err := clients.EventBridge.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: aws.String(name)})
		if err != nil {
			warn("DescribeRule %s: %v", name, err)
		} else {
			ts.Expression = aws.ToString(out.ScheduleExpression)
			ts.State = string(out.State)
		}
		st.Triggers = append(st.Triggers, ts)
	}

	return st, nil
}

func (c *DefaultCollector) function(
	ctx context.Context,
	clients *common.ClientSet,
	name string,
	days int,
	warn func(string, ...any),
) *models.FunctionStatus {
	if days <= 0 {
		days = DefaultDays
	}
	fs := &models.FunctionStatus{Name: name, MetricDays: days}

	cfg, err := clients.Lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		warn("GetFunctionConfiguration %s: %v", name, err)
	} else {
		fs.Runtime = string(cfg.Runtime)
		fs.State = string(cfg.State)
		fs.LastModified = aws.ToString(cfg.LastModified)
		if cfg.Environment != nil {
			fs.Environment = cfg.Environment.Variables
		}
	}

	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)
	if fs.Invocations, err = sumMetric(ctx, clients.CloudWatch, name, "Invocations", start, end); err != nil {
		warn("Invocations metric: %v", err)
	}
	if fs.Errors, err = sumMetric(ctx, clients.CloudWatch, name, "Errors", start, end); err != nil {
		warn("Errors metric: %v", err)
	}

	if fs.LastLogEvent, err = lastLogEvent(ctx, clients.CloudWatchLogs, name); err != nil {
		warn("log group /aws/lambda/%s: %v", name, err)
	}
	return fs
}

// sumMetric returns the total of an AWS/Lambda metric for functionName over
// [start, end) at 1-day granularity.
func sumMetric(
	ctx context.Context,
	cw common.CloudWatchClient,
	functionName, metric string,
	start, end time.Time,
) (int64, error) {
	out, err := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/Lambda"),
		MetricName: aws.String(metric),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("FunctionName"), Value: aws.String(functionName)},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(86400),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
	})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, dp := range out.Datapoints {
		total += aws.ToFloat64(dp.Sum)
	}
	return int64(total), nil
}

// lastLogEvent returns the newest event time across the function's log
// streams, or nil when the log group does not exist yet.
func lastLogEvent(ctx context.Context, client common.CloudWatchLogsClient, functionName string) (*time.Time, error) {
	out, err := client.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String("/aws/lambda/" + functionName),
		OrderBy:      cwltypes.OrderByLastEventTime,
		Descending:   aws.Bool(true),
		Limit:        aws.Int32(1),
	})
	if common.IsAPIError(err, "ResourceNotFoundException") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(out.LogStreams) == 0 || out.LogStreams[0].LastEventTimestamp == nil {
		return nil, nil
	}
	t := time.UnixMilli(*out.LogStreams[0].LastEventTimestamp).UTC()
	return &t, nil
}
