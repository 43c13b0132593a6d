// Package deploy creates, updates and deletes the CloudFormation stack that
// carries the synthesized template.
package deploy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/uuid"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/log"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
)

// Operation is the stack change a call performed.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
	OperationNone   Operation = "NONE"
)

// DefaultTimeout bounds how long Deploy and Destroy wait for completion.
const DefaultTimeout = 15 * time.Minute

// StatusDoesNotExist is reported for stacks CloudFormation does not know.
const StatusDoesNotExist = "DOES_NOT_EXIST"

// Options describe one deployment.
type Options struct {
	StackName    string
	TemplateBody string

	// Parameters are passed to CloudFormation verbatim.
	Parameters map[string]string

	// Tags are applied to the stack and propagated to its resources.
	Tags map[string]string

	// Wait blocks until the stack reaches a terminal state.
	Wait    bool
	Timeout time.Duration
}

// Result reports what a Deploy or Destroy call did.
type Result struct {
	StackName string            `json:"stack_name"`
	StackID   string            `json:"stack_id,omitempty"`
	Operation Operation         `json:"operation"`
	Status    string            `json:"status"`
	Outputs   map[string]string `json:"outputs,omitempty"`
}

// WaitFunc blocks until the stack operation op on stackName completes.
type WaitFunc func(ctx context.Context, client common.CloudFormationClient, op Operation, stackName string, timeout time.Duration) error

// Deployer drives CloudFormation for a single stack at a time.
//
// Inject a custom WaitFunc via NewDeployerWithWait to avoid the SDK
// waiters' polling delays in unit tests.
type Deployer struct {
	client common.CloudFormationClient
	wait   WaitFunc
}

// NewDeployer returns a Deployer that waits with the SDK stack waiters.
func NewDeployer(client common.CloudFormationClient) *Deployer {
	return &Deployer{client: client, wait: waitForStack}
}

// NewDeployerWithWait returns a Deployer that uses wait instead of the SDK
// stack waiters.
func NewDeployerWithWait(client common.CloudFormationClient, wait WaitFunc) *Deployer {
	return &Deployer{client: client, wait: wait}
}

// Describe returns the named stack, or nil when it does not exist.
func (d *Deployer) Describe(ctx context.Context, stackName string) (*cftypes.Stack, error) {
	out, err := d.client.DescribeStacks(ctx, &cfn.DescribeStacksInput{StackName: aws.String(stackName)})
	if err != nil {
		if isValidation(err, "does not exist") {
			return nil, nil
		}
		return nil, fmt.Errorf("DescribeStacks %s: %w", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// Deploy creates the stack when it does not exist and updates it otherwise.
// An update with no changes returns OperationNone and no error.
func (d *Deployer) Deploy(ctx context.Context, opts Options) (*Result, error) {
	existing, err := d.Describe(ctx, opts.StackName)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		status := string(existing.StackStatus)
		switch {
		case existing.StackStatus == cftypes.StackStatusRollbackComplete:
			return nil, fmt.Errorf("stack %s is in %s and cannot be updated; run destroy first", opts.StackName, status)
		case strings.HasSuffix(status, "_IN_PROGRESS"):
			return nil, fmt.Errorf("stack %s has an operation in progress (%s)", opts.StackName, status)
		}
	}

	params := toParameters(opts.Parameters)
	tags := toTags(opts.Tags)
	capabilities := []cftypes.Capability{cftypes.CapabilityCapabilityIam}

	var (
		op      Operation
		stackID string
	)
	if existing == nil {
		op = OperationCreate
		log.Info(ctx, "creating stack", "stack", opts.StackName)
		out, err := d.client.CreateStack(ctx, &cfn.CreateStackInput{
			StackName:          aws.String(opts.StackName),
			TemplateBody:       aws.String(opts.TemplateBody),
			Parameters:         params,
			Capabilities:       capabilities,
			Tags:               tags,
			ClientRequestToken: aws.String(uuid.NewString()),
		})
		if err != nil {
			return nil, fmt.Errorf("CreateStack %s: %w", opts.StackName, err)
		}
		stackID = aws.ToString(out.StackId)
	} else {
		op = OperationUpdate
		log.Info(ctx, "updating stack", "stack", opts.StackName, "status", existing.StackStatus)
		out, err := d.client.UpdateStack(ctx, &cfn.UpdateStackInput{
			StackName:          aws.String(opts.StackName),
			TemplateBody:       aws.String(opts.TemplateBody),
			Parameters:         params,
			Capabilities:       capabilities,
			Tags:               tags,
			ClientRequestToken: aws.String(uuid.NewString()),
		})
		if isValidation(err, "No updates are to be performed") {
			log.Info(ctx, "stack is up to date", "stack", opts.StackName)
			return resultFrom(opts.StackName, OperationNone, existing), nil
		}
		if err != nil {
			return nil, fmt.Errorf("UpdateStack %s: %w", opts.StackName, err)
		}
		stackID = aws.ToString(out.StackId)
	}

	if !opts.Wait {
		return &Result{
			StackName: opts.StackName,
			StackID:   stackID,
			Operation: op,
			Status:    string(op) + "_IN_PROGRESS",
		}, nil
	}

	if err := d.wait(ctx, d.client, op, opts.StackName, timeoutOrDefault(opts.Timeout)); err != nil {
		d.logFailure(ctx, opts.StackName)
		return nil, fmt.Errorf("waiting for %s of stack %s: %w", strings.ToLower(string(op)), opts.StackName, err)
	}
	final, err := d.Describe(ctx, opts.StackName)
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, fmt.Errorf("stack %s disappeared after %s", opts.StackName, strings.ToLower(string(op)))
	}
	return resultFrom(opts.StackName, op, final), nil
}

// Destroy deletes the stack. A stack that does not exist is not an error.
func (d *Deployer) Destroy(ctx context.Context, stackName string, wait bool, timeout time.Duration) (*Result, error) {
	existing, err := d.Describe(ctx, stackName)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		log.Info(ctx, "stack does not exist", "stack", stackName)
		return &Result{StackName: stackName, Operation: OperationNone, Status: StatusDoesNotExist}, nil
	}

	log.Info(ctx, "deleting stack", "stack", stackName)
	if _, err := d.client.DeleteStack(ctx, &cfn.DeleteStackInput{
		StackName:          aws.String(stackName),
		ClientRequestToken: aws.String(uuid.NewString()),
	}); err != nil {
		return nil, fmt.Errorf("DeleteStack %s: %w", stackName, err)
	}

	res := &Result{
		StackName: stackName,
		StackID:   aws.ToString(existing.StackId),
		Operation: OperationDelete,
		Status:    string(cftypes.StackStatusDeleteInProgress),
	}
	if !wait {
		return res, nil
	}
	if err := d.wait(ctx, d.client, OperationDelete, stackName, timeoutOrDefault(timeout)); err != nil {
		d.logFailure(ctx, stackName)
		return nil, fmt.Errorf("waiting for delete of stack %s: %w", stackName, err)
	}
	res.Status = string(cftypes.StackStatusDeleteComplete)
	return res, nil
}

// logFailure records the stack's last status and reason after a wait fails.
func (d *Deployer) logFailure(ctx context.Context, stackName string) {
	s, err := d.Describe(ctx, stackName)
	if err != nil || s == nil {
		return
	}
	log.Error(ctx, "stack operation did not complete",
		"stack", stackName,
		"status", s.StackStatus,
		"reason", aws.ToString(s.StackStatusReason))
}

// Outputs flattens the stack's outputs into a map keyed by output name.
func Outputs(s *cftypes.Stack) map[string]string {
	if s == nil || len(s.Outputs) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Outputs))
	for _, o := range s.Outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out
}

// Parameters flattens the stack's parameters into a map keyed by name.
func Parameters(s *cftypes.Stack) map[string]string {
	if s == nil || len(s.Parameters) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Parameters))
	for _, p := range s.Parameters {
		out[aws.ToString(p.ParameterKey)] = aws.ToString(p.ParameterValue)
	}
	return out
}

func resultFrom(stackName string, op Operation, s *cftypes.Stack) *Result {
	return &Result{
		StackName: stackName,
		StackID:   aws.ToString(s.StackId),
		Operation: op,
		Status:    string(s.StackStatus),
		Outputs:   Outputs(s),
	}
}

// waitForStack is the production WaitFunc backed by the SDK waiters.
func waitForStack(ctx context.Context, client common.CloudFormationClient, op Operation, stackName string, timeout time.Duration) error {
	in := &cfn.DescribeStacksInput{StackName: aws.String(stackName)}
	switch op {
	case OperationCreate:
		return cfn.NewStackCreateCompleteWaiter(client).Wait(ctx, in, timeout)
	case OperationUpdate:
		return cfn.NewStackUpdateCompleteWaiter(client).Wait(ctx, in, timeout)
	case OperationDelete:
		return cfn.NewStackDeleteCompleteWaiter(client).Wait(ctx, in, timeout)
	}
	return nil
}

func toParameters(values map[string]string) []cftypes.Parameter {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]cftypes.Parameter, 0, len(keys))
	for _, k := range keys {
		params = append(params, cftypes.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(values[k]),
		})
	}
	return params
}

func toTags(values map[string]string) []cftypes.Tag {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tags := make([]cftypes.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, cftypes.Tag{Key: aws.String(k), Value: aws.String(values[k])})
	}
	return tags
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// isValidation reports whether err is a CloudFormation ValidationError whose
// message contains substr. CloudFormation uses the one code for missing
// stacks and empty updates alike.
func isValidation(err error, substr string) bool {
	return common.IsAPIError(err, "ValidationError") &&
		strings.Contains(common.APIErrorMessage(err), substr)
}
