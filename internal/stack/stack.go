// Package stack defines the auto start/stop stack: two identifier-list
// parameters, an execution role with a static inline policy, one function
// hosted in S3, and two weekday cron rules that invoke it.
//
// The package only declares resources. The start/stop logic lives in the
// external script referenced by Code; schedules are evaluated by EventBridge.
package stack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/template"
)

// Template parameter logical IDs.
const (
	ParamEC2Resources = "Ec2Resources"
	ParamRDSResources = "RdsResources"
)

// Environment variable names seen by the function.
const (
	EnvEC2 = "ec2"
	EnvRDS = "rds"
)

// Resource logical IDs.
const (
	LogicalRole            = "LambdaRole"
	LogicalFunction        = "LambdaFunction"
	LogicalStartRule       = "AutoStartRule"
	LogicalStopRule        = "AutoStopRule"
	LogicalStartPermission = "AutoStartPermission"
	LogicalStopPermission  = "AutoStopPermission"
)

// Stack output names.
const (
	OutputFunctionName  = "FunctionName"
	OutputFunctionArn   = "FunctionArn"
	OutputRoleArn       = "RoleArn"
	OutputStartRuleName = "StartRuleName"
	OutputStopRuleName  = "StopRuleName"
)

// Defaults.
const (
	DefaultName    = "auto-start-stop"
	DefaultRuntime = "python3.12"
	Handler        = "index.handler"
)

// Code locates the pre-uploaded function artifact.
type Code struct {
	Bucket string
	Key    string
}

// DefaultCode is the fixed location of the start/stop script.
var DefaultCode = Code{
	Bucket: "afterfit-auto-start-stop-resources",
	Key:    "auto_start_stop.py",
}

// URI returns the s3:// form of the location.
func (c Code) URI() string {
	return "s3://" + c.Bucket + "/" + c.Key
}

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][-A-Za-z0-9]{0,127}$`)

// Definition is a fully configured stack, ready to synthesize.
type Definition struct {
	Name    string
	Runtime string
	Code    Code
}

// Option configures a Definition.
type Option func(*Definition)

// WithRuntime overrides the function runtime. Empty values are ignored.
func WithRuntime(runtime string) Option {
	return func(d *Definition) {
		if runtime != "" {
			d.Runtime = runtime
		}
	}
}

// New returns the definition for the stack called name. An empty name
// selects DefaultName.
func New(name string, opts ...Option) *Definition {
	if name == "" {
		name = DefaultName
	}
	d := &Definition{
		Name:    name,
		Runtime: DefaultRuntime,
		Code:    DefaultCode,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate checks the definition and its schedules.
func (d *Definition) Validate() []error {
	var errs []error
	if !stackNamePattern.MatchString(d.Name) {
		errs = append(errs, fmt.Errorf("stack name %q: must start with a letter and contain only letters, digits and hyphens (max 128)", d.Name))
	}
	if strings.TrimSpace(d.Runtime) == "" {
		errs = append(errs, fmt.Errorf("runtime: must not be empty"))
	}
	if d.Code.Bucket == "" || d.Code.Key == "" {
		errs = append(errs, fmt.Errorf("code: bucket and key are required"))
	}
	for _, tr := range Triggers() {
		if err := tr.Schedule.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tr.LogicalID, err))
		}
	}
	return errs
}

// EnvironmentParameters maps each function environment variable to the
// template parameter whose value it carries.
func EnvironmentParameters() map[string]string {
	return map[string]string{
		EnvEC2: ParamEC2Resources,
		EnvRDS: ParamRDSResources,
	}
}

// Template synthesizes the CloudFormation template for d.
func (d *Definition) Template() *template.Template {
	t := template.New(fmt.Sprintf("%s: weekday start/stop schedule for EC2 instances and RDS databases", d.Name))

	t.Parameters[ParamEC2Resources] = template.StringParameter("EC2 Resources to stop, seperate by coma", "")
	t.Parameters[ParamRDSResources] = template.StringParameter("RDS Resources to stop, seperate by coma", "")

	t.Resources[LogicalRole] = template.Resource{
		Type: "AWS::IAM::Role",
		Properties: map[string]any{
			"AssumeRolePolicyDocument": TrustPolicy(),
			"Policies": []any{
				map[string]any{
					"PolicyName":     InlinePolicyName,
					"PolicyDocument": CustomPolicy(),
				},
			},
		},
	}

	env := make(map[string]any)
	for name, param := range EnvironmentParameters() {
		env[name] = template.Ref(param)
	}
	t.Resources[LogicalFunction] = template.Resource{
		Type:      "AWS::Lambda::Function",
		DependsOn: []string{LogicalRole},
		Properties: map[string]any{
			"Runtime": d.Runtime,
			"Handler": Handler,
			"Code": map[string]any{
				"S3Bucket": d.Code.Bucket,
				"S3Key":    d.Code.Key,
			},
			"Role":        template.GetAtt(LogicalRole, "Arn"),
			"Environment": map[string]any{"Variables": env},
		},
	}

	for _, tr := range Triggers() {
		t.Resources[tr.LogicalID] = template.Resource{
			Type: "AWS::Events::Rule",
			Properties: map[string]any{
				"Description":        tr.Description,
				"ScheduleExpression": tr.Schedule.Expression(),
				"State":              "ENABLED",
				"Targets": []any{
					map[string]any{
						"Id":  "Target0",
						"Arn": template.GetAtt(LogicalFunction, "Arn"),
					},
				},
			},
		}
		t.Resources[tr.PermissionID] = template.Resource{
			Type: "AWS::Lambda::Permission",
			Properties: map[string]any{
				"Action":       "lambda:InvokeFunction",
				"FunctionName": template.GetAtt(LogicalFunction, "Arn"),
				"Principal":    "events.amazonaws.com",
				"SourceArn":    template.GetAtt(tr.LogicalID, "Arn"),
			},
		}
		t.Outputs[tr.OutputName] = template.Output{
			Description: tr.Description,
			Value:       template.Ref(tr.LogicalID),
		}
	}

	t.Outputs[OutputFunctionName] = template.Output{Value: template.Ref(LogicalFunction)}
	t.Outputs[OutputFunctionArn] = template.Output{Value: template.GetAtt(LogicalFunction, "Arn")}
	t.Outputs[OutputRoleArn] = template.Output{Value: template.GetAtt(LogicalRole, "Arn")}

	return t
}

// ParameterValues returns the template parameter values for the two
// identifier lists. The strings are passed through unmodified.
func ParameterValues(ec2Resources, rdsResources string) map[string]string {
	return map[string]string{
		ParamEC2Resources: ec2Resources,
		ParamRDSResources: rdsResources,
	}
}

// Environment resolves the function environment that a deployment with
// values would produce.
func (d *Definition) Environment(values map[string]string) (map[string]string, error) {
	t := d.Template()
	filled, err := t.ParameterValues(values)
	if err != nil {
		return nil, err
	}
	doc, err := t.Resolve(filled)
	if err != nil {
		return nil, err
	}

	fn, _ := lookup(doc, "Resources", LogicalFunction, "Properties", "Environment", "Variables").(map[string]any)
	if fn == nil {
		return nil, fmt.Errorf("function %s has no environment", LogicalFunction)
	}
	env := make(map[string]string, len(fn))
	for k, v := range fn {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("environment variable %q did not resolve to a string", k)
		}
		env[k] = s
	}
	return env, nil
}

// Identifiers splits an identifier list for inspection. It is used only by
// pre-deployment checks; deployed values are never split or rewritten.
func Identifiers(list string) []string {
	var ids []string
	for _, part := range strings.Split(list, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func lookup(doc map[string]any, path ...string) any {
	var cur any = doc
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}
