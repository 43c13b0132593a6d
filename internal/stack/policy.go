package stack

import "encoding/json"

// PolicyVersion is the IAM policy language version used by every document
// in the stack.
const PolicyVersion = "2012-10-17"

// InlinePolicyName is the name under which CustomPolicy is attached to the
// function's execution role.
const InlinePolicyName = "custom-lambda-role"

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is a single IAM policy statement. Resource is omitted for trust
// policies, Principal for identity policies.
type Statement struct {
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal,omitempty"`
	Action    []string          `json:"Action"`
	Resource  string            `json:"Resource,omitempty"`
}

// JSON returns the compact JSON encoding of the document.
func (d PolicyDocument) JSON() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Log-write and compute actions granted to the function.
var (
	logActions = []string{
		"logs:CreateLogGroup",
		"logs:CreateLogStream",
		"logs:PutLogEvents",
	}
	computeActions = []string{
		"ec2:Start*",
		"ec2:Stop*",
		"rds:DescribeDBInstances",
		"rds:StopDBInstance",
		"rds:StartDBInstance",
	}
)

// CustomPolicy returns the static permission document attached to the
// execution role: one log-write statement and one EC2/RDS start-stop
// statement, both on every resource. A fresh copy is returned on each call.
func CustomPolicy() PolicyDocument {
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{
			{
				Effect:   "Allow",
				Action:   append([]string(nil), logActions...),
				Resource: "*",
			},
			{
				Effect:   "Allow",
				Action:   append([]string(nil), computeActions...),
				Resource: "*",
			},
		},
	}
}

// TrustPolicy returns the role trust policy that lets the Lambda service
// assume the execution role.
func TrustPolicy() PolicyDocument {
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{
			{
				Effect:    "Allow",
				Principal: map[string]string{"Service": "lambda.amazonaws.com"},
				Action:    []string{"sts:AssumeRole"},
			},
		},
	}
}

// RequiredActions lists the concrete API actions the start/stop script calls.
// They are used to simulate CustomPolicy before deployment; the wildcard
// actions in the policy must cover each of them.
func RequiredActions() []string {
	return []string{
		"logs:CreateLogGroup",
		"logs:CreateLogStream",
		"logs:PutLogEvents",
		"ec2:StartInstances",
		"ec2:StopInstances",
		"rds:DescribeDBInstances",
		"rds:StartDBInstance",
		"rds:StopDBInstance",
	}
}
