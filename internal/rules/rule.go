package rules

import (
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// RuleContext carries everything collected for a single check run.
// It is the sole input to Rule.Evaluate; rules must never make network calls
// or read external state.
type RuleContext struct {
	// StackName is the stack being checked.
	StackName string

	// AccountID is the AWS account the stack would be deployed to. Empty
	// when the check runs offline.
	AccountID string

	// Profile is the AWS profile name for this run.
	Profile string

	// Region is the deployment region.
	Region string

	// Definition is the stack that would be deployed.
	Definition *stack.Definition

	// Parameters holds the template parameter values exactly as they would
	// be passed to CloudFormation.
	Parameters map[string]string

	// Inventory holds live account state. Nil when the check runs offline;
	// rules that need it must return no findings in that case.
	Inventory *models.Inventory
}

// Rule is a single deterministic pre-deployment check.
// Rules must be stateless and safe to call concurrently.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "EC2_TARGET_NOT_FOUND").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate inspects the provided context and returns zero or more findings.
	// An empty slice means no issue was detected.
	Evaluate(ctx RuleContext) []models.Finding
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every registered rule against ctx and merges results.
	EvaluateAll(ctx RuleContext) []models.Finding
}
