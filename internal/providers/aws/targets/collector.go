// Package targets resolves the stack's identifier lists, code artifact and
// inline policy against a live account. It only reads; findings are left to
// the rule engine.
package targets

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/log"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// CollectOptions carries the inputs of one collection run.
type CollectOptions struct {
	// Region is the deployment region.
	Region string

	// EC2IDs and RDSIDs are the split identifier lists.
	EC2IDs []string
	RDSIDs []string

	// Code is the function artifact location.
	Code stack.Code

	// Policy is the inline policy document to simulate.
	Policy stack.PolicyDocument

	// Actions are the actions the policy must allow.
	Actions []string
}

// Collector gathers the live state pre-deployment checks need.
type Collector interface {
	Collect(ctx context.Context, clients *common.ClientSet, opts CollectOptions) (*models.Inventory, error)
}

// DefaultCollector is the production Collector. Target lookups fail the run;
// artifact and simulation problems that are not answers in themselves are
// recorded as inventory warnings.
type DefaultCollector struct{}

// NewDefaultCollector returns a DefaultCollector.
func NewDefaultCollector() *DefaultCollector {
	return &DefaultCollector{}
}

// Collect runs the EC2, RDS, S3 and IAM lookups concurrently.
func (c *DefaultCollector) Collect(ctx context.Context, clients *common.ClientSet, opts CollectOptions) (*models.Inventory, error) {
	inv := &models.Inventory{Region: opts.Region}

	var mu sync.Mutex
	warn := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		inv.Warnings = append(inv.Warnings, msg)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		targets, err := collectEC2Targets(gctx, clients.EC2, opts.EC2IDs)
		if err != nil {
			return err
		}
		inv.EC2Targets = targets
		return nil
	})

	g.Go(func() error {
		targets, err := collectRDSTargets(gctx, clients.RDS, opts.RDSIDs)
		if err != nil {
			return err
		}
		inv.RDSTargets = targets
		return nil
	})

	g.Go(func() error {
		code, err := HeadCodeArtifact(gctx, clients.S3, opts.Code)
		if err != nil {
			log.Warn(gctx, "code artifact lookup failed", "uri", opts.Code.URI(), "error", err)
			warn("code artifact: " + err.Error())
			return nil
		}
		inv.Code = code
		return nil
	})

	g.Go(func() error {
		decisions, err := simulatePolicy(gctx, clients.IAM, opts.Policy, opts.Actions)
		if err != nil {
			log.Warn(gctx, "policy simulation failed", "error", err)
			warn("policy simulation: " + err.Error())
			return nil
		}
		inv.Permissions = decisions
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug(ctx, "collected inventory",
		"ec2", len(inv.EC2Targets), "rds", len(inv.RDSTargets), "warnings", len(inv.Warnings))
	return inv, nil
}
