package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/log"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/policy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/targets"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rules"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// DefaultEngine is the production implementation of Engine.
// It coordinates data collection, rule evaluation, and report assembly.
// It never calls the AWS SDK directly.
type DefaultEngine struct {
	provider  common.AWSClientProvider
	collector targets.Collector
	registry  rules.RuleRegistry
}

// NewDefaultEngine constructs a DefaultEngine wired to the supplied provider,
// target collector, and rule registry.
func NewDefaultEngine(
	provider common.AWSClientProvider,
	collector targets.Collector,
	registry rules.RuleRegistry,
) *DefaultEngine {
	return &DefaultEngine{
		provider:  provider,
		collector: collector,
		registry:  registry,
	}
}

// RunCheck implements Engine. It builds the stack definition, resolves the
// parameter values, collects the live inventory unless opts.Offline is set,
// evaluates every registered rule and applies opts.Policy.
func (e *DefaultEngine) RunCheck(ctx context.Context, opts CheckOptions) (*models.CheckReport, error) {
	def := stack.New(opts.StackName, stack.WithRuntime(opts.Runtime))
	if errs := def.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid stack: %w", errors.Join(errs...))
	}
	params, err := def.Template().ParameterValues(opts.Parameters)
	if err != nil {
		return nil, err
	}

	rctx := rules.RuleContext{
		StackName:  def.Name,
		Profile:    opts.Profile,
		Region:     opts.Region,
		Definition: def,
		Parameters: params,
	}

	if !opts.Offline {
		profile, err := e.provider.LoadProfile(ctx, opts.Profile, opts.Region)
		if err != nil {
			return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
		}
		rctx.Profile = profile.ProfileName
		rctx.AccountID = profile.AccountID
		rctx.Region = profile.Region

		ctx = log.With(ctx, "profile", profile.ProfileName, "region", profile.Region)
		inv, err := e.collector.Collect(ctx, profile.Clients, targets.CollectOptions{
			Region:  profile.Region,
			EC2IDs:  stack.Identifiers(params[stack.ParamEC2Resources]),
			RDSIDs:  stack.Identifiers(params[stack.ParamRDSResources]),
			Code:    def.Code,
			Policy:  stack.CustomPolicy(),
			Actions: stack.RequiredActions(),
		})
		if err != nil {
			return nil, fmt.Errorf("collect inventory for profile %q: %w", profile.ProfileName, err)
		}
		rctx.Inventory = inv
	}

	raw := e.registry.EvaluateAll(rctx)
	findings := policy.ApplyPolicy(raw, opts.Policy)
	log.Debug(ctx, "evaluated rules", "raw", len(raw), "kept", len(findings))

	report := buildReport(rctx, findings)
	report.Offline = opts.Offline
	return report, nil
}
