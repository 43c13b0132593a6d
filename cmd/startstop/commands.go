package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/config"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/engine"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/log"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/output"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/policy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/deploy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/status"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/targets"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rulepacks/startstop"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rules"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/template"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/version"
)

// managedByTag marks stacks created by this tool.
const managedByTag = "managed-by"

// app carries the global flags and the AWS seams shared by every command.
type app struct {
	configPath string
	logLevel   string
	logFile    string
	logCloser  io.Closer

	provider  common.AWSClientProvider
	targets   targets.Collector
	status    status.Collector
	newDeploy func(common.CloudFormationClient) *deploy.Deployer
	now       func() time.Time
	exit      func(code int)
}

func defaultApp() *app {
	return &app{
		provider:  common.NewDefaultAWSClientProvider(),
		targets:   targets.NewDefaultCollector(),
		status:    status.NewDefaultCollector(),
		newDeploy: deploy.NewDeployer,
		now:       time.Now,
		exit:      os.Exit,
	}
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultApp())
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "startstop",
		Short:         "Deploy a weekday start/stop schedule for EC2 instances and RDS databases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, err := setupLog(cmd, a.logLevel, a.logFile)
			if err != nil {
				return err
			}
			a.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeLog()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (default ./"+config.DefaultPath+"; optional)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also append JSON debug logs to this file")

	root.AddCommand(newSynthCmd(a))
	root.AddCommand(newDeployCmd(a))
	root.AddCommand(newDestroyCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newDoctorCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// closeLog releases the --log-file handle once.
func (a *app) closeLog() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

// fail ends the process with code after releasing the log file. RunE
// failures skip the post-run hooks, so it closes the log itself.
func (a *app) fail(code int) {
	_ = a.closeLog()
	a.exit(code)
}

// loadConfig returns the effective configuration. The default file is
// optional; an explicitly named file must exist.
func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		return config.NewFileLoader(config.DefaultPath, startstop.IDs()).Load()
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg, startstop.IDs()); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %w", a.configPath, errors.Join(errs...))
	}
	return cfg, nil
}

// pick returns flag when set and fallback otherwise.
func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

// stackFlags are shared by the commands that address a deployed stack.
type stackFlags struct {
	profile   string
	region    string
	stackName string
}

func (f *stackFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile name (default: config file, then the credential chain)")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region (default: config file, then the profile's region)")
	cmd.Flags().StringVar(&f.stackName, "stack-name", "", "CloudFormation stack name (default: config file, then "+stack.DefaultName+")")
}

func (f *stackFlags) resolve(cfg *config.Config) stackFlags {
	return stackFlags{
		profile:   pick(f.profile, cfg.Profile),
		region:    pick(f.region, cfg.Region),
		stackName: pick(f.stackName, cfg.StackName),
	}
}

// targetFlags are the two identifier lists. A flag given explicitly, even
// as an empty string, replaces the config value.
type targetFlags struct {
	ec2 string
	rds string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ec2, "ec2", "", "Comma-separated EC2 instance IDs (passed verbatim)")
	cmd.Flags().StringVar(&f.rds, "rds", "", "Comma-separated RDS DB instance identifiers (passed verbatim)")
}

func (f *targetFlags) values(cmd *cobra.Command, cfg *config.Config) map[string]string {
	ec2, rds := cfg.Parameters.EC2Resources, cfg.Parameters.RDSResources
	if cmd.Flags().Changed("ec2") {
		ec2 = f.ec2
	}
	if cmd.Flags().Changed("rds") {
		rds = f.rds
	}
	return stack.ParameterValues(ec2, rds)
}

// synthesize builds and validates the stack definition and its template.
func synthesize(name, runtime string) (*template.Template, error) {
	def := stack.New(name, stack.WithRuntime(runtime))
	if errs := def.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid stack: %w", errors.Join(errs...))
	}
	tpl := def.Template()
	if errs := tpl.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid template: %w", errors.Join(errs...))
	}
	return tpl, nil
}

func newSynthCmd(a *app) *cobra.Command {
	var (
		format    string
		stackName string
		runtime   string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Render the CloudFormation template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			tpl, err := synthesize(pick(stackName, cfg.StackName), pick(runtime, cfg.Runtime))
			if err != nil {
				return err
			}
			data, err := tpl.Marshal(template.Format(format))
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write template file %q: %w", outPath, err)
			}
			log.Info(cmd.Context(), "wrote template", "path", outPath, "format", format)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(template.FormatJSON), "Template format: json or yaml")
	cmd.Flags().StringVar(&stackName, "stack-name", "", "Stack name used in the template description")
	cmd.Flags().StringVar(&runtime, "runtime", "", "Function runtime (default: config file, then "+stack.DefaultRuntime+")")
	cmd.Flags().StringVar(&outPath, "output", "", "Write the template to this file instead of stdout")
	return cmd
}

func newDeployCmd(a *app) *cobra.Command {
	var (
		sf      stackFlags
		tf      targetFlags
		runtime string
		noWait  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the start/stop stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s := sf.resolve(cfg)

			tpl, err := synthesize(s.stackName, pick(runtime, cfg.Runtime))
			if err != nil {
				return err
			}
			params, err := tpl.ParameterValues(tf.values(cmd, cfg))
			if err != nil {
				return err
			}
			body, err := tpl.Marshal(template.FormatJSON)
			if err != nil {
				return err
			}

			profile, err := a.provider.LoadProfile(ctx, s.profile, s.region)
			if err != nil {
				return fmt.Errorf("load profile %q: %w", s.profile, err)
			}
			ctx = log.With(ctx, "profile", profile.ProfileName, "region", profile.Region)

			res, err := a.newDeploy(profile.Clients.CloudFormation).Deploy(ctx, deploy.Options{
				StackName:    s.stackName,
				TemplateBody: string(body),
				Parameters:   params,
				Tags:         map[string]string{managedByTag: "startstop"},
				Wait:         !noWait,
				Timeout:      timeout,
			})
			if err != nil {
				return fmt.Errorf("deploy failed: %w", err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	sf.register(cmd)
	tf.register(cmd)
	cmd.Flags().StringVar(&runtime, "runtime", "", "Function runtime (default: config file, then "+stack.DefaultRuntime+")")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the change is submitted")
	cmd.Flags().DurationVar(&timeout, "timeout", deploy.DefaultTimeout, "Maximum time to wait for completion")
	return cmd
}

func newDestroyCmd(a *app) *cobra.Command {
	var (
		sf      stackFlags
		noWait  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the start/stop stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s := sf.resolve(cfg)

			profile, err := a.provider.LoadProfile(ctx, s.profile, s.region)
			if err != nil {
				return fmt.Errorf("load profile %q: %w", s.profile, err)
			}
			ctx = log.With(ctx, "profile", profile.ProfileName, "region", profile.Region)

			res, err := a.newDeploy(profile.Clients.CloudFormation).Destroy(ctx, s.stackName, !noWait, timeout)
			if err != nil {
				return fmt.Errorf("destroy failed: %w", err)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the deletion is submitted")
	cmd.Flags().DurationVar(&timeout, "timeout", deploy.DefaultTimeout, "Maximum time to wait for completion")
	return cmd
}

// printResult writes a deploy or destroy outcome followed by the stack
// outputs in name order.
func printResult(w io.Writer, res *deploy.Result) {
	switch {
	case res.Operation == deploy.OperationNone && res.Status == deploy.StatusDoesNotExist:
		fmt.Fprintf(w, "Stack %s does not exist; nothing to delete.\n", res.StackName)
	case res.Operation == deploy.OperationNone:
		fmt.Fprintf(w, "Stack %s is up to date (%s).\n", res.StackName, res.Status)
	default:
		fmt.Fprintf(w, "Stack %s: %s\n", res.StackName, res.Status)
	}
	if len(res.Outputs) == 0 {
		return
	}
	keys := make([]string, 0, len(res.Outputs))
	for k := range res.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "\nOutputs:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %s\n", k, res.Outputs[k])
	}
}

func newStatusCmd(a *app) *cobra.Command {
	var (
		sf     stackFlags
		days   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the deployed stack, function, schedules and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := engine.ParseReportFormat(format)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s := sf.resolve(cfg)

			profile, err := a.provider.LoadProfile(ctx, s.profile, s.region)
			if err != nil {
				return fmt.Errorf("load profile %q: %w", s.profile, err)
			}
			ctx = log.With(ctx, "profile", profile.ProfileName, "region", profile.Region)

			st, err := a.status.Collect(ctx, profile.Clients, status.Options{StackName: s.stackName, Days: days})
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}
			if f == engine.ReportFormatJSON {
				return output.RenderJSON(cmd.OutOrStdout(), st)
			}
			output.RenderStatus(cmd.OutOrStdout(), st, a.now())
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().IntVar(&days, "days", status.DefaultDays, "Metric window in days for invocation and error counts")
	cmd.Flags().StringVar(&format, "format", string(engine.ReportFormatTable), "Output format: table or json")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		sf      stackFlags
		tf      targetFlags
		runtime string
		offline bool
		format  string
		outPath string
		color   bool
	)

	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Review the stack and its targets before deployment",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := engine.ParseReportFormat(format)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s := sf.resolve(cfg)

			report, err := runCheck(cmd, a, engine.CheckOptions{
				StackName:  s.stackName,
				Profile:    s.profile,
				Region:     s.region,
				Runtime:    pick(runtime, cfg.Runtime),
				Parameters: tf.values(cmd, cfg),
				Offline:    offline,
				Policy:     &cfg.Checks,
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := writeReportToFile(outPath, report); err != nil {
					return err
				}
			}
			if f == engine.ReportFormatJSON {
				if err := output.RenderJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				output.RenderTable(cmd.OutOrStdout(), report.Findings, output.TableOptions{
					Colored:     color,
					IncludeRule: true,
				})
				output.RenderSummary(cmd.OutOrStdout(), report)
			}

			if policy.ShouldFail(report.Findings, &cfg.Checks) {
				// Exit directly so no error text reaches main's stderr path.
				a.fail(1)
			}
			return nil
		},
	}

	sf.register(cmd)
	tf.register(cmd)
	cmd.Flags().StringVar(&runtime, "runtime", "", "Function runtime (default: config file, then "+stack.DefaultRuntime+")")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip AWS lookups and evaluate template rules only")
	cmd.Flags().StringVar(&format, "format", string(engine.ReportFormatTable), "Output format: table or json")
	cmd.Flags().StringVar(&outPath, "output", "", "Write the full JSON report to this file (in addition to stdout output)")
	cmd.Flags().BoolVar(&color, "color", false, "Colour severities in table output")
	return cmd
}

// runCheck wires the engine to the startstop rule pack and runs it.
func runCheck(cmd *cobra.Command, a *app, opts engine.CheckOptions) (*models.CheckReport, error) {
	registry := rules.NewDefaultRuleRegistry()
	for _, r := range startstop.New() {
		registry.Register(r)
	}

	eng := engine.NewDefaultEngine(a.provider, a.targets, registry)
	report, err := eng.RunCheck(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("check failed: %w", err)
	}
	return report, nil
}

// writeReportToFile serialises report as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.CheckReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}
