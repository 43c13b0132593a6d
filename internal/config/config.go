package config

import (
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/policy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "startstop.yaml"

// CurrentVersion is the only supported config schema version.
const CurrentVersion = 1

// Config is the top-level application configuration.
// It is loaded from startstop.yaml; every field is optional and command-line
// flags take precedence over it.
type Config struct {
	// Version is the config schema version. Zero is treated as CurrentVersion.
	Version int `yaml:"version" json:"version"`

	// StackName is the CloudFormation stack name.
	StackName string `yaml:"stack_name" json:"stack_name"`

	// Profile is the AWS shared-config profile used when no --profile flag
	// is provided.
	Profile string `yaml:"profile" json:"profile"`

	// Region is the deployment region used when no --region flag is
	// provided. Empty falls back to the profile's region.
	Region string `yaml:"region" json:"region"`

	// Runtime is the Lambda runtime identifier.
	Runtime string `yaml:"runtime" json:"runtime"`

	Parameters ParametersConfig `yaml:"parameters" json:"parameters"`

	// Checks is the policy applied to pre-deployment check findings.
	Checks policy.PolicyConfig `yaml:"checks" json:"checks"`
}

// ParametersConfig holds the default template parameter values.
// Values are comma-separated identifier lists passed through verbatim.
type ParametersConfig struct {
	EC2Resources string `yaml:"ec2_resources" json:"ec2_resources"`
	RDSResources string `yaml:"rds_resources" json:"rds_resources"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:   CurrentVersion,
		StackName: stack.DefaultName,
		Runtime:   stack.DefaultRuntime,
	}
}

// Loader is the interface for reading Config from disk.
type Loader interface {
	// Load reads, parses, and validates the configuration file.
	Load() (*Config, error)

	// ConfigPath returns the path to the configuration file.
	ConfigPath() string
}
