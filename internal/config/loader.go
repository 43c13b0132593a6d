package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/policy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// Load reads the YAML file at path on top of Default. A missing file
// returns an error wrapping fs.ErrNotExist; callers that treat the file as
// optional check for it with errors.Is.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of Default. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.StackName == "" {
		cfg.StackName = stack.DefaultName
	}
	if cfg.Runtime == "" {
		cfg.Runtime = stack.DefaultRuntime
	}
	return cfg, nil
}

// Validate checks cfg for semantic correctness and returns every problem
// found. ruleIDs lists the check rules the checks section may reference.
func Validate(cfg *Config, ruleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}
	var errs []error
	if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; want %d", cfg.Version, CurrentVersion))
	}
	errs = append(errs, stack.New(cfg.StackName, stack.WithRuntime(cfg.Runtime)).Validate()...)
	errs = append(errs, policy.Validate(&cfg.Checks, ruleIDs)...)
	return errs
}

// FileLoader loads a Config from a fixed path. A missing file yields
// Default.
type FileLoader struct {
	Path    string
	RuleIDs []string
}

// NewFileLoader returns a FileLoader for path, or for DefaultPath when path
// is empty.
func NewFileLoader(path string, ruleIDs []string) *FileLoader {
	if path == "" {
		path = DefaultPath
	}
	return &FileLoader{Path: path, RuleIDs: ruleIDs}
}

// ConfigPath returns the absolute path to the configuration file, or the
// configured path when it cannot be made absolute.
func (l *FileLoader) ConfigPath() string {
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return l.Path
	}
	return abs
}

// Load reads, parses, and validates the configuration file.
func (l *FileLoader) Load() (*Config, error) {
	cfg, err := Load(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if errs := Validate(cfg, l.RuleIDs); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %w", l.Path, errors.Join(errs...))
	}
	return cfg, nil
}
