package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ruleIDs = []string{"WILDCARD_RESOURCE_SCOPE", "EC2_TARGET_NOT_FOUND"}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "startstop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
stack_name: office-hours
profile: dev
region: ap-northeast-1
runtime: python3.11
parameters:
  ec2_resources: "i-1,i-2"
  rds_resources: db-1
checks:
  rules:
    WILDCARD_RESOURCE_SCOPE:
      enabled: false
  fail_on_severity: HIGH
`))
	require.NoError(t, err)
	assert.Equal(t, "office-hours", cfg.StackName)
	assert.Equal(t, "dev", cfg.Profile)
	assert.Equal(t, "ap-northeast-1", cfg.Region)
	assert.Equal(t, "python3.11", cfg.Runtime)
	assert.Equal(t, "i-1,i-2", cfg.Parameters.EC2Resources)
	assert.Equal(t, "db-1", cfg.Parameters.RDSResources)
	assert.Equal(t, "HIGH", cfg.Checks.FailOnSeverity)
	require.NotNil(t, cfg.Checks.Rules["WILDCARD_RESOURCE_SCOPE"].Enabled)
	assert.False(t, *cfg.Checks.Rules["WILDCARD_RESOURCE_SCOPE"].Enabled)
	assert.Empty(t, Validate(cfg, ruleIDs))
}

func TestParse_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("stack_nam: typo\n"))
	assert.Error(t, err)
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Version = 2
	cfg.StackName = "1-bad_name"
	cfg.Checks.FailOnSeverity = "SOMETIMES"
	errs := Validate(cfg, ruleIDs)
	assert.Len(t, errs, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFileLoader_MissingFileReturnsDefault(t *testing.T) {
	l := NewFileLoader(filepath.Join(t.TempDir(), "nope.yaml"), ruleIDs)
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFileLoader_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "checks:\n  rules:\n    NOT_A_RULE: {}\n")
	_, err := NewFileLoader(path, ruleIDs).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_A_RULE")
}

func TestFileLoader_ConfigPathDefault(t *testing.T) {
	l := NewFileLoader("", ruleIDs)
	assert.Equal(t, DefaultPath, filepath.Base(l.ConfigPath()))
	assert.True(t, filepath.IsAbs(l.ConfigPath()))
}
