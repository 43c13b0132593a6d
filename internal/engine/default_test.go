package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/policy"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/targets"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rulepacks/startstop"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rules"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type mockProvider struct {
	err    error
	loaded int
}

func (m *mockProvider) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	m.loaded++
	if m.err != nil {
		return nil, m.err
	}
	if region == "" {
		region = "ap-northeast-1"
	}
	return &common.ProfileConfig{
		ProfileName: profile,
		AccountID:   "123456789012",
		Region:      region,
		Clients:     &common.ClientSet{},
	}, nil
}

func (m *mockProvider) ListProfiles() ([]string, error) { return []string{"dev"}, nil }

func (m *mockProvider) GetActiveRegions(context.Context, *common.ProfileConfig) ([]string, error) {
	return []string{"ap-northeast-1"}, nil
}

type mockCollector struct {
	inv  *models.Inventory
	err  error
	opts targets.CollectOptions
}

func (m *mockCollector) Collect(_ context.Context, _ *common.ClientSet, opts targets.CollectOptions) (*models.Inventory, error) {
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.inv, nil
}

func newRegistry() rules.RuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	for _, r := range startstop.New() {
		reg.Register(r)
	}
	return reg
}

func liveInventory() *models.Inventory {
	return &models.Inventory{
		Region: "ap-northeast-1",
		EC2Targets: []models.EC2Target{
			{InstanceID: "i-1", Found: true, State: "running"},
			{InstanceID: "i-gone"},
		},
		RDSTargets: []models.RDSTarget{
			{DBInstanceID: "db-1", Found: true, ClusterID: "aurora"},
		},
		Code:     &models.CodeArtifact{Bucket: stack.DefaultCode.Bucket, Key: stack.DefaultCode.Key, Reason: "not found"},
		Warnings: []string{"policy simulation: AccessDenied"},
	}
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestRunCheck_Offline(t *testing.T) {
	provider := &mockProvider{}
	collector := &mockCollector{}
	e := NewDefaultEngine(provider, collector, newRegistry())

	report, err := e.RunCheck(context.Background(), CheckOptions{Offline: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.loaded != 0 {
		t.Errorf("offline run loaded a profile")
	}
	if !report.Offline {
		t.Error("report.Offline = false")
	}
	if report.StackName != stack.DefaultName {
		t.Errorf("stack name = %q; want %q", report.StackName, stack.DefaultName)
	}
	if report.ReportID == "" {
		t.Error("report ID is empty")
	}
	// two wildcard statements + empty target list
	if report.Summary.TotalFindings != 3 {
		t.Fatalf("total findings = %d; want 3: %+v", report.Summary.TotalFindings, report.Findings)
	}
	if report.Summary.MediumFindings != 2 || report.Summary.InfoFindings != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Findings[2].RuleID != "EMPTY_TARGET_LIST" {
		t.Errorf("last finding = %s; want EMPTY_TARGET_LIST", report.Findings[2].RuleID)
	}
	if v, ok := report.Parameters[stack.ParamEC2Resources]; !ok || v != "" {
		t.Errorf("Ec2Resources parameter = %q, %v; want empty default", v, ok)
	}
}

func TestRunCheck_Live(t *testing.T) {
	collector := &mockCollector{inv: liveInventory()}
	e := NewDefaultEngine(&mockProvider{}, collector, newRegistry())

	report, err := e.RunCheck(context.Background(), CheckOptions{
		Profile: "dev",
		Parameters: map[string]string{
			stack.ParamEC2Resources: "i-1, i-gone",
			stack.ParamRDSResources: "db-1",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := collector.opts.EC2IDs; len(got) != 2 || got[1] != "i-gone" {
		t.Errorf("EC2IDs = %v", got)
	}
	if collector.opts.Region != "ap-northeast-1" {
		t.Errorf("collector region = %q", collector.opts.Region)
	}
	// parameters are reported verbatim, never split
	if report.Parameters[stack.ParamEC2Resources] != "i-1, i-gone" {
		t.Errorf("parameter rewritten: %q", report.Parameters[stack.ParamEC2Resources])
	}
	if report.AccountID != "123456789012" || report.Region != "ap-northeast-1" {
		t.Errorf("account/region = %q/%q", report.AccountID, report.Region)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v", report.Warnings)
	}

	wantOrder := []string{
		"CODE_ARTIFACT_MISSING",
		"EC2_TARGET_NOT_FOUND",
		"WILDCARD_RESOURCE_SCOPE",
		"WILDCARD_RESOURCE_SCOPE",
		"RDS_TARGET_CLUSTER_MEMBER",
	}
	if len(report.Findings) != len(wantOrder) {
		t.Fatalf("findings = %d; want %d: %+v", len(report.Findings), len(wantOrder), report.Findings)
	}
	for i, want := range wantOrder {
		if report.Findings[i].RuleID != want {
			t.Errorf("findings[%d] = %s; want %s", i, report.Findings[i].RuleID, want)
		}
	}
}

func TestRunCheck_PolicyApplied(t *testing.T) {
	disabled := false
	e := NewDefaultEngine(&mockProvider{}, &mockCollector{}, newRegistry())
	report, err := e.RunCheck(context.Background(), CheckOptions{
		Offline: true,
		Policy: &policy.PolicyConfig{
			Rules: map[string]policy.RuleConfig{
				"WILDCARD_RESOURCE_SCOPE": {Enabled: &disabled},
				"EMPTY_TARGET_LIST":       {Severity: "HIGH"},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary.TotalFindings != 1 || report.Summary.HighFindings != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
}

func TestRunCheck_Errors(t *testing.T) {
	tests := []struct {
		name string
		e    *DefaultEngine
		opts CheckOptions
	}{
		{
			"invalid stack name",
			NewDefaultEngine(&mockProvider{}, &mockCollector{}, newRegistry()),
			CheckOptions{StackName: "bad_name", Offline: true},
		},
		{
			"unknown parameter",
			NewDefaultEngine(&mockProvider{}, &mockCollector{}, newRegistry()),
			CheckOptions{Offline: true, Parameters: map[string]string{"Nope": "x"}},
		},
		{
			"profile failure",
			NewDefaultEngine(&mockProvider{err: errors.New("no credentials")}, &mockCollector{}, newRegistry()),
			CheckOptions{},
		},
		{
			"collector failure",
			NewDefaultEngine(&mockProvider{}, &mockCollector{err: errors.New("throttled")}, newRegistry()),
			CheckOptions{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.e.RunCheck(context.Background(), tc.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}
