package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

type mockSTS struct {
	account *string
	err     error
}

func (m *mockSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &sts.GetCallerIdentityOutput{Account: m.account}, nil
}

type mockEC2Regions struct {
	EC2Client
	regions []string
	err     error
}

func (m *mockEC2Regions) DescribeRegions(_ context.Context, _ *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := &ec2.DescribeRegionsOutput{}
	for _, r := range m.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	out.Regions = append(out.Regions, ec2types.Region{}) // nil name is skipped
	return out, nil
}

func TestResolveAccountID(t *testing.T) {
	id, err := resolveAccountID(context.Background(), &mockSTS{account: aws.String("123456789012")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "123456789012" {
		t.Errorf("account: got %q; want 123456789012", id)
	}
}

func TestResolveAccountID_NilAccount(t *testing.T) {
	if _, err := resolveAccountID(context.Background(), &mockSTS{}); err == nil {
		t.Fatal("expected error for nil account")
	}
}

func TestResolveAccountID_Error(t *testing.T) {
	_, err := resolveAccountID(context.Background(), &mockSTS{err: errors.New("expired token")})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetActiveRegions(t *testing.T) {
	p := NewDefaultAWSClientProviderWithFactory(nil)
	cfg := &ProfileConfig{
		ProfileName: "default",
		Clients:     &ClientSet{EC2: &mockEC2Regions{regions: []string{"us-east-1", "ap-northeast-1"}}},
	}
	got, err := p.GetActiveRegions(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"us-east-1", "ap-northeast-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("regions: got %v; want %v", got, want)
	}
}

func TestGetActiveRegions_Error(t *testing.T) {
	p := NewDefaultAWSClientProviderWithFactory(nil)
	cfg := &ProfileConfig{
		ProfileName: "staging",
		Clients:     &ClientSet{EC2: &mockEC2Regions{err: errors.New("denied")}},
	}
	if _, err := p.GetActiveRegions(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

func writeAWSFile(t *testing.T, home, name, content string) {
	t.Helper()
	dir := filepath.Join(home, ".aws")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestListProfiles(t *testing.T) {
	home := t.TempDir()
	writeAWSFile(t, home, "credentials", "[default]\naws_access_key_id = x\n\n[prod]\n")
	writeAWSFile(t, home, "config", "[default]\nregion = us-east-1\n[profile prod]\n[profile staging]\n[sso-session corp]\n")

	p := &DefaultAWSClientProvider{homeDir: func() (string, error) { return home, nil }}
	got, err := p.ListProfiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"default", "prod", "staging"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("profiles: got %v; want %v", got, want)
	}
}

func TestListProfiles_NoFiles(t *testing.T) {
	home := t.TempDir()
	p := &DefaultAWSClientProvider{homeDir: func() (string, error) { return home, nil }}
	got, err := p.ListProfiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want no profiles, got %v", got)
	}
}

func TestProfileDisplayName(t *testing.T) {
	if profileDisplayName("") != "default" {
		t.Error("empty profile must display as default")
	}
	if profileDisplayName("prod") != "prod" {
		t.Error("named profile must display unchanged")
	}
}

func TestAPIErrorHelpers(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id x does not exist"})
	if APIErrorCode(err) != "ValidationError" {
		t.Errorf("code: got %q", APIErrorCode(err))
	}
	if APIErrorMessage(err) != "Stack with id x does not exist" {
		t.Errorf("message: got %q", APIErrorMessage(err))
	}
	if !IsAPIError(err, "NotFound", "ValidationError") {
		t.Error("expected IsAPIError match")
	}
	if IsAPIError(errors.New("plain"), "ValidationError") {
		t.Error("plain errors are not API errors")
	}
}
