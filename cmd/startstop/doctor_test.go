package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
)

// ── AWS mocks ─────────────────────────────────────────────────────────────────

type mockAWSProvider struct {
	profileResult *common.ProfileConfig
	profileErr    error
	regionsResult []string
	regionsErr    error
	profiles      []string
	lastProfile   string // records the profile name passed to LoadProfile
	lastRegion    string // records the region passed to LoadProfile
}

func (m *mockAWSProvider) LoadProfile(_ context.Context, profile, region string) (*common.ProfileConfig, error) {
	m.lastProfile = profile
	m.lastRegion = region
	return m.profileResult, m.profileErr
}

func (m *mockAWSProvider) ListProfiles() ([]string, error) {
	return m.profiles, nil
}

func (m *mockAWSProvider) GetActiveRegions(_ context.Context, _ *common.ProfileConfig) ([]string, error) {
	return m.regionsResult, m.regionsErr
}

type mockS3 struct {
	err error
}

func (m *mockS3) HeadObject(_ context.Context, _ *s3svc.HeadObjectInput, _ ...func(*s3svc.Options)) (*s3svc.HeadObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &s3svc.HeadObjectOutput{ContentLength: aws.Int64(1024)}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func goodMockAWS() *mockAWSProvider {
	return &mockAWSProvider{
		profileResult: &common.ProfileConfig{
			ProfileName: "default",
			AccountID:   "123456789012",
			Region:      "ap-northeast-1",
			Clients:     &common.ClientSet{S3: &mockS3{}},
		},
		regionsResult: []string{"us-east-1", "ap-northeast-1"},
		profiles:      []string{"default", "prod"},
	}
}

// runDoctorInTmp changes to a fresh temp directory, writes configBody to
// startstop.yaml when it is non-empty, runs runDoctor with the given format
// and profile, restores the working directory, and returns the captured
// output, the DoctorResult, and any rendering error.
func runDoctorInTmp(t *testing.T, awsP common.AWSClientProvider, format, profile, configBody string) (string, DoctorResult, error) {
	t.Helper()
	tmp := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	if configBody != "" {
		if err := os.WriteFile(filepath.Join(tmp, "startstop.yaml"), []byte(configBody), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	result, runErr := runDoctor(context.Background(), awsP, &buf, format, "startstop.yaml", profile, "")
	return buf.String(), result, runErr
}

// ── table format tests ────────────────────────────────────────────────────────

func TestDoctorAllOK(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), "table", "", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Errorf("expected OverallHealthy=true; got:\n%s", out)
	}
	for _, want := range []string{
		"Credentials: OK",
		"STS Identity: OK (Account: 123456789012)",
		"Region: OK (ap-northeast-1)",
		"s3://afterfit-auto-start-stop-resources/auto_start_stop.py: OK",
		"Not found (optional)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestDoctorAWSCredentialsFail(t *testing.T) {
	awsP := &mockAWSProvider{profileErr: errors.New("no credentials configured")}
	out, result, err := runDoctorInTmp(t, awsP, "table", "", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "Credentials: FAIL (no credentials configured)") {
		t.Errorf("expected 'Credentials: FAIL'; got:\n%s", out)
	}
	if result.Code.Reachable {
		t.Error("code check must not pass without credentials")
	}
}

func TestDoctorAWSRegionsFail(t *testing.T) {
	awsP := goodMockAWS()
	awsP.regionsErr = errors.New("EC2 API error")
	out, result, err := runDoctorInTmp(t, awsP, "table", "", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "Credentials: OK") {
		t.Errorf("expected 'Credentials: OK'; got:\n%s", out)
	}
	if !strings.Contains(out, "Region: FAIL (EC2 API error)") {
		t.Errorf("expected 'Region: FAIL'; got:\n%s", out)
	}
}

func TestDoctorRegionNotActive(t *testing.T) {
	awsP := goodMockAWS()
	awsP.regionsResult = []string{"us-east-1"}
	out, result, err := runDoctorInTmp(t, awsP, "table", "", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "ap-northeast-1 is not enabled") {
		t.Errorf("expected inactive region detail; got:\n%s", out)
	}
}

func TestDoctorCodeArtifactMissing(t *testing.T) {
	awsP := goodMockAWS()
	awsP.profileResult.Clients.S3 = &mockS3{err: &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
		Err:      errors.New("not found"),
	}}
	out, result, err := runDoctorInTmp(t, awsP, "table", "", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}
	if !strings.Contains(out, "auto_start_stop.py: FAIL (not found)") {
		t.Errorf("expected code FAIL line; got:\n%s", out)
	}
}

func TestDoctorConfigValid(t *testing.T) {
	awsP := goodMockAWS()
	out, result, err := runDoctorInTmp(t, awsP, "table", "", "version: 1\nprofile: prod\n")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Errorf("expected OverallHealthy=true; got:\n%s", out)
	}
	if !strings.Contains(out, "startstop.yaml present: YES") {
		t.Errorf("expected 'startstop.yaml present: YES'; got:\n%s", out)
	}
	if !strings.Contains(out, "Config valid: OK") {
		t.Errorf("expected 'Config valid: OK'; got:\n%s", out)
	}
	// The profile falls back to the config file.
	if awsP.lastProfile != "prod" {
		t.Errorf("LoadProfile called with %q; want prod", awsP.lastProfile)
	}
}

func TestDoctorConfigInvalid(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), "table", "", "version: 99\n")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false for invalid config")
	}
	if !strings.Contains(out, "Config valid: FAIL") {
		t.Errorf("expected 'Config valid: FAIL'; got:\n%s", out)
	}
}

// ── JSON format tests ─────────────────────────────────────────────────────────

func TestDoctorJSON_AllOK(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), "json", "", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Error("expected OverallHealthy=true")
	}

	var parsed DoctorResult
	if jsonErr := json.Unmarshal([]byte(out), &parsed); jsonErr != nil {
		t.Fatalf("invalid JSON output: %v\nraw:\n%s", jsonErr, out)
	}
	if !parsed.AWS.Credentials {
		t.Error("expected AWS.Credentials=true")
	}
	if parsed.AWS.AccountID != "123456789012" {
		t.Errorf("expected AccountID=123456789012; got %q", parsed.AWS.AccountID)
	}
	if !parsed.AWS.RegionActive {
		t.Error("expected AWS.RegionActive=true")
	}
	if !parsed.Code.Reachable {
		t.Error("expected Code.Reachable=true")
	}
	if !parsed.OverallHealthy {
		t.Error("expected OverallHealthy=true")
	}
}

// TestDoctorJSON_Failure verifies that when the environment is unhealthy
// runDoctor returns (result, nil) and the output is exactly one JSON blob
// with overall_healthy=false.
func TestDoctorJSON_Failure(t *testing.T) {
	awsP := &mockAWSProvider{profileErr: errors.New("no credentials configured")}
	out, result, err := runDoctorInTmp(t, awsP, "json", "", "")
	if err != nil {
		t.Fatalf("runDoctor must not return error for unhealthy result; got: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false")
	}

	var parsed DoctorResult
	if jsonErr := json.Unmarshal([]byte(out), &parsed); jsonErr != nil {
		t.Fatalf("invalid JSON output: %v\nraw:\n%s", jsonErr, out)
	}
	if parsed.AWS.Error == "" {
		t.Error("expected AWS.Error to be non-empty")
	}

	want, _ := json.Marshal(result)
	if strings.TrimSpace(out) != string(want) {
		t.Errorf("JSON output has unexpected trailing content;\ngot:  %q\nwant: %q",
			strings.TrimSpace(out), string(want))
	}
	for _, noisy := range []string{"Error:", "Usage:"} {
		if strings.Contains(out, noisy) {
			t.Errorf("cobra noise %q must not appear in JSON output; got:\n%s", noisy, out)
		}
	}
}

// TestDoctorCmd_CobraCleanOutput verifies that newDoctorCmd sets SilenceErrors
// and SilenceUsage so Cobra does not append "Error: ..." or the usage block to
// JSON output.
func TestDoctorCmd_CobraCleanOutput(t *testing.T) {
	cmd := newDoctorCmd(defaultApp())
	if !cmd.SilenceErrors {
		t.Error("doctor command must have SilenceErrors=true")
	}
	if !cmd.SilenceUsage {
		t.Error("doctor command must have SilenceUsage=true")
	}
}

func TestDoctorCmd_UnhealthyExits(t *testing.T) {
	chdir(t, t.TempDir())
	a, code := testApp(&mockAWSProvider{profileErr: errors.New("no credentials configured")})

	_, err := runCLI(t, a, "doctor", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *code != 1 {
		t.Errorf("exit code = %d; want 1", *code)
	}
}

// ── profile flag tests ────────────────────────────────────────────────────────

func TestDoctorProfile_Success(t *testing.T) {
	awsP := goodMockAWS()
	out, result, err := runDoctorInTmp(t, awsP, "table", "prod", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if !result.OverallHealthy {
		t.Errorf("expected OverallHealthy=true; got:\n%s", out)
	}
	if awsP.lastProfile != "prod" {
		t.Errorf("LoadProfile called with %q; want prod", awsP.lastProfile)
	}
	if !strings.Contains(out, "AWS (profile: prod)") {
		t.Errorf("expected profile header in output; got:\n%s", out)
	}
	if !strings.Contains(out, "Profile defined: OK") {
		t.Errorf("expected 'Profile defined: OK'; got:\n%s", out)
	}
}

func TestDoctorProfile_Undefined(t *testing.T) {
	out, result, err := runDoctorInTmp(t, goodMockAWS(), "table", "staging", "")
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.OverallHealthy {
		t.Error("expected OverallHealthy=false for an undefined profile")
	}
	if !strings.Contains(out, "Profile defined: FAIL") {
		t.Errorf("expected 'Profile defined: FAIL'; got:\n%s", out)
	}
}

func TestDoctorCmd_UnknownFormatRejected(t *testing.T) {
	chdir(t, t.TempDir())
	a, code := testApp(goodMockAWS())

	_, err := runCLI(t, a, "doctor", "--format", "yaml")
	if err == nil || !strings.Contains(err.Error(), `"yaml"`) {
		t.Fatalf("expected unsupported format error; got %v", err)
	}
	if *code != -1 {
		t.Errorf("exit code = %d; want exit not called", *code)
	}
}
