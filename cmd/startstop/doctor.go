package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/config"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/engine"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/targets"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/rulepacks/startstop"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// DoctorResult is the structured output of startstop doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Config struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile        string `json:"profile,omitempty"`
		ProfileDefined bool   `json:"profile_defined"`
		Credentials    bool   `json:"credentials_ok"`
		AccountID      string `json:"account_id,omitempty"`
		Region         string `json:"region,omitempty"`
		RegionActive   bool   `json:"region_active"`
		Error          string `json:"error,omitempty"`
	} `json:"aws"`

	Code struct {
		URI       string `json:"uri"`
		Reachable bool   `json:"reachable"`
		Detail    string `json:"detail,omitempty"`
	} `json:"code"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		format  string
		profile string
		region  string
	)

	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := engine.ParseReportFormat(format); err != nil {
				return err
			}
			path := pick(a.configPath, config.DefaultPath)
			result, err := runDoctor(cmd.Context(), a.provider, cmd.OutOrStdout(), format, path, profile, region)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main's stderr path.
				a.fail(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile to check (default: config file, then the credential chain)")
	cmd.Flags().StringVar(&region, "region", "", "Region to check (default: config file, then the profile's region)")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures. Callers inspect
// result.OverallHealthy to decide the exit status.
func runDoctor(ctx context.Context, provider common.AWSClientProvider, w io.Writer, format, configPath, profile, region string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, provider, configPath, profile, region)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. Profile and region fall back to the config file when it
// loads cleanly.
func collectDoctorResult(ctx context.Context, provider common.AWSClientProvider, configPath, profile, region string) DoctorResult {
	var result DoctorResult

	// Config: stat, load, validate. The file is optional.
	result.Config.Path = configPath
	_, statErr := os.Stat(configPath)
	switch {
	case statErr == nil:
		result.Config.Present = true
		cfg, err := config.Load(configPath)
		if err != nil {
			result.Config.Errors = []string{err.Error()}
			break
		}
		errs := config.Validate(cfg, startstop.IDs())
		for _, e := range errs {
			result.Config.Errors = append(result.Config.Errors, e.Error())
		}
		result.Config.Valid = len(errs) == 0
		profile = pick(profile, cfg.Profile)
		region = pick(region, cfg.Region)
	case !os.IsNotExist(statErr):
		result.Config.Present = true
		result.Config.Errors = []string{statErr.Error()}
	}

	// AWS: shared-config profile, credentials and STS identity, region.
	// An empty profile selects the default credential chain.
	result.AWS.Profile = profile
	result.AWS.ProfileDefined = profile == ""
	if profile != "" {
		if names, err := provider.ListProfiles(); err == nil {
			result.AWS.ProfileDefined = slices.Contains(names, profile)
		}
	}

	result.Code.URI = stack.DefaultCode.URI()
	profileCfg, err := provider.LoadProfile(ctx, profile, region)
	if err != nil {
		result.AWS.Error = err.Error()
		result.Code.Detail = "skipped"
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		result.AWS.Region = profileCfg.Region

		regions, err := provider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionActive = slices.Contains(regions, profileCfg.Region)
		}

		collectCodeResult(ctx, profileCfg.Clients, &result)
	}

	result.OverallHealthy = (!result.Config.Present || result.Config.Valid) &&
		result.AWS.ProfileDefined &&
		result.AWS.Credentials &&
		result.AWS.RegionActive &&
		result.Code.Reachable

	return result
}

// collectCodeResult checks that the function artifact can be read from the
// profile's region.
func collectCodeResult(ctx context.Context, clients *common.ClientSet, result *DoctorResult) {
	if clients == nil || clients.S3 == nil {
		result.Code.Detail = "no S3 client"
		return
	}
	art, err := targets.HeadCodeArtifact(ctx, clients.S3, stack.DefaultCode)
	switch {
	case err != nil:
		result.Code.Detail = err.Error()
	case !art.Found:
		result.Code.Detail = art.Reason
	default:
		result.Code.Reachable = true
	}
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if !result.Config.Present {
		doctorPrint(w, result.Config.Path+" present", "Not found (optional)", "")
	} else {
		doctorPrint(w, result.Config.Path+" present", "YES", "")
		if result.Config.Valid {
			doctorPrint(w, "Config valid", "OK", "")
		} else {
			for _, e := range result.Config.Errors {
				doctorPrint(w, "Config valid", "FAIL", e)
			}
		}
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
		if result.AWS.ProfileDefined {
			doctorPrint(w, "Profile defined", "OK", "")
		} else {
			doctorPrint(w, "Profile defined", "FAIL", "not in ~/.aws/config or ~/.aws/credentials")
		}
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Region", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		switch {
		case result.AWS.RegionActive:
			doctorPrint(w, "Region", "OK", result.AWS.Region)
		case result.AWS.Error != "":
			doctorPrint(w, "Region", "FAIL", result.AWS.Error)
		default:
			doctorPrint(w, "Region", "FAIL", result.AWS.Region+" is not enabled for this account")
		}
	}

	fmt.Fprintln(w, "\nFunction code:")
	if result.Code.Reachable {
		doctorPrint(w, result.Code.URI, "OK", "")
	} else {
		doctorPrint(w, result.Code.URI, "FAIL", result.Code.Detail)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
