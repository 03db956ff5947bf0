package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
	"github.com/onboardhq/onboard-cli/internal/onboard/verify"
)

type verifyResult struct {
	ProjectID string   `json:"project_id"`
	BaseURL   string   `json:"base_url"`
	Attempts  int      `json:"attempts"`
	Tools     []string `json:"tools,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func buildVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the installed MCP server answers with its tools",
		Long: fmt.Sprintf(`Connect to the project's MCP server and list its tools.

The server is polled up to %d times, %s apart, before verification is
reported as failed. Each run starts a fresh cycle.`, verify.MaxAttempts, verify.Delay),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			projectID, err := requireProjectID(cfg)
			if err != nil {
				return err
			}

			creds, err := storedCredentials{cfg: cfg}.Credentials(cmd.Context(), projectID)
			if err != nil {
				return credentialsError(err)
			}

			h := newHost(cmd, cfg, "")
			progress := newInstallProgress(cmd, cfg.Output == "table")
			cb := progress.callbacks()

			outcome := h.Verifier.Retry(cmd.Context(), creds.APIKey, creds.BaseURL, verify.Callbacks{
				OnVerifying: func() { cb.OnVerifying(projectID) },
				OnVerified:  func(tools []string) { progress.finish("") },
				OnFailed:    func(error) { progress.finish("") },
			})

			result := verifyResult{
				ProjectID: projectID,
				BaseURL:   creds.BaseURL,
				Attempts:  outcome.Attempts,
				Tools:     outcome.Tools,
			}
			if outcome.Err != nil {
				result.Error = outcome.Err.Error()
			}

			if err := outputVerifyResult(cmd, cfg.Output, result); err != nil {
				return err
			}
			if outcome.Err != nil {
				return common.ExitWithCode(common.ExitVerificationFailed,
					fmt.Errorf("verification failed after %d attempts: %w", outcome.Attempts, outcome.Err))
			}
			return nil
		},
	}
}

func outputVerifyResult(cmd *cobra.Command, format string, result verifyResult) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return util.SerializeToJSON(out, result)
	case "yaml":
		return util.SerializeToYAML(out, result)
	}

	if result.Error != "" {
		return nil
	}
	if len(result.Tools) == 0 {
		return errors.New("no tools returned")
	}

	table := tablewriter.NewWriter(out)
	table.Header("#", "TOOL")
	for i, tool := range result.Tools {
		table.Append(fmt.Sprint(i+1), tool)
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d tools available at %s\n", len(result.Tools), strings.TrimRight(result.BaseURL, "/"))
	return nil
}
