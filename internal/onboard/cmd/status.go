package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/status"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

func buildStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the result of the last installation",
		Long: `Show the recorded result of the last installation run for the current
project, or for every project with --all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store := status.NewFileStore(cfg.ConfigDir)
			var entries []status.Entry
			if all {
				entries, err = store.List()
				if err != nil {
					return err
				}
			} else {
				projectID, err := requireProjectID(cfg)
				if err != nil {
					return err
				}
				entry, err := store.Get(projectID)
				if errors.Is(err, status.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No installation recorded for project %s\n", projectID)
					return nil
				}
				if err != nil {
					return err
				}
				entries = []status.Entry{entry}
			}

			out := cmd.OutOrStdout()
			switch cfg.Output {
			case "json":
				return util.SerializeToJSON(out, entries)
			case "yaml":
				return util.SerializeToYAML(out, entries)
			default:
				table := tablewriter.NewWriter(out)
				table.Header("PROJECT", "CLIENT", "PHASE", "TOOLS", "UPDATED", "ERROR")
				for _, e := range entries {
					table.Append(
						e.ProjectID,
						e.Client,
						string(e.Phase),
						strings.Join(e.Tools, ", "),
						e.UpdatedAt.Local().Format(time.DateTime),
						e.Error,
					)
				}
				return table.Render()
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show every recorded project")
	return cmd
}
