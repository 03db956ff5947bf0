package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

type clientOutput struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Aliases        []string `json:"aliases,omitempty"`
	WorkspaceLocal bool     `json:"workspace_local"`
	Strategy       string   `json:"strategy"`
	Target         string   `json:"target,omitempty"`
}

func toClientOutput(p clients.Profile) clientOutput {
	out := clientOutput{
		ID:             p.ID,
		Name:           p.Name,
		Aliases:        p.Aliases,
		WorkspaceLocal: p.WorkspaceLocal,
		Strategy:       p.Strategy.Kind(),
	}
	switch s := p.Strategy.(type) {
	case clients.DirectInvoke:
		out.Target = s.CommandName
	case clients.ClipboardPaste:
		out.Target = s.CommandName
	case clients.TerminalSend:
		out.Target = s.TerminalCommand
	}
	return out
}

func buildClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List supported AI assistants",
		Long:  `List the AI assistants the MCP server can be installed into and how each one receives the welcome prompt.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			profiles := clients.Default().Sorted()
			outputs := make([]clientOutput, len(profiles))
			for i, p := range profiles {
				outputs[i] = toClientOutput(p)
			}

			out := cmd.OutOrStdout()
			switch cfg.Output {
			case "json":
				return util.SerializeToJSON(out, outputs)
			case "yaml":
				return util.SerializeToYAML(out, outputs)
			default:
				table := tablewriter.NewWriter(out)
				table.Header("ID", "NAME", "WORKSPACE", "CHAT", "ALIASES")
				for _, c := range outputs {
					table.Append(c.ID, c.Name, formatBool(c.WorkspaceLocal), c.Strategy, strings.Join(c.Aliases, ", "))
				}
				return table.Render()
			}
		},
	}
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
