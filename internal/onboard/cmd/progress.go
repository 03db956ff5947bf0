package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/orchestrator"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

// installProgress renders orchestrator callbacks on stderr.
type installProgress struct {
	out     io.Writer
	spinner common.Spinner
}

func newInstallProgress(cmd *cobra.Command, verbose bool) *installProgress {
	out := cmd.ErrOrStderr()
	if !verbose {
		out = io.Discard
	}
	return &installProgress{out: out}
}

func (p *installProgress) callbacks() orchestrator.Callbacks {
	return orchestrator.Callbacks{
		OnInstallationStarting: func() {
			fmt.Fprintln(p.out, "Running the MCP installer...")
		},
		OnVerifying: func(projectID string) {
			p.spinner = common.NewSpinner(p.out, fmt.Sprintf("Verifying MCP server for project %s...", projectID))
		},
		OnVerified: func(_ string, tools []string) {
			p.finish(fmt.Sprintf("✓ MCP server verified with %d tools: %s", len(tools), strings.Join(tools, ", ")))
		},
		OnFailed: func(string, string) {
			p.finish("")
		},
	}
}

func (p *installProgress) finish(message string) {
	if p.spinner != nil {
		p.spinner.Stop(message)
		p.spinner = nil
		return
	}
	if message != "" {
		fmt.Fprintln(p.out, message)
	}
}

func (p *installProgress) stop() {
	p.finish("")
}

// skipChat stands in for the chat opener when --no-chat is set.
type skipChat struct{}

func (skipChat) TryOpen(context.Context, string, string, chat.Options) chat.Result {
	return chat.Result{Success: true, Method: chat.MethodNone}
}

func newInstallSummary(run *orchestrator.Run) installSummary {
	s := installSummary{
		RunID:     run.ID,
		ProjectID: run.ProjectID,
		Client:    run.Client.ID,
		Workspace: run.WorkspacePath,
		State:     run.Outcome,
		ExitCode:  run.Install.ExitCode,
		Tools:     run.Tools,
	}
	if run.Chat != nil {
		s.Chat = string(run.Chat.Method)
		if run.Chat.IsDegraded() {
			s.Chat += " (" + string(run.Chat.Degraded) + ")"
		}
	}
	if run.Err != nil {
		s.Error = run.Err.Error()
	}
	return s
}

func outputInstallSummary(cmd *cobra.Command, format string, run *orchestrator.Run) error {
	summary := newInstallSummary(run)
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		return util.SerializeToJSON(out, summary)
	case "yaml":
		return util.SerializeToYAML(out, summary)
	}

	if run.Client.ID == "" {
		return nil
	}
	if run.Outcome != orchestrator.ChatOpened {
		return nil
	}
	fmt.Fprintf(out, "Onboard MCP server is ready in %s.\n", run.Client.Name)
	if run.Chat != nil && !run.Chat.Success {
		fmt.Fprintf(out, "Could not open the %s chat: %s\n", run.Client.Name, run.Chat.Error)
	}
	return nil
}
