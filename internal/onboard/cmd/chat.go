package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

func buildChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interact with an AI assistant's chat",
	}
	cmd.AddCommand(buildChatOpenCmd())
	return cmd
}

func buildChatOpenCmd() *cobra.Command {
	var prompt string
	registry := clients.Default()

	cmd := &cobra.Command{
		Use:   "open <client>",
		Short: "Open a client's chat and deliver the welcome prompt",
		Long: `Open the chat surface of an AI assistant and deliver a prompt.

Depending on the client the prompt is passed to a chat command, pasted
from the clipboard, left on the clipboard for you to paste, or sent to
the client's CLI in a terminal. Clients without a chat integration are
skipped.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: registry.ValidNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			profile, err := registry.Find(args[0])
			if err != nil {
				return common.ExitWithCode(common.ExitInvalidParameters, err)
			}
			if prompt == "" {
				prompt = cfg.WelcomePrompt
			}

			h := newHost(cmd, cfg, "")
			opts := chat.Options{}
			if _, ok := profile.Strategy.(clients.TerminalSend); ok {
				terminal, err := h.Terminals.CreateTerminal(profile.Name, "")
				if err != nil {
					return fmt.Errorf("failed to create terminal: %w", err)
				}
				opts.Terminal = terminal
			}
			result := h.opener().TryOpen(cmd.Context(), profile.ID, prompt, opts)
			logging.Debug("Chat open result",
				zap.String("client", profile.ID),
				zap.Bool("success", result.Success),
				zap.String("method", string(result.Method)),
			)

			out := cmd.OutOrStdout()
			switch cfg.Output {
			case "json":
				if err := util.SerializeToJSON(out, result); err != nil {
					return err
				}
			case "yaml":
				if err := util.SerializeToYAML(out, result); err != nil {
					return err
				}
			default:
				printChatResult(cmd, profile, result)
			}

			if !result.Success {
				return fmt.Errorf("failed to open chat: %s", result.Error)
			}
			return waitForTerminal(cmd, opts.Terminal)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt to deliver (default from config)")
	return cmd
}

func printChatResult(cmd *cobra.Command, profile clients.Profile, result chat.Result) {
	out := cmd.OutOrStdout()
	switch {
	case !result.Success:
		return
	case result.Method == chat.MethodNone:
		fmt.Fprintf(out, "%s has no chat integration; nothing to open.\n", profile.Name)
	case result.IsDegraded():
		fmt.Fprintf(out, "Prompt copied to the clipboard; paste it into %s (%s).\n", profile.Name, result.Degraded)
	default:
		fmt.Fprintf(out, "Opened %s chat via %s.\n", profile.Name, result.Method)
	}
}
