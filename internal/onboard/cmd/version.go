package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
)

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, build time, and git commit information for the onboard CLI`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "onboard %s\n", config.Version)
			fmt.Fprintf(out, "Build time: %s\n", config.BuildTime)
			fmt.Fprintf(out, "Git commit: %s\n", config.GitCommit)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
