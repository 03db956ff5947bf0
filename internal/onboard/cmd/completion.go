package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
)

// filterCompletionsByPrefix filters a slice of strings to only include items
// that start with the given prefix.
func filterCompletionsByPrefix(items []string, prefix string) []string {
	var filtered []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// completeConfigKey completes the first argument of config set and unset.
func completeConfigKey(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterCompletionsByPrefix(config.Keys(), toComplete), cobra.ShellCompDirectiveNoFileComp
}
