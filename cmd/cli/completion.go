// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"strings"

	"webqa/internal/config"
	"webqa/internal/discovery"
	"webqa/internal/endpoints"
	"webqa/internal/wizard"

	"github.com/spf13/cobra"
)

// Completion helpers load what they need themselves and ignore every error.

func filterPrefix(values []string, prefix string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}

// projectCompletionFunc suggests project names with their descriptions.
func projectCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var suggestions []string
	for _, p := range filterPrefix(endpoints.KnownProjects, toComplete) {
		suggestions = append(suggestions, p+"\t"+endpoints.ProjectDescriptions[p])
	}
	return suggestions, cobra.ShellCompDirectiveNoFileComp
}

func environmentCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return filterPrefix(endpoints.KnownEnvironments, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func browserCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return filterPrefix(wizard.Browsers, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// hostCompletionFunc suggests "local" and the enabled configured hosts.
func hostCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := []string{"local"}
	if loaded, _, err := config.LoadDefault(configFlag); err == nil {
		for _, h := range loaded.EnabledHosts() {
			names = append(names, h.Name)
		}
	}
	return filterPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// projectArgsCompletionFunc completes a single project argument.
func projectArgsCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return projectCompletionFunc(cmd, args, toComplete)
}

// projectEnvironmentArgsCompletionFunc completes "<project> <environment>".
func projectEnvironmentArgsCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return projectCompletionFunc(cmd, args, toComplete)
	case 1:
		return environmentCompletionFunc(cmd, args, toComplete)
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// testPathCompletionFunc suggests local test modules of the --project flag,
// falling back to file completion when no project is given yet.
func testPathCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	project, _ := cmd.Flags().GetString("project")
	if endpoints.ValidateProject(project) != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}

	settings := config.DefaultRunnerSettings()
	if loaded, _, err := config.LoadDefault(configFlag); err == nil {
		settings = loaded.Runner
	}
	root, err := runRoot()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}

	targets, _ := discovery.NewFinder(nil, settings).FindLocal(root, project)
	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		paths = append(paths, t.Path)
	}
	return filterPrefix(paths, toComplete), cobra.ShellCompDirectiveNoFileComp
}
