// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"

	"webqa/internal/endpoints"
	"webqa/internal/util"
	"webqa/internal/wizard"

	"github.com/spf13/cobra"
)

var resolveShell bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <project> <environment>",
	Short: "Show the endpoints a project environment resolves to",
	Long: `Prints the UI and API base URLs of a project environment and whether they
come from the configuration file or the built-in fallback table.

Exits with code 2 when nothing is configured for the pair. With --shell the
result is printed as export statements for the runner's environment variables.`,
	Args:              usageArgs(cobra.ExactArgs(2)),
	ValidArgsFunction: projectEnvironmentArgsCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		project, env := args[0], args[1]

		sel := newResolver().Select(project, env)
		e := sel.Endpoints()

		if resolveShell {
			if !sel.Configured() {
				return fmt.Errorf("%w for %s/%s", wizard.ErrEndpointNotConfigured, project, env)
			}
			fmt.Fprintf(out, "export %s=%s\n", wizard.EnvProject, util.QuoteArgForShell(project))
			fmt.Fprintf(out, "export %s=%s\n", wizard.EnvEnv, util.QuoteArgForShell(env))
			fmt.Fprintf(out, "export %s=%s\n", wizard.EnvUIURL, util.QuoteArgForShell(e.UIURL))
			if e.APIURL != "" {
				fmt.Fprintf(out, "export %s=%s\n", wizard.EnvAPIURL, util.QuoteArgForShell(e.APIURL))
			}
			return nil
		}

		warnMissingConfig(cmd.ErrOrStderr())
		if err := endpoints.ValidateProject(project); err != nil {
			stepColor.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}

		fmt.Fprintf(out, "%s / %s\n", identifierColor.Sprint(project), identifierColor.Sprint(env))
		if !sel.Configured() {
			errorColor.Fprintln(out, "  not configured")
			return fmt.Errorf("%w for %s/%s", wizard.ErrEndpointNotConfigured, project, env)
		}
		fmt.Fprintf(out, "  UI URL:  %s\n", e.UIURL)
		if e.APIURL != "" {
			fmt.Fprintf(out, "  API URL: %s\n", e.APIURL)
		} else {
			fmt.Fprintf(out, "  API URL: %s\n", dimColor.Sprint("(none)"))
		}
		fmt.Fprintf(out, "  Source:  %s\n", sel.Origin())
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects under test and their environments",
	Args:  usageArgs(cobra.NoArgs),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		warnMissingConfig(cmd.ErrOrStderr())

		resolver := newResolver()
		for _, project := range endpoints.KnownProjects {
			fmt.Fprintf(out, "%s %s\n", identifierColor.Sprint(project), dimColor.Sprintf("(%s)", endpoints.ProjectDescriptions[project]))
			for _, env := range endpoints.KnownEnvironments {
				sel := resolver.Select(project, env)
				if !sel.Configured() {
					fmt.Fprintf(out, "  %-11s %s\n", env, errorColor.Sprint("not configured"))
					continue
				}
				fmt.Fprintf(out, "  %-11s %s %s\n", env, sel.Endpoints().UIURL, dimColor.Sprintf("[%s]", sel.Origin()))
			}
		}
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveShell, "shell", false, "print export statements for the runner environment")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(projectsCmd)
}
