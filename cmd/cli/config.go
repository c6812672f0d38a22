// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"errors"
	"fmt"
	"os"

	"webqa/internal/config"
	"webqa/internal/endpoints"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configLoadErr keeps the load failure so "config path" and "config init" still
// work with a broken file.
var configLoadErr error

var configInitFlags struct {
	user  bool
	force bool
}

// configCmd is the parent command for all configuration-related subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the webqa configuration",
	Long: `Provides subcommands to find, print and create the configuration file that maps
projects and environments to their endpoints.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configLoadErr = loadConfiguration()
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the configuration file in effect",
	Args:  usageArgs(cobra.NoArgs),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, cfgPath)
		switch {
		case configMissing, errors.Is(configLoadErr, config.ErrConfigNotFound):
			stepColor.Fprintln(cmd.ErrOrStderr(), "The file does not exist; built-in endpoints are used.")
		case configLoadErr != nil:
			errorColor.Fprintf(cmd.ErrOrStderr(), "The file is invalid: %v\n", configLoadErr)
		}
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long:  `Prints the configuration after defaults are applied. Host passwords are masked.`,
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if configLoadErr != nil {
			return configLoadErr
		}
		warnMissingConfig(cmd.ErrOrStderr())

		shown := cfg
		shown.Hosts = make([]config.Host, len(cfg.Hosts))
		for i, h := range cfg.Hosts {
			if h.Password != "" {
				h.Password = "********"
			}
			shown.Hosts[i] = h
		}

		data, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Writes a configuration with the built-in endpoints and default runner settings.
The file goes to --config if given, ./config/config.yaml by default, or the user
config directory with --user. An existing file is kept unless --force is set.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := initTarget()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitFlags.force {
			return usagef("%s already exists; use --force to overwrite it", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}

		if err := config.Save(path, starterConfig()); err != nil {
			return err
		}
		successColor.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "Add ui_url entries for the callcenter and patientintake environments before running them.")
		return nil
	},
}

func initTarget() (string, error) {
	switch {
	case configFlag != "":
		return config.ResolvePath(configFlag)
	case configInitFlags.user:
		return config.UserConfigPath()
	default:
		return config.ProjectConfigPath()
	}
}

// starterConfig seeds the projects with the fallback endpoints.
func starterConfig() config.Config {
	c := config.Default()
	for project, envs := range endpoints.Fallback() {
		pc := config.ProjectConfig{Environments: map[string]config.EnvironmentEndpoints{}}
		for env, e := range envs {
			pc.Environments[env] = config.EnvironmentEndpoints{UIURL: e.UIURL, APIURL: e.APIURL}
		}
		c.Projects[project] = pc
	}
	return c
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitFlags.user, "user", false, "write to the user config directory")
	configInitCmd.Flags().BoolVar(&configInitFlags.force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(configCmd)
}
