// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package cli's config_ssh.go file implements the commands for SSH test hosts:
// listing them, importing them from ~/.ssh/config and checking connectivity.

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"webqa/internal/config"
	"webqa/internal/ssh"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var hostsImportFlags struct {
	sshConfig  string
	remoteRoot string
	dryRun     bool
}

// hostsCmd is the parent command for test host subcommands
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage remote SSH test hosts",
	Long: `List, import or check the SSH hosts that can run the suite remotely with
"webqa run --host <name>".`,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured test hosts",
	Args:  usageArgs(cobra.NoArgs),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if len(cfg.Hosts) == 0 {
			fmt.Fprintln(out, "No test hosts configured.")
			return
		}

		statusColor.Fprintln(out, "Configured test hosts:")
		for i, host := range cfg.Hosts {
			details := fmt.Sprintf("%s@%s", host.User, host.Hostname)
			if host.Port != 0 && host.Port != 22 {
				details += fmt.Sprintf(":%d", host.Port)
			}
			fmt.Fprintf(out, "%d: %s (%s)\n", i+1, identifierColor.Sprint(host.Name), details)
			if host.RemoteRoot != "" {
				fmt.Fprintf(out, "   Remote Root: %s\n", host.RemoteRoot)
			} else {
				fmt.Fprintf(out, "   Remote Root: %s\n", dimColor.Sprint("[login directory]"))
			}
			if host.KeyPath != "" {
				fmt.Fprintf(out, "   Key Path:    %s\n", host.KeyPath)
			}
			if host.Password != "" {
				fmt.Fprintf(out, "   Password:    %s\n", errorColor.Sprint("[set, stored insecurely]"))
			}
			if host.Disabled {
				fmt.Fprintf(out, "   Status:      %s\n", errorColor.Sprint("Disabled"))
			}
		}
	},
}

// displayPotentialHosts prints the ssh_config entries and returns those whose
// alias is not yet a configured host.
func displayPotentialHosts(w io.Writer, potentialHosts []config.PotentialHost, currentHosts []config.Host) []config.PotentialHost {
	importable := []config.PotentialHost{}
	existing := make(map[string]bool, len(currentHosts))
	for _, h := range currentHosts {
		existing[h.Name] = true
	}

	for i, p := range potentialHosts {
		if existing[p.Alias] {
			fmt.Fprintf(w, "  %d: %s (%s) - %s\n", i+1, identifierColor.Sprint(p.Alias), p.Hostname, dimColor.Sprint("[skipped: name already configured]"))
			continue
		}
		fmt.Fprintf(w, "  %d: %s (Hostname: %s, User: %s, Port: %d)\n", i+1, identifierColor.Sprint(p.Alias), p.Hostname, p.User, p.Port)
		if p.KeyPath != "" {
			fmt.Fprintf(w, "     Key: %s\n", p.KeyPath)
		}
		importable = append(importable, p)
	}
	return importable
}

var hostsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import test hosts from ~/.ssh/config",
	Long: `Reads Host entries from an OpenSSH client configuration and adds those with a
hostname and user as test hosts. Entries whose alias is already a configured host
are skipped. The result is saved to the configuration file in effect.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		path := hostsImportFlags.sshConfig
		if path == "" {
			p, err := config.DefaultSSHConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		resolved, err := config.ResolvePath(path)
		if err != nil {
			return err
		}

		potential, err := config.ParseSSHConfigFile(resolved)
		if err != nil {
			return err
		}
		if len(potential) == 0 {
			fmt.Fprintf(out, "No importable hosts found in %s.\n", resolved)
			return nil
		}

		fmt.Fprintf(out, "Found potential hosts in %s:\n", resolved)
		importable := displayPotentialHosts(out, potential, cfg.Hosts)
		if len(importable) == 0 {
			fmt.Fprintln(out, "\nNo new hosts available to import.")
			return nil
		}
		if hostsImportFlags.dryRun {
			dimColor.Fprintf(out, "\nDry run; %d host(s) would be imported.\n", len(importable))
			return nil
		}

		imported, skipped := cfg.ImportHosts(importable, hostsImportFlags.remoteRoot)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("imported hosts are invalid: %w", err)
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
		successColor.Fprintf(out, "\nImported %d host(s) into %s", imported, cfgPath)
		if skipped > 0 {
			fmt.Fprintf(out, " (%d skipped)", skipped)
		}
		fmt.Fprintln(out)
		return nil
	},
}

var hostsCheckCmd = &cobra.Command{
	Use:   "check [name...]",
	Short: "Open an SSH connection to test hosts",
	Long: `Connects to the named hosts, or every enabled host, and reports whether the
connection could be established.`,
	ValidArgsFunction: hostCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		var hosts []config.Host
		if len(args) == 0 {
			hosts = cfg.EnabledHosts()
		}
		for _, name := range args {
			h, err := cfg.FindHost(name)
			if err != nil {
				return &usageError{err: err}
			}
			hosts = append(hosts, h)
		}
		if len(hosts) == 0 {
			fmt.Fprintln(out, "No test hosts configured.")
			return nil
		}

		failed := 0
		for _, h := range hosts {
			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			s.Suffix = fmt.Sprintf(" Connecting to %s...", identifierColor.Sprint(h.Name))
			s.Start()
			_, err := sshManager.GetClient(h)
			s.Stop()

			if err != nil {
				failed++
				fmt.Fprintf(out, "%s %s: %v\n", errorColor.Sprint("FAIL"), h.Name, err)
				continue
			}
			fmt.Fprintf(out, "%s %s (%s)\n", successColor.Sprint("OK"), h.Name, ssh.Address(h))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d host(s) unreachable", failed, len(hosts))
		}
		return nil
	},
}

func init() {
	hostsImportCmd.Flags().StringVar(&hostsImportFlags.sshConfig, "ssh-config", "", "OpenSSH config to read (default ~/.ssh/config)")
	hostsImportCmd.Flags().StringVar(&hostsImportFlags.remoteRoot, "remote-root", "", "suite checkout on the imported hosts")
	hostsImportCmd.Flags().BoolVar(&hostsImportFlags.dryRun, "dry-run", false, "list the hosts without saving")
	_ = hostsImportCmd.MarkFlagFilename("ssh-config")

	hostsCmd.AddCommand(hostsListCmd)
	hostsCmd.AddCommand(hostsImportCmd)
	hostsCmd.AddCommand(hostsCheckCmd)

	rootCmd.AddCommand(hostsCmd)
}
