// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"os"
	"sync"
	"time"

	"webqa/internal/config"
	"webqa/internal/discovery"
	"webqa/internal/endpoints"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	testsHost     string
	testsAllHosts bool
)

var testsCmd = &cobra.Command{
	Use:   "tests <project>",
	Short: "List the test modules of a project",
	Long: `Discovers the test modules of a project in the local checkout (--root) or on a
configured SSH test host. --all-hosts searches the local checkout and every enabled
host at once.`,
	Args:              usageArgs(cobra.ExactArgs(1)),
	ValidArgsFunction: projectArgsCompletionFunc,
	RunE: func(cmd *cobra.Command, args []string) error {
		project := args[0]
		if err := endpoints.ValidateProject(project); err != nil {
			return &usageError{err: err}
		}
		root, err := runRoot()
		if err != nil {
			return err
		}

		var hosts []*config.Host
		switch {
		case testsAllHosts:
			hosts = append(hosts, nil)
			for _, h := range cfg.EnabledHosts() {
				hosts = append(hosts, &h)
			}
		default:
			host, err := selectedHost(testsHost)
			if err != nil {
				return err
			}
			hosts = append(hosts, host)
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = fmt.Sprintf(" Discovering %s tests...", identifierColor.Sprint(project))
		s.Start()
		targets, errs := discoverTargets(discovery.NewFinder(sshManager, cfg.Runner), root, hosts, project)
		s.Stop()

		out := cmd.OutOrStdout()
		for _, err := range errs {
			errorColor.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		if len(targets) == 0 {
			fmt.Fprintf(out, "No tests found for %s.\n", project)
		}
		for _, t := range targets {
			if len(hosts) > 1 {
				fmt.Fprintf(out, "%s %s\n", dimColor.Sprintf("%s:", t.ServerName), t.Path)
			} else {
				fmt.Fprintln(out, t.Path)
			}
		}

		if len(targets) == 0 && len(errs) > 0 {
			return fmt.Errorf("test discovery failed on every target")
		}
		return nil
	},
}

// discoverTargets searches every host concurrently; a nil host is the local
// checkout. Results keep the order of hosts.
func discoverTargets(finder *discovery.Finder, root string, hosts []*config.Host, project string) ([]discovery.TestTarget, []error) {
	results := make([][]discovery.TestTarget, len(hosts))
	errs := make([]error, len(hosts))

	var wg sync.WaitGroup
	wg.Add(len(hosts))
	for i, host := range hosts {
		go func(i int, host *config.Host) {
			defer wg.Done()
			targets, err := finder.Find(root, host, project)
			results[i] = targets
			if err != nil {
				name := "local"
				if host != nil {
					name = host.Name
				}
				errs[i] = fmt.Errorf("discovery failed on %s: %w", name, err)
			}
		}(i, host)
	}
	wg.Wait()

	var targets []discovery.TestTarget
	var collected []error
	for i := range hosts {
		targets = append(targets, results[i]...)
		if errs[i] != nil {
			collected = append(collected, errs[i])
		}
	}
	return targets, collected
}

func init() {
	testsCmd.Flags().StringVar(&testsHost, "host", "", "discover on a configured SSH test host")
	testsCmd.Flags().BoolVar(&testsAllHosts, "all-hosts", false, "discover locally and on every enabled host")
	testsCmd.MarkFlagsMutuallyExclusive("host", "all-hosts")
	_ = testsCmd.RegisterFlagCompletionFunc("host", hostCompletionFunc)

	rootCmd.AddCommand(testsCmd)
}
