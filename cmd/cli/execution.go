// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"webqa/internal/config"
	"webqa/internal/discovery"
	"webqa/internal/endpoints"
	"webqa/internal/logger"
	"webqa/internal/report"
	"webqa/internal/runner"
	"webqa/internal/wizard"

	"github.com/spf13/cobra"
)

// interruptedExitCode is reported when SIGINT or SIGTERM stopped the runner.
const interruptedExitCode = 130

var runFlags struct {
	project string
	env     string
	browser string
	headed  bool
	verbose bool
	workers int
	timeout time.Duration
	markers string
	html    bool
	allure  bool
	host    string
	dryRun  bool
}

var runCmd = &cobra.Command{
	Use:   "run [test-path] [-- pytest-args...]",
	Short: "Run the browser suite against a project environment",
	Long: `Resolves the endpoints of --project and --env, builds the pytest command and
runs it. Without a test path the whole project is run. Arguments after "--" are
passed to pytest unchanged.

The process exits with the runner's exit code, or 2 when the environment has no
endpoint configured.

Examples:
  webqa run --project bookslot --env staging
  webqa run --project bookslot --env production --headed pages/bookslot/bookslots_basicinfo.py
  webqa run --project callcenter --env staging --host ci-runner -m smoke -- --maxfail=1`,
	Args: cobra.ArbitraryArgs,
	RunE: runTests,
}

// splitAtDash separates the optional test path from pass-through pytest arguments.
func splitAtDash(cmd *cobra.Command, args []string) ([]string, []string) {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		return args[:dash], args[dash:]
	}
	return args, nil
}

// selectedHost returns the configured host named by flag, or nil for local runs.
func selectedHost(name string) (*config.Host, error) {
	if name == "" || name == "local" {
		return nil, nil
	}
	host, err := cfg.FindHost(name)
	if err != nil {
		return nil, &usageError{err: err}
	}
	return &host, nil
}

func runTests(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	positional, extra := splitAtDash(cmd, args)
	if len(positional) > 1 {
		return usagef("accepts at most one test path, received %d", len(positional))
	}
	if runFlags.project == "" || runFlags.env == "" {
		return usagef("both --project and --env are required")
	}

	planner, err := newPlanner()
	if err != nil {
		return err
	}
	host, err := selectedHost(runFlags.host)
	if err != nil {
		return err
	}

	choice := wizard.Choice{
		Project:     runFlags.project,
		Environment: runFlags.env,
		Browser:     runFlags.browser,
		Headed:      runFlags.headed,
		Verbose:     runFlags.verbose,
		Workers:     runFlags.workers,
		Timeout:     runFlags.timeout,
		Markers:     runFlags.markers,
		HTMLReport:  runFlags.html,
		Allure:      runFlags.allure,
		Extra:       extra,
		Host:        host,
	}
	if choice.Browser == "" {
		choice.Browser = cfg.Runner.DefaultBrowser
	}
	if !cmd.Flags().Changed("workers") {
		choice.Workers = cfg.Runner.Workers
	}
	if !cmd.Flags().Changed("timeout") {
		choice.Timeout = time.Duration(cfg.Runner.Timeout) * time.Second
	}
	if len(positional) == 1 {
		choice.TestPath = positional[0]
	} else if endpoints.ValidateProject(choice.Project) == nil {
		catalog := discovery.Catalog{Finder: discovery.NewFinder(sshManager, cfg.Runner), Root: planner.Root, Host: host}
		choice.TestPath = catalog.DefaultPath(choice.Project)
	}

	warnMissingConfig(errOut)
	plan, err := planner.Plan(choice)
	if err != nil {
		if errors.Is(err, wizard.ErrEndpointNotConfigured) {
			errorColor.Fprintln(errOut, "Preflight check failed; nothing was run.")
			return err
		}
		if endpoints.ValidateProject(choice.Project) != nil || endpoints.ValidateEnvironment(choice.Environment) != nil {
			return &usageError{err: err}
		}
		return err
	}

	printPlan(out, plan)
	if runFlags.dryRun {
		dimColor.Fprintln(out, "Dry run; the runner was not started.")
		return nil
	}

	r := runner.New(sshManager)
	r.Stdout = out
	r.Stderr = errOut

	started := time.Now()
	runErr := r.Wait(cmd.Context(), plan.Invocation)
	if ctxErr := cmd.Context().Err(); runErr != nil && ctxErr != nil {
		runErr = &runner.ExitError{Desc: plan.Invocation.Describe(), Code: interruptedExitCode, Err: ctxErr}
	}

	outcome, collectErr := plan.Collect(runner.ExitCode(runErr), started)
	printOutcome(out, plan, outcome)
	if collectErr != nil {
		logger.Warn("Failed to read reports", "error", collectErr)
		stepColor.Fprintf(errOut, "Warning: failed to read reports: %v\n", collectErr)
	}

	if runErr != nil {
		var exitErr *runner.ExitError
		if errors.As(runErr, &exitErr) {
			return runErr
		}
		return fmt.Errorf("runner failed: %w", runErr)
	}
	return nil
}

// printPlan shows what is about to run and where its endpoints came from.
func printPlan(w io.Writer, plan wizard.Plan) {
	sel := plan.Selection
	e := sel.Endpoints()

	statusColor.Fprintln(w, "Preflight passed:")
	fmt.Fprintf(w, "  Project:     %s\n", identifierColor.Sprint(sel.Project()))
	fmt.Fprintf(w, "  Environment: %s\n", identifierColor.Sprint(sel.Environment()))
	fmt.Fprintf(w, "  UI URL:      %s %s\n", e.UIURL, dimColor.Sprintf("(%s)", sel.Origin()))
	if e.APIURL != "" {
		fmt.Fprintf(w, "  API URL:     %s\n", e.APIURL)
	}
	fmt.Fprintf(w, "  Runs on:     %s\n", plan.Invocation.Describe())
	stepColor.Fprintf(w, "$ %s\n", plan.Command)
}

// printOutcome prints the JUnit summary, failed tests and collected artifacts.
func printOutcome(w io.Writer, plan wizard.Plan, o wizard.Outcome) {
	fmt.Fprintln(w)
	statusColor.Fprintln(w, "Summary:")
	switch {
	case o.Summary != nil && o.Summary.OK():
		successColor.Fprintf(w, "  %s\n", o.Summary.Line())
	case o.Summary != nil:
		errorColor.Fprintf(w, "  %s\n", o.Summary.Line())
		for _, f := range o.Summary.Failed {
			fmt.Fprintf(w, "  %s %s\n", errorColor.Sprint(strings.ToUpper(f.Kind)), f.ID())
			if f.Message != "" {
				dimColor.Fprintf(w, "      %s\n", f.Message)
			}
		}
	case plan.JUnitPath == "":
		dimColor.Fprintln(w, "  Reports stay on the test host.")
	default:
		dimColor.Fprintln(w, "  No JUnit report was written.")
	}

	printArtifacts(w, "Screenshots", o.Artifacts.Screenshots)
	printArtifacts(w, "Videos", o.Artifacts.Videos)
	printArtifacts(w, "HTML reports", o.Artifacts.Reports)
	printArtifacts(w, "Allure results", o.Artifacts.AllureDirs)

	if o.ExitCode == 0 {
		successColor.Fprintln(w, "Run passed.")
	} else {
		errorColor.Fprintf(w, "Run failed with exit code %d.\n", o.ExitCode)
	}
}

func printArtifacts(w io.Writer, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	stepColor.Fprintf(w, "%s:\n", title)
	for _, p := range paths {
		fmt.Fprintf(w, "  %s\n", report.FileURL(p))
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.project, "project", "p", "", "project under test ("+strings.Join(endpoints.KnownProjects, ", ")+")")
	f.StringVarP(&runFlags.env, "env", "e", "", "environment ("+strings.Join(endpoints.KnownEnvironments, ", ")+")")
	f.StringVarP(&runFlags.browser, "browser", "b", "", "browser engine (default from runner settings)")
	f.BoolVar(&runFlags.headed, "headed", false, "show the browser window")
	f.BoolVarP(&runFlags.verbose, "verbose", "v", false, "verbose pytest output")
	f.IntVarP(&runFlags.workers, "workers", "n", 0, "pytest-xdist worker count (0 disables)")
	f.DurationVar(&runFlags.timeout, "timeout", 0, "per-test timeout, e.g. 90s (0 disables)")
	f.StringVarP(&runFlags.markers, "markers", "m", "", "pytest marker expression")
	f.BoolVar(&runFlags.html, "html", false, "write a self-contained HTML report")
	f.BoolVar(&runFlags.allure, "allure", false, "write Allure results")
	f.StringVar(&runFlags.host, "host", "", "run on a configured SSH test host")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "print the command without running it")

	_ = runCmd.RegisterFlagCompletionFunc("project", projectCompletionFunc)
	_ = runCmd.RegisterFlagCompletionFunc("env", environmentCompletionFunc)
	_ = runCmd.RegisterFlagCompletionFunc("browser", browserCompletionFunc)
	_ = runCmd.RegisterFlagCompletionFunc("host", hostCompletionFunc)
	runCmd.ValidArgsFunction = testPathCompletionFunc

	rootCmd.AddCommand(runCmd)
}
