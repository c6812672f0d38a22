// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"webqa/internal/command"
	"webqa/internal/config"
	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/wizard"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	color.NoColor = true
	os.Exit(m.Run())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI without a config file unless args name one.
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv(config.EnvVar, filepath.Join(tmp, "missing.yaml"))
	t.Setenv("XDG_CONFIG_HOME", tmp)

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	code := Execute(context.Background(), args)
	return code, out.String(), errOut.String()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", &runner.ExitError{Code: 3})))
	assert.Equal(t, 2, ExitCode(usagef("bad flag")))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("x: %w", wizard.ErrEndpointNotConfigured)))
	assert.Equal(t, 2, ExitCode(command.ErrNoTestPath))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
}

func TestResolve_Fallback(t *testing.T) {
	code, out, errOut := execute(t, "resolve", "bookslot", "staging")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "https://bookslot-staging.centerforvein.com")
	assert.Contains(t, out, "Source:  fallback")
	assert.Contains(t, errOut, "No configuration file found")
}

func TestResolve_NotConfigured(t *testing.T) {
	code, out, errOut := execute(t, "resolve", "callcenter", "production")
	assert.Equal(t, 2, code)
	assert.Contains(t, out, "not configured")
	assert.Contains(t, errOut, "endpoint not configured")

	code, _, errOut = execute(t, "resolve", "unknownproject", "staging")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown project")
}

func TestResolve_ShellFromConfig(t *testing.T) {
	path := writeConfig(t, `
projects:
  callcenter:
    environments:
      staging:
        ui_url: https://cc-staging.example.com
        api_url: https://cc-api-staging.example.com
`)
	code, out, _ := execute(t, "--config", path, "resolve", "--shell", "callcenter", "staging")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "export WEBQA_UI_URL=https://cc-staging.example.com\n")
	assert.Contains(t, out, "export WEBQA_API_URL=https://cc-api-staging.example.com\n")
}

func TestResolve_WrongArgCount(t *testing.T) {
	code, _, _ := execute(t, "resolve", "bookslot")
	assert.Equal(t, 2, code)
}

func TestProjects(t *testing.T) {
	code, out, _ := execute(t, "projects")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "bookslot (Appointment booking)")
	assert.Contains(t, out, "https://bookslots.centerforvein.com [fallback]")
	assert.Contains(t, out, "patientintake")
	assert.Contains(t, out, "not configured")
}

func TestRun_DryRun(t *testing.T) {
	code, out, _ := execute(t, "run", "--root", t.TempDir(), "--project", "bookslot", "--env", "production",
		"--headed", "--dry-run", "pages/bookslot/bookslots_basicinfo.py")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "--env=production")
	assert.Contains(t, out, "--headed")
	assert.Contains(t, out, "pages/bookslot/bookslots_basicinfo.py")
	assert.Contains(t, out, "--browser=chromium")
	assert.Contains(t, out, "Dry run")
}

func TestRun_DefaultTestPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tests", "bookslot"), 0750))

	code, out, _ := execute(t, "run", "--root", root, "-p", "bookslot", "-e", "staging", "--dry-run")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "tests/bookslot")
}

func TestRun_PreflightHalts(t *testing.T) {
	code, out, errOut := execute(t, "run", "--project", "callcenter", "--env", "staging", "--dry-run", "tests/callcenter")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Preflight check failed")
	assert.NotContains(t, out, "$ ")
}

func TestRun_UsageErrors(t *testing.T) {
	code, _, errOut := execute(t, "run", "--env", "staging")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--project and --env are required")

	code, _, _ = execute(t, "run", "--project", "bookslot", "--env", "qa", "tests")
	assert.Equal(t, 2, code)

	code, _, _ = execute(t, "run", "--no-such-flag")
	assert.Equal(t, 2, code)

	code, _, _ = execute(t, "run", "--project", "bookslot", "--env", "staging", "--host", "nowhere", "tests")
	assert.Equal(t, 2, code)
}

func TestRun_PropagatesRunnerExitCode(t *testing.T) {
	path := writeConfig(t, `
projects: {}
runner:
  command: ["sh", "-c", "echo running $WEBQA_PROJECT on $WEBQA_UI_URL; exit 3", "sh"]
`)
	code, out, _ := execute(t, "--config", path, "run", "--root", t.TempDir(),
		"--project", "bookslot", "--env", "staging", "tests/bookslot")
	assert.Equal(t, 3, code)
	assert.Contains(t, out, "running bookslot on https://bookslot-staging.centerforvein.com")
	assert.Contains(t, out, "No JUnit report was written.")
	assert.Contains(t, out, "Run failed with exit code 3.")
}

func TestRun_ReadsJUnitSummary(t *testing.T) {
	root := t.TempDir()
	script := `mkdir -p reports && cat > reports/junit.xml <<'EOF'
<testsuites><testsuite name="pytest" tests="2">
<testcase classname="tests.bookslot.test_booking" name="test_ok" time="0.5"/>
<testcase classname="tests.bookslot.test_booking" name="test_bad" time="0.5"><failure message="assert False">trace</failure></testcase>
</testsuite></testsuites>
EOF
exit 1`
	path := writeConfig(t, fmt.Sprintf(`
projects: {}
runner:
  command: ["sh", "-c", %q, "sh"]
`, script))

	code, out, _ := execute(t, "--config", path, "run", "--root", root,
		"--project", "bookslot", "--env", "production", "tests/bookslot")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "1 passed, 1 failed")
	assert.Contains(t, out, "FAILURE tests.bookslot.test_booking::test_bad")
	assert.Contains(t, out, "assert False")
}

func TestTests_ListsLocalModules(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "tests", "bookslot")
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_booking.py"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"), nil, 0600))

	code, out, _ := execute(t, "tests", "--root", root, "bookslot")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "tests/bookslot/test_booking.py")
	assert.NotContains(t, out, "helpers.py")

	code, _, _ = execute(t, "tests", "nope")
	assert.Equal(t, 2, code)
}

func TestConfigInitShowAndHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webqa.yaml")

	code, out, _ := execute(t, "--config", path, "config", "init")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Configuration written to "+path)

	code, _, errOut := execute(t, "--config", path, "config", "init")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "already exists")

	code, out, _ = execute(t, "--config", path, "config", "show")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "https://bookslots.centerforvein.com")

	sshConfig := filepath.Join(t.TempDir(), "ssh_config")
	require.NoError(t, os.WriteFile(sshConfig, []byte(`
Host runner1
  HostName 10.0.0.5
  User qa
  Port 2222
`), 0600))

	code, out, _ = execute(t, "--config", path, "hosts", "import", "--ssh-config", sshConfig, "--remote-root", "~/suite")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Imported 1 host(s)")

	code, out, _ = execute(t, "--config", path, "hosts", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "runner1 (qa@10.0.0.5:2222)")
	assert.Contains(t, out, "Remote Root: ~/suite")

	code, out, _ = execute(t, "--config", path, "hosts", "import", "--ssh-config", sshConfig)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No new hosts available to import.")

	code, out, _ = execute(t, "--config", path, "config", "path")
	require.Equal(t, 0, code)
	assert.Equal(t, path+"\n", out)
}

func TestConfig_InvalidFileIsUsageError(t *testing.T) {
	path := writeConfig(t, `
projects:
  bookslot:
    environments:
      staging:
        ui_url: not a url
`)
	code, _, errOut := execute(t, "--config", path, "projects")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid configuration")

	code, out, _ := execute(t, "--config", path, "config", "path")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, path)
}

func TestConfig_EntryWithoutUIURLIsRejected(t *testing.T) {
	path := writeConfig(t, `
projects:
  bookslot:
    environments:
      staging:
        api_url: https://bookslot-api.example.test
`)
	code, out, errOut := execute(t, "--config", path, "resolve", "bookslot", "staging")
	assert.Equal(t, 2, code)
	assert.NotContains(t, out, "https://bookslot-staging.centerforvein.com")
	assert.Contains(t, errOut, "project 'bookslot' environment 'staging'")
	assert.Contains(t, errOut, "UIURL")

	code, out, _ = execute(t, "--config", path, "run", "-p", "bookslot", "-e", "staging", "--dry-run", "tests/bookslot")
	assert.Equal(t, 2, code)
	assert.NotContains(t, out, "$ ")
}

func TestStarterConfigIsValid(t *testing.T) {
	c := starterConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "https://bookslot-staging.centerforvein.com", c.Projects["bookslot"].Environments["staging"].UIURL)
}

func TestCompletion(t *testing.T) {
	got, _ := projectCompletionFunc(nil, nil, "book")
	assert.Equal(t, []string{"bookslot\tAppointment booking"}, got)

	got, _ = projectEnvironmentArgsCompletionFunc(nil, []string{"bookslot"}, "p")
	assert.Equal(t, []string{"production"}, got)

	got, _ = browserCompletionFunc(nil, nil, "fi")
	assert.Equal(t, []string{"firefox"}, got)
}

func TestRunWebServer_ShutsDownOnCancel(t *testing.T) {
	serveAddr = "127.0.0.1:0"
	t.Cleanup(func() { serveAddr = ":8080" })

	ctx, cancel := context.WithCancel(context.Background())
	var startedOn string
	err := runWebServer(ctx, http.NotFoundHandler(), func(addr string) {
		startedOn = addr
		cancel()
	})
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", startedOn)
}
