// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"webqa/internal/discovery"
	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/wizard"
)

// RunRequest selects a run. It is the body of POST /api/plan and the query of
// GET /api/run/stream.
type RunRequest struct {
	Project     string `json:"project"`
	Environment string `json:"environment"`
	Browser     string `json:"browser,omitempty"`
	TestPath    string `json:"testPath,omitempty"`
	Headed      bool   `json:"headed,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
	Markers     string `json:"markers,omitempty"`
	Workers     int    `json:"workers,omitempty"`
	Timeout     int    `json:"timeout,omitempty"` // Seconds
	HTMLReport  bool   `json:"html,omitempty"`
	Allure      bool   `json:"allure,omitempty"`
	Host        string `json:"host,omitempty"`
}

// PlanResponse describes a preflighted run.
type PlanResponse struct {
	EnvironmentInfo
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Target  string   `json:"target"`
}

// RunSummary is the payload of the "summary" stream event.
type RunSummary struct {
	ExitCode    int      `json:"exitCode"`
	Passed      int      `json:"passed"`
	Failed      int      `json:"failed"`
	Errors      int      `json:"errors"`
	Skipped     int      `json:"skipped"`
	Seconds     float64  `json:"seconds"`
	HasReport   bool     `json:"hasReport"`
	FailedTests []string `json:"failedTests,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
	Videos      []string `json:"videos,omitempty"`
	Reports     []string `json:"reports,omitempty"`
}

// runRequestFromQuery decodes a RunRequest from URL query parameters.
func runRequestFromQuery(q url.Values) (RunRequest, error) {
	req := RunRequest{
		Project:     q.Get("project"),
		Environment: q.Get("environment"),
		Browser:     q.Get("browser"),
		TestPath:    q.Get("testPath"),
		Markers:     q.Get("markers"),
		Host:        q.Get("host"),
	}

	bools := map[string]*bool{"headed": &req.Headed, "verbose": &req.Verbose, "html": &req.HTMLReport, "allure": &req.Allure}
	for name, dst := range bools {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return req, fmt.Errorf("invalid '%s' parameter: %w", name, err)
			}
			*dst = b
		}
	}
	ints := map[string]*int{"workers": &req.Workers, "timeout": &req.Timeout}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return req, fmt.Errorf("invalid '%s' parameter: %q", name, v)
			}
			*dst = n
		}
	}
	return req, nil
}

// plan runs the same preflight as the command line front ends.
func (s *Server) plan(req RunRequest) (wizard.Plan, error) {
	host, err := s.findHost(req.Host)
	if err != nil {
		return wizard.Plan{}, err
	}

	c := wizard.Choice{
		Project:     req.Project,
		Environment: req.Environment,
		Browser:     req.Browser,
		TestPath:    req.TestPath,
		Headed:      req.Headed,
		Verbose:     req.Verbose,
		Workers:     req.Workers,
		Timeout:     time.Duration(req.Timeout) * time.Second,
		Markers:     req.Markers,
		HTMLReport:  req.HTMLReport,
		Allure:      req.Allure,
		Host:        host,
	}
	if c.Browser == "" {
		c.Browser = s.Planner.Settings.DefaultBrowser
	}
	if c.TestPath == "" && c.Project != "" {
		catalog := discovery.Catalog{Finder: s.Finder, Root: s.Planner.Root, Host: host}
		c.TestPath = catalog.DefaultPath(c.Project)
	}
	return s.Planner.Plan(c)
}

func planResponse(plan wizard.Plan) PlanResponse {
	return PlanResponse{
		EnvironmentInfo: environmentInfo(plan.Selection),
		Command:         plan.Command,
		Args:            plan.Args,
		Target:          plan.Invocation.Describe(),
	}
}

func (s *Server) planHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("error reading request body: %w", err))
		return
	}
	var req RunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	plan, err := s.plan(req)
	if err != nil {
		writeError(w, statusForPlanError(err), err)
		return
	}
	writeJSONResponse(w, http.StatusOK, planResponse(plan))
}

// writeEvent sends one Server-Sent Event. Newlines in data are escaped so an
// event always has a single data line.
func writeEvent(w io.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, strings.ReplaceAll(data, "\n", "\\n"))
}

// streamRunHandler runs the suite and streams its output using Server-Sent
// Events: "plan", "stdout"/"stderr" per line, "error" when the runner could
// not run, "summary" with a RunSummary, "exit" with the exit code, then "done".
// Preflight failures are plain JSON errors, and a request made while another
// run streams gets 409.
func (s *Server) streamRunHandler(w http.ResponseWriter, r *http.Request) {
	req, err := runRequestFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	plan, err := s.plan(req)
	if err != nil {
		writeError(w, statusForPlanError(err), err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, ErrRunInProgress)
		return
	}
	defer s.running.Store(false)

	// Set headers for Server-Sent Events
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	writeEvent(w, "plan", plan.Command)
	flusher.Flush()

	logger.Info("Starting run from API", "command", plan.Command, "target", plan.Invocation.Describe())
	started := time.Now()
	outChan, errChan := s.Runner.Run(r.Context(), plan.Invocation, false)

	for outputLine := range outChan {
		event := "stdout"
		if outputLine.IsError {
			event = "stderr"
		}
		for _, line := range strings.Split(strings.TrimRight(outputLine.Line, " \t\r\n"), "\n") {
			if trimmed := strings.TrimRight(line, " \t\r"); trimmed != "" {
				writeEvent(w, event, trimmed)
			}
		}
		flusher.Flush()
	}

	runErr := <-errChan
	var exitErr *runner.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		writeEvent(w, "error", runErr.Error())
	}

	code := runner.ExitCode(runErr)
	outcome, err := plan.Collect(code, started)
	if err != nil {
		writeEvent(w, "error", fmt.Sprintf("failed to read reports: %v", err))
	}
	summary, err := json.Marshal(runSummary(outcome))
	if err == nil {
		writeEvent(w, "summary", string(summary))
	}

	writeEvent(w, "exit", strconv.Itoa(code))
	writeEvent(w, "done", "Run finished")
	flusher.Flush()
}

func runSummary(o wizard.Outcome) RunSummary {
	rs := RunSummary{
		ExitCode:    o.ExitCode,
		Screenshots: o.Artifacts.Screenshots,
		Videos:      o.Artifacts.Videos,
		Reports:     o.Artifacts.Reports,
	}
	if o.Summary != nil {
		rs.HasReport = true
		rs.Passed = o.Summary.Passed()
		rs.Failed = o.Summary.Failures
		rs.Errors = o.Summary.Errors
		rs.Skipped = o.Summary.Skipped
		rs.Seconds = o.Summary.Duration.Seconds()
		for _, f := range o.Summary.Failed {
			rs.FailedTests = append(rs.FailedTests, f.ID())
		}
	}
	return rs
}
