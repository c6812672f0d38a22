// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package api implements the HTTP API served by "webqa serve". It exposes
// endpoint resolution, test discovery and runs to dashboards and CI jobs that
// cannot use the terminal front ends.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"webqa/internal/config"
	"webqa/internal/discovery"
	"webqa/internal/endpoints"
	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/ssh"
	"webqa/internal/wizard"

	"github.com/gorilla/mux"
)

// Server holds what the handlers share. Apart from the run guard it is
// read-only after creation.
type Server struct {
	Planner wizard.Planner
	Finder  *discovery.Finder
	Config  config.Config
	Runner  *runner.Runner

	// running is set while a run streams. Runs share the reports directory
	// under the run root, so only one may run at a time.
	running atomic.Bool
}

// ErrRunInProgress is returned when a run is requested while another streams.
var ErrRunInProgress = errors.New("another run is in progress")

// EnvironmentInfo is the resolution result of one project environment.
type EnvironmentInfo struct {
	Project     string `json:"project"`
	Environment string `json:"environment"`
	UIURL       string `json:"uiUrl"`
	APIURL      string `json:"apiUrl,omitempty"`
	Origin      string `json:"origin"`
	Configured  bool   `json:"configured"`
}

// ProjectInfo lists a project and the resolution of each of its environments.
type ProjectInfo struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Environments []EnvironmentInfo `json:"environments"`
}

// TestsResponse is the body of the test discovery endpoint.
type TestsResponse struct {
	Project string   `json:"project"`
	Host    string   `json:"host"`
	Tests   []string `json:"tests"`
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers every API route on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/projects", s.listProjectsHandler).Methods("GET")
	router.HandleFunc("/api/projects/{project}/tests", s.listTestsHandler).Methods("GET")
	router.HandleFunc("/api/resolve/{project}/{environment}", s.resolveHandler).Methods("GET")
	router.HandleFunc("/api/hosts", s.listHostsHandler).Methods("GET")

	router.HandleFunc("/api/plan", s.planHandler).Methods("POST")
	router.HandleFunc("/api/run/stream", s.streamRunHandler).Methods("GET")
}

// writeJSONResponse writes a JSON response with CORS headers
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode API response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONResponse(w, status, errorResponse{Error: err.Error()})
}

func environmentInfo(sel endpoints.ResolvedSelection) EnvironmentInfo {
	e := sel.Endpoints()
	return EnvironmentInfo{
		Project:     sel.Project(),
		Environment: sel.Environment(),
		UIURL:       e.UIURL,
		APIURL:      e.APIURL,
		Origin:      string(sel.Origin()),
		Configured:  sel.Configured(),
	}
}

func (s *Server) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects := make([]ProjectInfo, 0, len(endpoints.KnownProjects))
	for _, name := range endpoints.KnownProjects {
		info := ProjectInfo{Name: name, Description: endpoints.ProjectDescriptions[name]}
		for _, env := range endpoints.KnownEnvironments {
			info.Environments = append(info.Environments, environmentInfo(s.Planner.Resolver.Select(name, env)))
		}
		projects = append(projects, info)
	}
	writeJSONResponse(w, http.StatusOK, projects)
}

// resolveHandler answers for any pair; unknown names resolve to an empty,
// unconfigured result.
func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sel := s.Planner.Resolver.Select(vars["project"], vars["environment"])
	writeJSONResponse(w, http.StatusOK, environmentInfo(sel))
}

// findHost maps the "host" parameter to a configured host; "" and "local" mean
// the local checkout.
func (s *Server) findHost(name string) (*config.Host, error) {
	if name == "" || name == "local" {
		return nil, nil
	}
	h, err := s.Config.FindHost(name)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Server) listTestsHandler(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]
	if err := endpoints.ValidateProject(project); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	host, err := s.findHost(r.URL.Query().Get("host"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	catalog := discovery.Catalog{Finder: s.Finder, Root: s.Planner.Root, Host: host}
	tests, err := catalog.Tests(project)
	if err != nil && len(tests) == 0 {
		writeError(w, http.StatusBadGateway, fmt.Errorf("test discovery failed: %w", err))
		return
	}

	resp := TestsResponse{Project: project, Host: "local", Tests: tests}
	if host != nil {
		resp.Host = host.Name
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// HostInfo is a configured test host without its credentials.
type HostInfo struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	User       string `json:"user"`
	RemoteRoot string `json:"remoteRoot,omitempty"`
	Disabled   bool   `json:"disabled"`
}

func (s *Server) listHostsHandler(w http.ResponseWriter, r *http.Request) {
	hosts := make([]HostInfo, 0, len(s.Config.Hosts))
	for _, h := range s.Config.Hosts {
		hosts = append(hosts, HostInfo{
			Name:       h.Name,
			Address:    ssh.Address(h),
			User:       h.User,
			RemoteRoot: h.RemoteRoot,
			Disabled:   h.Disabled,
		})
	}
	writeJSONResponse(w, http.StatusOK, hosts)
}

// statusForPlanError maps preflight failures to HTTP status codes.
func statusForPlanError(err error) int {
	switch {
	case errors.Is(err, wizard.ErrEndpointNotConfigured):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
