// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package endpoints resolves a (project, environment) pair to the base URLs of
// the application under test. Resolution consults a primary source, normally
// built from the config file, and then a lower-priority fallback source.
package endpoints

import (
	"fmt"
	"slices"
	"strings"

	"webqa/internal/config"
	"webqa/internal/logger"
)

// Known projects and environments. Selections outside these sets are rejected
// by the CLI before resolution.
var (
	KnownProjects     = []string{"bookslot", "callcenter", "patientintake"}
	KnownEnvironments = []string{"staging", "production"}
)

// ProjectDescriptions are the human labels shown by the prompts.
var ProjectDescriptions = map[string]string{
	"bookslot":      "Appointment booking",
	"callcenter":    "Call-center console",
	"patientintake": "Patient intake",
}

// Endpoints is the endpoint pair for one project environment.
type Endpoints struct {
	UIURL  string
	APIURL string
}

// IsZero reports whether the endpoint set is "not configured".
func (e Endpoints) IsZero() bool {
	return e.UIURL == ""
}

// Origin names the source an endpoint set came from.
type Origin string

const (
	OriginNone     Origin = "none"
	OriginConfig   Origin = "config"
	OriginFallback Origin = "fallback"
)

// Source looks up the endpoints of a project environment.
type Source interface {
	Lookup(project, env string) (Endpoints, bool)
}

// Table is a map-backed Source keyed by project then environment.
type Table map[string]map[string]Endpoints

// Lookup implements Source. Entries with an empty UI URL count as absent;
// config.Validate rejects them in loaded files, so this only affects tables
// built in code.
func (t Table) Lookup(project, env string) (Endpoints, bool) {
	envs, ok := t[project]
	if !ok {
		return Endpoints{}, false
	}
	e, ok := envs[env]
	if !ok || e.IsZero() {
		return Endpoints{}, false
	}
	return e, true
}

// Environments returns the environment names defined for project, sorted.
func (t Table) Environments(project string) []string {
	envs := make([]string, 0, len(t[project]))
	for name := range t[project] {
		envs = append(envs, name)
	}
	slices.Sort(envs)
	return envs
}

// FromConfig builds the primary source from the declarative config. Projects
// outside KnownProjects are skipped with a warning.
func FromConfig(cfg config.Config) Table {
	t := make(Table, len(cfg.Projects))
	for name, project := range cfg.Projects {
		if !slices.Contains(KnownProjects, name) {
			logger.Warn("Ignoring unknown project in configuration", "project", name, "known", KnownProjects)
			continue
		}
		envs := make(map[string]Endpoints, len(project.Environments))
		for envName, e := range project.Environments {
			envs[envName] = Endpoints{UIURL: e.UIURL, APIURL: e.APIURL}
		}
		t[name] = envs
	}
	return t
}

// Fallback returns the hardcoded endpoints used when the config file is
// missing or incomplete. Only bookslot has built-in entries.
func Fallback() Table {
	return Table{
		"bookslot": {
			"staging":    {UIURL: "https://bookslot-staging.centerforvein.com"},
			"production": {UIURL: "https://bookslots.centerforvein.com"},
		},
	}
}

// Resolver combines a primary and a fallback source.
type Resolver struct {
	primary  Source
	fallback Source
}

// NewResolver creates a resolver. Either source may be nil.
func NewResolver(primary, fallback Source) *Resolver {
	return &Resolver{primary: primary, fallback: fallback}
}

// Resolve returns the endpoints for the pair, or the zero value when neither
// source defines it.
func (r *Resolver) Resolve(project, env string) Endpoints {
	e, _ := r.lookup(project, env)
	return e
}

// Select resolves the pair into an immutable selection.
func (r *Resolver) Select(project, env string) ResolvedSelection {
	e, origin := r.lookup(project, env)
	if origin == OriginFallback {
		logger.Info("Using fallback endpoints", "project", project, "environment", env)
	}
	return ResolvedSelection{project: project, env: env, endpoints: e, origin: origin}
}

func (r *Resolver) lookup(project, env string) (Endpoints, Origin) {
	if r.primary != nil {
		if e, ok := r.primary.Lookup(project, env); ok {
			return e, OriginConfig
		}
	}
	if r.fallback != nil {
		if e, ok := r.fallback.Lookup(project, env); ok {
			return e, OriginFallback
		}
	}
	return Endpoints{}, OriginNone
}

// ResolvedSelection is the runtime choice of project and environment together
// with the endpoints resolved for it.
type ResolvedSelection struct {
	project   string
	env       string
	endpoints Endpoints
	origin    Origin
}

func (s ResolvedSelection) Project() string      { return s.project }
func (s ResolvedSelection) Environment() string  { return s.env }
func (s ResolvedSelection) Endpoints() Endpoints { return s.endpoints }
func (s ResolvedSelection) Origin() Origin       { return s.origin }

// Configured reports whether the selection has a usable UI URL.
func (s ResolvedSelection) Configured() bool {
	return !s.endpoints.IsZero()
}

// ValidateProject rejects project names outside KnownProjects.
func ValidateProject(name string) error {
	if slices.Contains(KnownProjects, name) {
		return nil
	}
	return fmt.Errorf("unknown project '%s' (known: %s)", name, strings.Join(KnownProjects, ", "))
}

// ValidateEnvironment rejects environment names outside KnownEnvironments.
func ValidateEnvironment(name string) error {
	if slices.Contains(KnownEnvironments, name) {
		return nil
	}
	return fmt.Errorf("unknown environment '%s' (known: %s)", name, strings.Join(KnownEnvironments, ", "))
}
