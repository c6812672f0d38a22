// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package endpoints

import (
	"os"
	"testing"

	"webqa/internal/config"
	"webqa/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func declared() Table {
	return FromConfig(config.Config{Projects: map[string]config.ProjectConfig{
		"bookslot": {Environments: map[string]config.EnvironmentEndpoints{
			"staging": {UIURL: "https://bookslot.staging.example.test", APIURL: "https://api.staging.example.test"},
		}},
		"callcenter": {Environments: map[string]config.EnvironmentEndpoints{
			"production": {UIURL: "https://callcenter.example.test", APIURL: "https://api.callcenter.example.test"},
		}},
		"intranet": {Environments: map[string]config.EnvironmentEndpoints{
			"staging": {UIURL: "https://intranet.example.test"},
		}},
	}})
}

func TestResolve_DeclaredWinsOverFallback(t *testing.T) {
	r := NewResolver(declared(), Fallback())

	got := r.Resolve("bookslot", "staging")
	assert.Equal(t, Endpoints{UIURL: "https://bookslot.staging.example.test", APIURL: "https://api.staging.example.test"}, got)

	got = r.Resolve("callcenter", "production")
	assert.Equal(t, "https://callcenter.example.test", got.UIURL)
	assert.Equal(t, "https://api.callcenter.example.test", got.APIURL)

	sel := r.Select("bookslot", "staging")
	assert.Equal(t, OriginConfig, sel.Origin())
}

func TestResolve_MissingEnvironmentFallsBack(t *testing.T) {
	r := NewResolver(declared(), Fallback())

	sel := r.Select("bookslot", "production")
	assert.Equal(t, OriginFallback, sel.Origin())
	assert.Equal(t, "https://bookslots.centerforvein.com", sel.Endpoints().UIURL)
	assert.True(t, sel.Configured())
}

func TestResolve_FallbackOnly(t *testing.T) {
	r := NewResolver(Table{}, Fallback())

	assert.Equal(t, "https://bookslot-staging.centerforvein.com", r.Resolve("bookslot", "staging").UIURL)
	assert.Equal(t, "https://bookslots.centerforvein.com", r.Resolve("bookslot", "production").UIURL)
}

func TestResolve_NotConfigured(t *testing.T) {
	r := NewResolver(declared(), Fallback())

	tests := []struct {
		project string
		env     string
	}{
		{"nonexistent", "staging"},
		{"patientintake", "staging"},
		{"callcenter", "staging"},
		{"bookslot", "qa"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.project+"/"+tt.env, func(t *testing.T) {
			got := r.Resolve(tt.project, tt.env)
			assert.True(t, got.IsZero())

			sel := r.Select(tt.project, tt.env)
			assert.False(t, sel.Configured())
			assert.Equal(t, OriginNone, sel.Origin())
			assert.Equal(t, tt.project, sel.Project())
			assert.Equal(t, tt.env, sel.Environment())
		})
	}
}

func TestResolve_NilSources(t *testing.T) {
	r := NewResolver(nil, nil)
	assert.True(t, r.Resolve("bookslot", "staging").IsZero())
}

func TestFromConfig_SkipsUnknownProjects(t *testing.T) {
	table := declared()
	_, ok := table["intranet"]
	assert.False(t, ok)
	assert.Equal(t, []string{"staging"}, table.Environments("bookslot"))
	assert.Empty(t, table.Environments("patientintake"))
}

func TestTable_EmptyUIURLIsAbsent(t *testing.T) {
	table := Table{"bookslot": {"staging": {APIURL: "https://api.example.test"}}}
	_, ok := table.Lookup("bookslot", "staging")
	assert.False(t, ok)

	r := NewResolver(table, Fallback())
	assert.Equal(t, "https://bookslot-staging.centerforvein.com", r.Resolve("bookslot", "staging").UIURL)
}

func TestFallbackIsIsolated(t *testing.T) {
	fb := Fallback()
	fb["bookslot"]["staging"] = Endpoints{UIURL: "https://mutated.example.test"}
	assert.Equal(t, "https://bookslot-staging.centerforvein.com", Fallback()["bookslot"]["staging"].UIURL)
}

func TestValidate(t *testing.T) {
	for _, p := range KnownProjects {
		require.NoError(t, ValidateProject(p))
	}
	assert.ErrorContains(t, ValidateProject("nonexistent"), "unknown project 'nonexistent'")

	require.NoError(t, ValidateEnvironment("staging"))
	require.NoError(t, ValidateEnvironment("production"))
	assert.ErrorContains(t, ValidateEnvironment("qa"), "known: staging, production")
}
