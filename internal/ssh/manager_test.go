// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ssh

import (
	"os"
	"path/filepath"
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

func TestAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.5:22", Address(config.Host{Hostname: "10.0.0.5"}))
	assert.Equal(t, "grid.example.test:2222", Address(config.Host{Hostname: "grid.example.test", Port: 2222}))
	assert.Equal(t, "[::1]:22", Address(config.Host{Hostname: "::1"}))
}

func TestAuthMethodsFor(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	methods, err := authMethodsFor(config.Host{Name: "grid"})
	require.NoError(t, err)
	assert.Empty(t, methods)

	methods, err = authMethodsFor(config.Host{Name: "grid", Password: "secret"})
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	_, err = authMethodsFor(config.Host{Name: "grid", KeyPath: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "failed to read private key file")

	garbage := filepath.Join(t.TempDir(), "id_garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0600))
	_, err = authMethodsFor(config.Host{Name: "grid", KeyPath: garbage})
	assert.ErrorContains(t, err, "failed to parse private key file")
}

func TestGetClient_NoAuth(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	m := NewManager()
	defer m.CloseAll()

	_, err := m.GetClient(config.Host{Name: "grid", Hostname: "127.0.0.1", User: "qa"})
	assert.ErrorContains(t, err, "no suitable authentication method")
}
