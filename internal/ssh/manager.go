// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ssh keeps a pool of SSH connections to the remote test hosts that
// run the suite and discover its test modules.
package ssh

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"webqa/internal/config"
	"webqa/internal/logger"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dialTimeout = 10 * time.Second

// Manager handles SSH connections to test hosts, reusing one client per host.
type Manager struct {
	clients map[string]*ssh.Client
	mu      sync.Mutex
}

// NewManager creates and initializes a new SSH connection manager
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*ssh.Client),
	}
}

// Address returns the dial address of host, defaulting to port 22.
func Address(host config.Host) string {
	port := host.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(host.Hostname, fmt.Sprint(port))
}

// GetClient returns an established SSH client for the host, reconnecting when
// the cached connection no longer answers keepalives.
func (m *Manager) GetClient(host config.Host) (*ssh.Client, error) {
	m.mu.Lock()
	client, found := m.clients[host.Name]
	if found {
		_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
		if err == nil {
			m.mu.Unlock()
			return client, nil
		}
		if err := client.Close(); err != nil {
			logger.Warn("Error closing stale SSH client", "host", host.Name, "error", err)
		}
		delete(m.clients, host.Name)
	}
	m.mu.Unlock() // Unlock before potentially long Dial operation

	authMethods, err := authMethodsFor(host)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth methods for %s: %w", host.Name, err)
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no suitable authentication method found for %s (key, agent, or password required)", host.Name)
	}

	sshConfig := &ssh.ClientConfig{
		User:    host.User,
		Auth:    authMethods,
		Timeout: dialTimeout,
	}
	hostKeyCallback, khErr := createHostKeyCallback()
	if khErr != nil {
		logger.Warn("Host key will not be verified", "host", host.Name, "error", khErr)
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		sshConfig.HostKeyCallback = hostKeyCallback
	}

	addr := Address(host)
	newClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh host %s (%s): %w", host.Name, addr, err)
	}
	logger.Debug("SSH connection established", "host", host.Name, "addr", addr)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have connected while we were dialing
	if existing, found := m.clients[host.Name]; found {
		if err := newClient.Close(); err != nil {
			logger.Warn("Error closing redundant SSH client", "host", host.Name, "error", err)
		}
		return existing, nil
	}
	m.clients[host.Name] = newClient
	return newClient, nil
}

// authMethodsFor tries, in order: the configured key, the SSH agent, the
// configured password.
func authMethodsFor(host config.Host) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if host.KeyPath != "" {
		keyPath, resolveErr := config.ResolvePath(host.KeyPath)
		if resolveErr != nil {
			logger.Warn("Could not resolve key path", "path", host.KeyPath, "error", resolveErr)
			keyPath = host.KeyPath
		}

		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", keyPath, err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			if _, ok := err.(*ssh.PassphraseMissingError); !ok {
				return nil, fmt.Errorf("failed to parse private key file %s: %w", keyPath, err)
			}
			logger.Warn("Skipping encrypted private key; use the SSH agent instead", "path", keyPath)
		} else {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if host.Password != "" {
		methods = append(methods, ssh.Password(host.Password))
	}

	return methods, nil
}

// CloseAll closes every pooled connection.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			logger.Warn("Error closing SSH client", "host", name, "error", err)
		}
		delete(m.clients, name)
	}
}

// createHostKeyCallback verifies against ~/.ssh/known_hosts, accepting any
// key when the file does not exist.
func createHostKeyCallback() (ssh.HostKeyCallback, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory for known_hosts: %w", err)
	}
	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("known_hosts file not found, host keys will not be verified", "path", knownHostsPath)
			return ssh.InsecureIgnoreHostKey(), nil
		}
		return nil, fmt.Errorf("failed to load or parse known_hosts file %s: %w", knownHostsPath, err)
	}
	return callback, nil
}
