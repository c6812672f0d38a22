// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// PotentialHost is an entry from ~/.ssh/config that could become a test host.
type PotentialHost struct {
	Alias    string
	Hostname string
	User     string
	Port     int
	KeyPath  string
}

func DefaultSSHConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ssh", "config"), nil
}

// ParseSSHConfigFile reads potential hosts from an ssh_config file. A missing
// file yields no hosts.
func ParseSSHConfigFile(path string) ([]PotentialHost, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []PotentialHost{}, nil
		}
		return nil, fmt.Errorf("failed to open ssh config file %s: %w", path, err)
	}
	defer f.Close()

	hosts, err := ParseSSHConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh config file %s: %w", path, err)
	}
	return hosts, nil
}

// ParseSSHConfig decodes ssh_config content. Wildcard blocks and entries
// without a user are skipped.
func ParseSSHConfig(r io.Reader) ([]PotentialHost, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return nil, err
	}

	var potentialHosts []PotentialHost

	for _, host := range cfg.Hosts {
		if len(host.Patterns) == 0 {
			continue
		}
		alias := host.Patterns[0].String()
		if strings.ContainsAny(alias, "*?!") {
			continue
		}

		hostname, _ := cfg.Get(alias, "HostName")
		user, _ := cfg.Get(alias, "User")
		portStr, _ := cfg.Get(alias, "Port")
		keyPath, _ := cfg.Get(alias, "IdentityFile")

		if hostname == "" {
			hostname = alias
		}

		port := 22
		if portStr != "" {
			if p, err := strconv.Atoi(portStr); err == nil {
				port = p
			}
		}

		if resolved, err := ResolvePath(keyPath); err == nil {
			keyPath = resolved
		}

		if user != "" {
			potentialHosts = append(potentialHosts, PotentialHost{
				Alias:    alias,
				Hostname: hostname,
				User:     user,
				Port:     port,
				KeyPath:  keyPath,
			})
		}
	}

	return potentialHosts, nil
}

// ConvertToHost turns an ssh_config entry into a test host definition.
func ConvertToHost(p PotentialHost, uniqueName, remoteRoot string) (Host, error) {
	if p.Hostname == "" || p.User == "" {
		return Host{}, fmt.Errorf("cannot convert potential host '%s' with missing hostname or user", p.Alias)
	}
	if uniqueName == "" {
		uniqueName = p.Alias
	}

	return Host{
		Name:       uniqueName,
		Hostname:   p.Hostname,
		User:       p.User,
		Port:       p.Port,
		KeyPath:    p.KeyPath,
		RemoteRoot: remoteRoot,
	}, nil
}

// ImportHosts appends the potential hosts whose alias is not already a host
// name. It returns the number imported and skipped.
func (c *Config) ImportHosts(potential []PotentialHost, remoteRoot string) (int, int) {
	existing := make(map[string]bool, len(c.Hosts))
	for _, h := range c.Hosts {
		existing[h.Name] = true
	}

	imported, skipped := 0, 0
	for _, p := range potential {
		if existing[p.Alias] {
			skipped++
			continue
		}
		h, err := ConvertToHost(p, p.Alias, remoteRoot)
		if err != nil {
			skipped++
			continue
		}
		c.Hosts = append(c.Hosts, h)
		existing[h.Name] = true
		imported++
	}
	return imported, skipped
}
