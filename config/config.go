// Package config loads a cluster node's construction configuration from
// a YAML file on disk. This is ambient scaffolding for cmd/qclusterd;
// the SDK itself never requires YAML — cluster.Config can always be
// built directly in code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"qcluster/cluster"
	"qcluster/registry"
)

// PeerSpec is one entry of the peers list in a YAML cluster file.
type PeerSpec struct {
	Host       string         `yaml:"host"`
	Port       int            `yaml:"port"`
	Identifier string         `yaml:"identifier"`
	Metadata   map[string]any `yaml:"metadata,omitempty"`
}

// File is the on-disk shape of a cluster node's configuration.
type File struct {
	Identifier string     `yaml:"identifier"`
	ListenHost string     `yaml:"listen_host"`
	ListenPort int        `yaml:"listen_port"`
	Peers      []PeerSpec `yaml:"peers"`
	MinTimeout float64    `yaml:"min_timeout"`
	MaxTimeout float64    `yaml:"max_timeout"`
}

// Load reads and parses a YAML file at path into a cluster.Config.
// It validates only the fields the SDK itself cannot recover from
// (empty identifier, zero listen port); malformed individual peer
// entries are left for registry.New to log and drop.
func Load(path string) (cluster.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cluster.Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return cluster.Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if f.Identifier == "" {
		return cluster.Config{}, fmt.Errorf("config: %s: identifier must not be empty", path)
	}
	if f.ListenPort <= 0 {
		return cluster.Config{}, fmt.Errorf("config: %s: listen_port must be positive", path)
	}

	descriptors := make([]registry.Descriptor, len(f.Peers))
	for i, p := range f.Peers {
		descriptors[i] = registry.Descriptor{
			Host:       p.Host,
			Port:       p.Port,
			Identifier: p.Identifier,
			Metadata:   p.Metadata,
		}
	}

	return cluster.Config{
		Identifier: f.Identifier,
		ListenHost: f.ListenHost,
		ListenPort: f.ListenPort,
		Peers:      descriptors,
		MinTimeout: f.MinTimeout,
		MaxTimeout: f.MaxTimeout,
	}, nil
}
