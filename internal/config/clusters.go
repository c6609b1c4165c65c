package config

import (
	"flinkrest/pkg/flink"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ClusterFile is a set of named clusters, e.g.
//
//	default: local
//	clusters:
//	  local:
//	    host: localhost
//	    port: "8081"
//	  prod:
//	    host: flink.example.com
//	    port: "443"
//	    tokenFile: /run/secrets/flink-token
type ClusterFile struct {
	Default  string                  `yaml:"default"`
	Clusters map[string]*FlinkConfig `yaml:"clusters"`
}

// ReadClusterFile parses a cluster file.
func ReadClusterFile(path string) (*ClusterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster file: %w", err)
	}
	var f ClusterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse cluster file %s: %w", path, err)
	}
	return &f, nil
}

// Names returns the cluster names in sorted order.
func (f *ClusterFile) Names() []string {
	names := make([]string, 0, len(f.Clusters))
	for name := range f.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cluster returns the named cluster with defaults applied and secrets read.
// An empty name selects the file's default, or the only cluster if there is
// just one.
func (f *ClusterFile) Cluster(name string) (*FlinkConfig, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" && len(f.Clusters) == 1 {
		name = f.Names()[0]
	}
	if name == "" {
		return nil, fmt.Errorf("no cluster selected and no default set (have: %v)", f.Names())
	}
	c, ok := f.Clusters[name]
	if !ok || c == nil {
		return nil, fmt.Errorf("cluster %q not found (have: %v)", name, f.Names())
	}

	cfg := *c
	if cfg.Port == "" {
		cfg.Port = flink.DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.readSecrets()
	return &cfg, nil
}

// LoadCluster reads path and returns the named cluster.
func LoadCluster(path, name string) (*FlinkConfig, error) {
	f, err := ReadClusterFile(path)
	if err != nil {
		return nil, err
	}
	return f.Cluster(name)
}
