package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadFlinkConfig_FromEnv(t *testing.T) {
	token := writeFile(t, "token", "tok-123\n")
	t.Setenv("FLINK_CONFIG", "")
	t.Setenv("FLINK_HOST", "jobmanager")
	t.Setenv("FLINK_PORT", "443")
	t.Setenv("FLINK_TOKEN_FILE", token)
	t.Setenv("FLINK_INSECURE", "true")
	t.Setenv("FLINK_TIMEOUT", "10s")

	cfg, err := LoadFlinkConfig()
	if err != nil {
		t.Fatalf("LoadFlinkConfig() error = %v", err)
	}
	if cfg.Host != "jobmanager" || cfg.Port != "443" || cfg.Token != "tok-123" || !cfg.Insecure {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", cfg.Timeout)
	}

	target := cfg.Target()
	if target.BaseURL() != "https://jobmanager:443/v1" {
		t.Errorf("Unexpected base URL %s", target.BaseURL())
	}
	if !target.InsecureSkipVerify {
		t.Error("Expected InsecureSkipVerify")
	}
}

func TestLoadFlinkConfig_Defaults(t *testing.T) {
	for _, key := range []string{"FLINK_CONFIG", "FLINK_HOST", "FLINK_PORT", "FLINK_SCHEME", "FLINK_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFlinkConfig()
	if err != nil {
		t.Fatalf("LoadFlinkConfig() error = %v", err)
	}
	if cfg.Target().BaseURL() != "http://localhost:8081/v1" {
		t.Errorf("Unexpected base URL %s", cfg.Target().BaseURL())
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", cfg.Timeout)
	}
}

const clusterYAML = `
default: local
clusters:
  local:
    host: localhost
  prod:
    host: flink.example.com
    port: "443"
    username: admin
    passwordFile: %s
    timeout: 45s
`

func TestLoadCluster(t *testing.T) {
	t.Parallel()
	password := writeFile(t, "pw", "hunter2")
	path := writeFile(t, "clusters.yaml", strings.Replace(clusterYAML, "%s", password, 1))

	local, err := LoadCluster(path, "")
	if err != nil {
		t.Fatalf("LoadCluster(default) error = %v", err)
	}
	if local.Host != "localhost" || local.Port != "8081" {
		t.Errorf("Unexpected default cluster %+v", local)
	}
	if local.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, local.Timeout)
	}

	prod, err := LoadCluster(path, "prod")
	if err != nil {
		t.Fatalf("LoadCluster(prod) error = %v", err)
	}
	want := &FlinkConfig{
		Host:         "flink.example.com",
		Port:         "443",
		Username:     "admin",
		Password:     "hunter2",
		PasswordFile: password,
		Timeout:      45 * time.Second,
	}
	if diff := cmp.Diff(want, prod); diff != "" {
		t.Errorf("LoadCluster(prod) mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCluster_Errors(t *testing.T) {
	t.Parallel()

	noDefault := writeFile(t, "two.yaml", "clusters:\n  a:\n    host: a\n  b:\n    host: b\n")
	single := writeFile(t, "one.yaml", "clusters:\n  only:\n    host: only\n")
	broken := writeFile(t, "broken.yaml", "clusters: [unterminated")

	if _, err := LoadCluster(noDefault, ""); err == nil {
		t.Error("Expected error when no cluster is selected")
	}
	if _, err := LoadCluster(noDefault, "c"); err == nil {
		t.Error("Expected error for unknown cluster")
	}
	if cfg, err := LoadCluster(single, ""); err != nil || cfg.Host != "only" {
		t.Errorf("Expected the single cluster, got %+v, %v", cfg, err)
	}
	if _, err := LoadCluster(broken, ""); err == nil {
		t.Error("Expected parse error")
	}
	if _, err := LoadCluster(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Error("Expected read error")
	}
}

func TestLoadFlinkConfig_FromFile(t *testing.T) {
	path := writeFile(t, "clusters.yaml", "clusters:\n  a:\n    host: a\n  b:\n    host: b\n    scheme: https\n")
	t.Setenv("FLINK_CONFIG", path)
	t.Setenv("FLINK_CLUSTER", "b")

	cfg, err := LoadFlinkConfig()
	if err != nil {
		t.Fatalf("LoadFlinkConfig() error = %v", err)
	}
	if cfg.Target().BaseURL() != "https://b:8081/v1" {
		t.Errorf("Unexpected base URL %s", cfg.Target().BaseURL())
	}
}

func TestLoadServiceConfig(t *testing.T) {
	t.Setenv("FLINK_CLUSTER", "prod")
	t.Setenv("PROBE_TIMEOUT", "")
	t.Setenv("SCRAPE_FAILURE_THRESHOLD", "5")
	t.Setenv("SCRAPE_COOLDOWN", "1m")

	cfg := LoadServiceConfig()
	if cfg.ClusterName != "prod" {
		t.Errorf("Expected cluster prod, got %q", cfg.ClusterName)
	}
	if cfg.ProbeTimeout != 3*time.Second {
		t.Errorf("Expected probe timeout 3s, got %v", cfg.ProbeTimeout)
	}
	if cfg.ScrapeBreaker.Threshold != 5 || cfg.ScrapeBreaker.Cooldown != time.Minute {
		t.Errorf("Unexpected scrape breaker config %+v", cfg.ScrapeBreaker)
	}

	t.Setenv("SCRAPE_FAILURE_THRESHOLD", "many")
	if got := LoadServiceConfig().ScrapeBreaker.Threshold; got != 3 {
		t.Errorf("Expected default threshold 3 for an invalid value, got %d", got)
	}
}
