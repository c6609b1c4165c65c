// Package config provides configuration loading from environment variables
// and cluster files.
package config

import (
	"flinkrest/pkg/circuitbreaker"
	"flinkrest/pkg/flink"
	"time"
)

// ServiceConfig holds configuration for the monitor service.
type ServiceConfig struct {
	Port              string
	MetricsPort       string
	APIKey            string
	ClusterName       string        // Label of the monitored cluster in metrics
	ShutdownDrainWait time.Duration // Time to wait for load balancer to drain (0 to skip)
	ProbeTimeout      time.Duration // Timeout of the cluster readiness probe

	// ScrapeBreaker stops overview reads on scrape after repeated failures
	ScrapeBreaker circuitbreaker.Config
}

// LoadServiceConfig loads service configuration from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:              GetEnv("PORT", "8080"),
		MetricsPort:       GetEnv("METRICS_PORT", "9090"),
		APIKey:            GetSecretFile(GetEnv("API_KEY_FILE", "")),
		ClusterName:       GetEnv("FLINK_CLUSTER", "default"),
		ShutdownDrainWait: GetDurationEnv("SHUTDOWN_DRAIN_WAIT", 5*time.Second),
		ProbeTimeout:      GetDurationEnv("PROBE_TIMEOUT", 3*time.Second),
		ScrapeBreaker: circuitbreaker.Config{
			Threshold: GetIntEnv("SCRAPE_FAILURE_THRESHOLD", 3),
			Cooldown:  GetDurationEnv("SCRAPE_COOLDOWN", 30*time.Second),
		},
	}
}

// DefaultTimeout bounds one cluster REST call unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// FlinkConfig describes how to reach one cluster.
type FlinkConfig struct {
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Scheme   string        `yaml:"scheme"`
	Username string        `yaml:"username"`
	Password string        `yaml:"-"`
	Token    string        `yaml:"-"`
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`

	// Secrets are read from files, never stored inline.
	PasswordFile string `yaml:"passwordFile"`
	TokenFile    string `yaml:"tokenFile"`

	// DockerContainer, when set, resolves Host and Port from a running
	// container instead.
	DockerContainer string `yaml:"dockerContainer"`
}

// LoadFlinkConfig loads the cluster to talk to. FLINK_CONFIG points at a
// cluster file, with FLINK_CLUSTER picking the entry; otherwise the FLINK_*
// variables describe the cluster directly.
func LoadFlinkConfig() (*FlinkConfig, error) {
	if path := GetEnv("FLINK_CONFIG", ""); path != "" {
		return LoadCluster(path, GetEnv("FLINK_CLUSTER", ""))
	}
	cfg := &FlinkConfig{
		Host:            GetEnv("FLINK_HOST", "localhost"),
		Port:            GetEnv("FLINK_PORT", flink.DefaultPort),
		Scheme:          GetEnv("FLINK_SCHEME", ""),
		Username:        GetEnv("FLINK_USERNAME", ""),
		PasswordFile:    GetEnv("FLINK_PASSWORD_FILE", ""),
		TokenFile:       GetEnv("FLINK_TOKEN_FILE", ""),
		Insecure:        GetBoolEnv("FLINK_INSECURE", false),
		Timeout:         GetDurationEnv("FLINK_TIMEOUT", DefaultTimeout),
		DockerContainer: GetEnv("FLINK_DOCKER_CONTAINER", ""),
	}
	cfg.readSecrets()
	return cfg, nil
}

func (c *FlinkConfig) readSecrets() {
	if c.PasswordFile != "" {
		c.Password = GetSecretFile(c.PasswordFile)
	}
	if c.TokenFile != "" {
		c.Token = GetSecretFile(c.TokenFile)
	}
}

// Target converts the configuration into a client target.
func (c *FlinkConfig) Target() flink.Target {
	return flink.Target{
		Host:               c.Host,
		Port:               c.Port,
		Scheme:             c.Scheme,
		Username:           c.Username,
		Password:           c.Password,
		Token:              c.Token,
		InsecureSkipVerify: c.Insecure,
	}
}
