package flink

import (
	"fmt"
	"net"
	"slices"
	"strconv"
)

const (
	// DefaultPort is the REST port of a stock job manager.
	DefaultPort = "8081"
	// DefaultVersion is the only REST API version this client speaks.
	DefaultVersion = "v1"
)

var supportedVersions = []string{DefaultVersion}

// Target describes how to reach one cluster. It is copied into the Client at
// construction time and never changed afterwards.
type Target struct {
	Host string
	Port string // default: 8081

	// Scheme is "http" or "https". When empty it is inferred from Port:
	// 443 means https, anything else http.
	Scheme string

	// Basic auth. Ignored when Token is set.
	Username string
	Password string

	// Token is sent as "Authorization: Bearer <token>".
	Token string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	Version string // default: v1
}

// withDefaults fills in zero values with defaults.
func (t Target) withDefaults() Target {
	if t.Port == "" {
		t.Port = DefaultPort
	}
	if t.Version == "" {
		t.Version = DefaultVersion
	}
	if t.Scheme == "" {
		t.Scheme = inferScheme(t.Port)
	}
	return t
}

// validate checks a defaulted target. Does not modify it.
func (t Target) validate() error {
	if t.Host == "" {
		return validationError("host", "host is required")
	}
	if t.Scheme != "http" && t.Scheme != "https" {
		return validationError("scheme", fmt.Sprintf("scheme must be http or https, got %q", t.Scheme))
	}
	if !slices.Contains(supportedVersions, t.Version) {
		return validationError("version", fmt.Sprintf("Unknown REST API version: %s", t.Version))
	}
	return nil
}

// BaseURL returns the API root, e.g. http://localhost:8081/v1.
func (t Target) BaseURL() string {
	t = t.withDefaults()
	return fmt.Sprintf("%s://%s/%s", t.Scheme, net.JoinHostPort(t.Host, t.Port), t.Version)
}

func inferScheme(port string) string {
	if n, err := strconv.Atoi(port); err == nil && n == 443 {
		return "https"
	}
	return "http"
}
