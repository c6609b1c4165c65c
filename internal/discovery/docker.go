// Package discovery locates a job manager running in a local Docker container
// and turns its published REST port into a cluster address.
package discovery

import (
	"context"
	"flinkrest/internal/apperrors"
	"flinkrest/internal/config"
	"flinkrest/pkg/flink"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ContainerLister is the part of the Docker API used for discovery.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// Finder resolves container names to cluster addresses.
type Finder struct {
	docker ContainerLister
	closer func() error
	logger *slog.Logger
}

// NewFinder connects to the Docker daemon configured by the environment
// (DOCKER_HOST and friends).
func NewFinder(logger *slog.Logger) (*Finder, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	f := NewFinderWithLister(dockerClient, logger)
	f.closer = dockerClient.Close
	return f, nil
}

// NewFinderWithLister builds a Finder on an existing lister.
func NewFinderWithLister(docker ContainerLister, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{docker: docker, logger: logger.With("component", "discovery")}
}

// Close releases the Docker client.
func (f *Finder) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer()
}

// Endpoint is the host side address of a published REST port.
type Endpoint struct {
	ContainerID string
	Host        string
	Port        string
}

// Resolve finds the running container called name and returns where its
// REST port is published on the host.
func (f *Finder) Resolve(ctx context.Context, name string) (*Endpoint, error) {
	if name == "" {
		return nil, apperrors.Validation("container", "container name is required")
	}

	containers, err := f.docker.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("name", name),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	// The name filter matches substrings, so keep exact matches only.
	for i := range containers {
		c := &containers[i]
		if !hasName(c, name) {
			continue
		}
		host, port, ok := publishedPort(c.Ports, restPort())
		if !ok {
			return nil, apperrors.Validation("container",
				fmt.Sprintf("container %s does not publish port %d", name, restPort()))
		}
		f.logger.Info("Discovered job manager container",
			"container", name,
			"containerId", shortID(c.ID),
			"host", host,
			"port", port,
		)
		return &Endpoint{ContainerID: c.ID, Host: host, Port: port}, nil
	}

	return nil, apperrors.NotFound("container", name)
}

// Apply resolves cfg.DockerContainer and points cfg at the published port.
// A config without a container name is left unchanged.
func (f *Finder) Apply(ctx context.Context, cfg *config.FlinkConfig) error {
	if cfg.DockerContainer == "" {
		return nil
	}
	endpoint, err := f.Resolve(ctx, cfg.DockerContainer)
	if err != nil {
		return err
	}
	cfg.Host = endpoint.Host
	cfg.Port = endpoint.Port
	return nil
}

func restPort() uint16 {
	port, _ := strconv.ParseUint(flink.DefaultPort, 10, 16)
	return uint16(port)
}

func hasName(c *container.Summary, name string) bool {
	for _, n := range c.Names {
		if strings.TrimPrefix(n, "/") == name {
			return true
		}
	}
	return false
}

// publishedPort picks the host binding of a private TCP port. IPv4 bindings
// win over IPv6 ones; wildcard addresses map to localhost.
func publishedPort(ports []container.Port, private uint16) (host, port string, ok bool) {
	var best *container.Port
	for i := range ports {
		p := &ports[i]
		if p.PrivatePort != private || p.PublicPort == 0 || (p.Type != "" && p.Type != "tcp") {
			continue
		}
		if best == nil || (strings.Contains(best.IP, ":") && !strings.Contains(p.IP, ":")) {
			best = p
		}
	}
	if best == nil {
		return "", "", false
	}

	host = best.IP
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return host, strconv.Itoa(int(best.PublicPort)), true
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
