// Package health provides health check functionality for liveness and readiness probes.
package health

import (
	"context"
	"flinkrest/pkg/flink"
	"fmt"
	"sync"
	"time"
)

// ReadinessChecker is the interface for readiness checks.
// Implemented by the cluster client: ready means the REST API answers.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// CapacityReporter is optionally implemented by a ReadinessChecker to let the
// checker report a cluster without task managers as degraded.
type CapacityReporter interface {
	ClusterSummary(ctx context.Context) (*flink.ClusterOverview, error)
}

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult contains the result of a health check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the health check response.
type Response struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker performs health checks on dependencies.
type Checker struct {
	cluster ReadinessChecker
	timeout time.Duration

	mu           sync.RWMutex
	lastCheck    time.Time
	cachedReady  *Response
	shuttingDown bool
}

// NewChecker creates a new health checker. A zero timeout uses 5s.
func NewChecker(cluster ReadinessChecker, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		cluster: cluster,
		timeout: timeout,
	}
}

// Liveness returns true if the service is alive.
// This should be a lightweight check that doesn't depend on external services.
// Failing this probe should trigger a container restart.
func (c *Checker) Liveness(ctx context.Context) *Response {
	return &Response{
		Status: StatusHealthy,
	}
}

// Readiness checks if the cluster behind the service answers.
// Failing this probe should remove the instance from load balancer rotation.
func (c *Checker) Readiness(ctx context.Context) *Response {
	c.mu.RLock()
	// Return unhealthy immediately if shutting down
	if c.shuttingDown {
		c.mu.RUnlock()
		return &Response{
			Status: StatusUnhealthy,
			Checks: map[string]CheckResult{
				"shutdown": {Status: StatusUnhealthy, Message: "service is shutting down"},
			},
		}
	}

	// Use cached result if recent (avoid hammering the job manager)
	if c.cachedReady != nil && time.Since(c.lastCheck) < time.Second {
		cached := c.cachedReady
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	clusterCheck := c.checkCluster(ctx)
	response := &Response{
		Status: clusterCheck.Status,
		Checks: map[string]CheckResult{"cluster": clusterCheck},
	}

	// Cache the result
	c.mu.Lock()
	c.cachedReady = response
	c.lastCheck = time.Now()
	c.mu.Unlock()

	return response
}

// checkCluster verifies the cluster REST API answers.
func (c *Checker) checkCluster(ctx context.Context) CheckResult {
	if c.cluster == nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "cluster not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reporter, ok := c.cluster.(CapacityReporter)
	if !ok {
		if err := c.cluster.Ready(ctx); err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: err.Error()}
		}
		return CheckResult{Status: StatusHealthy}
	}

	overview, err := reporter.ClusterSummary(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: err.Error()}
	}
	if overview.TaskManagers == 0 {
		return CheckResult{Status: StatusDegraded, Message: "no task managers registered"}
	}
	return CheckResult{
		Status: StatusHealthy,
		Message: fmt.Sprintf("%d task managers, %d/%d slots available",
			overview.TaskManagers, overview.SlotsAvailable, overview.SlotsTotal),
	}
}

// IsHealthy returns true if the overall status is healthy.
func (r *Response) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// IsServing returns true unless the status is unhealthy. A degraded cluster
// still answers reads.
func (r *Response) IsServing() bool {
	return r.Status != StatusUnhealthy
}

// SetShuttingDown marks the service as shutting down.
// This causes readiness checks to return unhealthy, signaling
// load balancers to stop sending new traffic.
func (c *Checker) SetShuttingDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuttingDown = true
	c.cachedReady = nil // Clear cache to ensure immediate effect
}
