package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"git.home.luguber.info/inful/regsync/internal/cache"
	"git.home.luguber.info/inful/regsync/internal/events"
	"git.home.luguber.info/inful/regsync/internal/registry"
	"git.home.luguber.info/inful/regsync/internal/version"
)

// HealthStatus represents the overall health of the daemon.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthResponse represents the complete health check response.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// PerformHealthChecks executes all health checks and returns the overall status.
func (d *Daemon) PerformHealthChecks(ctx context.Context) *HealthResponse {
	var checks []HealthCheck
	overallStatus := HealthStatusHealthy

	degrade := func(c HealthCheck) {
		checks = append(checks, c)
		switch c.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	degrade(d.checkDaemonHealth())
	degrade(d.checkAgentHealth())
	degrade(d.checkCacheHealth(ctx))
	if pub := d.eventPublisher(); pub != nil {
		degrade(d.checkEventsHealth(pub))
	}

	return &HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Uptime:    time.Since(d.startTime).String(),
		Version:   version.Version,
		Checks:    checks,
	}
}

// checkDaemonHealth verifies the daemon lifecycle state.
func (d *Daemon) checkDaemonHealth() HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Name:        "daemon_status",
		LastChecked: time.Now(),
	}

	switch d.GetStatus() {
	case StatusRunning:
		check.Status = HealthStatusHealthy
		check.Message = "Daemon is running normally"
	case StatusStarting:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is still starting up"
	case StatusStopping:
		check.Status = HealthStatusDegraded
		check.Message = "Daemon is shutting down"
	case StatusError:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is in error state"
	default:
		check.Status = HealthStatusUnhealthy
		check.Message = "Daemon is in unknown state"
	}

	check.Duration = time.Since(start)
	return check
}

// checkAgentHealth reports degraded while the manifest is stale or has never
// been synced. Staleness never makes the daemon unhealthy; operations simply
// stay absent until the next successful check.
func (d *Daemon) checkAgentHealth() HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Name:        "agent",
		LastChecked: time.Now(),
	}

	last := d.Agent().LastSuccess()
	switch {
	case last.IsZero():
		check.Status = HealthStatusDegraded
		check.Message = "Operation manifest has never been synced"
	case time.Since(last) > registry.StalenessThreshold:
		check.Status = HealthStatusDegraded
		check.Message = "Operation manifest is stale"
	default:
		check.Status = HealthStatusHealthy
		check.Message = "Manifest synced recently"
	}

	check.Duration = time.Since(start)
	return check
}

// checkCacheHealth probes the cache with a round-trip under a scratch key.
func (d *Daemon) checkCacheHealth(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Name:        "cache",
		LastChecked: time.Now(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store := d.cacheStore()
	const probeKey = "regsync:healthprobe"
	if err := store.Set(probeCtx, probeKey, "ok"); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = "Cache write failed: " + err.Error()
		check.Duration = time.Since(start)
		return check
	}
	if _, err := store.Get(probeCtx, probeKey); err != nil && !cache.IsNotFound(err) {
		check.Status = HealthStatusUnhealthy
		check.Message = "Cache read failed: " + err.Error()
		check.Duration = time.Since(start)
		return check
	}
	_ = store.Delete(probeCtx, probeKey)

	check.Status = HealthStatusHealthy
	check.Message = "Cache round-trip succeeded"
	check.Duration = time.Since(start)
	return check
}

// checkEventsHealth reports the NATS connection state.
func (d *Daemon) checkEventsHealth(pub *events.Publisher) HealthCheck {
	start := time.Now()
	check := HealthCheck{
		Name:        "events",
		LastChecked: time.Now(),
	}

	if pub.Connected() {
		check.Status = HealthStatusHealthy
		check.Message = "Event publisher connected"
	} else {
		check.Status = HealthStatusDegraded
		check.Message = "Event publisher disconnected"
	}

	check.Duration = time.Since(start)
	return check
}

// handleHealth answers the basic health endpoint: overall status only,
// HTTP 200 while at least degraded, 503 when unhealthy.
func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := d.PerformHealthChecks(r.Context())

	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  resp.Status,
		"uptime":  resp.Uptime,
		"version": resp.Version,
	})
}

// handleHealthDetailed answers the full check list.
func (d *Daemon) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	resp := d.PerformHealthChecks(r.Context())

	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
