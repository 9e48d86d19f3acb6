package resilience

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message,omitempty"`
	LastCheck time.Time              `json:"lastCheck"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck represents a health check function.
type HealthCheck func(ctx context.Context) ComponentHealth

// HealthMonitor runs registered checks on demand.
type HealthMonitor struct {
	mu         sync.RWMutex
	startTime  time.Time
	components map[string]HealthCheck

	goroutineThreshold int
}

// NewHealthMonitor creates a monitor with the runtime check pre-registered.
func NewHealthMonitor() *HealthMonitor {
	m := &HealthMonitor{
		startTime:          time.Now(),
		components:         make(map[string]HealthCheck),
		goroutineThreshold: 1000,
	}
	m.RegisterComponent("runtime", m.checkRuntime)
	return m
}

// RegisterComponent adds a named check.
func (m *HealthMonitor) RegisterComponent(name string, check HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[name] = check
}

// SystemHealth is the aggregate of every component check.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Uptime     string            `json:"uptime"`
	CheckedAt  time.Time         `json:"checkedAt"`
	Components []ComponentHealth `json:"components"`
}

// Check runs every component check and folds them into one status.
// Any unhealthy component makes the system unhealthy; any degraded one
// makes it degraded.
func (m *HealthMonitor) Check(ctx context.Context) SystemHealth {
	m.mu.RLock()
	names := make([]string, 0, len(m.components))
	for name := range m.components {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(m.components))
	for k, v := range m.components {
		checks[k] = v
	}
	m.mu.RUnlock()
	sort.Strings(names)

	health := SystemHealth{
		Status:    HealthStatusHealthy,
		Uptime:    time.Since(m.startTime).Round(time.Second).String(),
		CheckedAt: time.Now(),
	}
	for _, name := range names {
		ch := checks[name](ctx)
		ch.Name = name
		if ch.LastCheck.IsZero() {
			ch.LastCheck = health.CheckedAt
		}
		health.Components = append(health.Components, ch)

		switch ch.Status {
		case HealthStatusUnhealthy:
			health.Status = HealthStatusUnhealthy
		case HealthStatusDegraded, HealthStatusUnknown:
			if health.Status == HealthStatusHealthy {
				health.Status = HealthStatusDegraded
			}
		}
	}
	return health
}

func (m *HealthMonitor) checkRuntime(ctx context.Context) ComponentHealth {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()

	status := HealthStatusHealthy
	msg := ""
	if goroutines > m.goroutineThreshold {
		status = HealthStatusDegraded
		msg = fmt.Sprintf("%d goroutines exceeds %d", goroutines, m.goroutineThreshold)
	}
	return ComponentHealth{
		Status:  status,
		Message: msg,
		Details: map[string]interface{}{
			"goroutines": goroutines,
			"heap_mb":    mem.HeapAlloc / 1024 / 1024,
		},
	}
}

// BreakerHealthCheck reports an open circuit as degraded: the dashboard
// still serves, but every symbol will carry a fetch warning.
func BreakerHealthCheck(cb *CircuitBreaker) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		stats := cb.Stats()
		status := HealthStatusHealthy
		switch stats.State {
		case CircuitOpen:
			status = HealthStatusDegraded
		case CircuitHalfOpen:
			status = HealthStatusDegraded
		}
		return ComponentHealth{
			Status:  status,
			Message: string(stats.State),
			Details: map[string]interface{}{
				"failures":     stats.TotalFailures,
				"rejected":     stats.TotalRejected,
				"failure_rate": stats.FailureRate(),
			},
		}
	}
}

// FreshnessHealthCheck reports degraded when the last successful refresh is
// older than maxAge, and unknown before the first one.
func FreshnessHealthCheck(last func() time.Time, maxAge time.Duration) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		t := last()
		if t.IsZero() {
			return ComponentHealth{Status: HealthStatusUnknown, Message: "no refresh yet"}
		}
		age := time.Since(t)
		ch := ComponentHealth{
			Status:  HealthStatusHealthy,
			Details: map[string]interface{}{"age": age.Round(time.Second).String()},
		}
		if age > maxAge {
			ch.Status = HealthStatusDegraded
			ch.Message = fmt.Sprintf("last refresh %s ago", age.Round(time.Second))
		}
		return ch
	}
}
