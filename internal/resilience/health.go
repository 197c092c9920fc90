package resilience

import (
	"context"
	"fmt"
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
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

// HealthCheck checks one component.
type HealthCheck func(ctx context.Context) ComponentHealth

// SystemHealth is the outcome of one round of checks.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Uptime     time.Duration     `json:"uptime_ns"`
	Components []ComponentHealth `json:"components"`
}

// HealthMonitor runs registered checks on demand.
type HealthMonitor struct {
	mu         sync.RWMutex
	startTime  time.Time
	timeout    time.Duration
	components map[string]HealthCheck
}

// NewHealthMonitor creates a monitor whose checks share one timeout.
func NewHealthMonitor(timeout time.Duration) *HealthMonitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthMonitor{
		startTime:  time.Now(),
		timeout:    timeout,
		components: make(map[string]HealthCheck),
	}
}

// RegisterComponent registers a health check for a component.
func (m *HealthMonitor) RegisterComponent(name string, check HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[name] = check
}

// Check runs all checks concurrently. A panicking check reports its
// component unhealthy. The overall status is the worst component status.
func (m *HealthMonitor) Check(ctx context.Context) SystemHealth {
	m.mu.RLock()
	components := make(map[string]HealthCheck, len(m.components))
	for k, v := range m.components {
		components[k] = v
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan ComponentHealth, len(components))

	for name, check := range components {
		name, check := name, check
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			health := runCheck(ctx, name, check)
			health.Name = name
			health.Latency = time.Since(start)
			results <- health
		}()
	}

	wg.Wait()
	close(results)

	out := SystemHealth{
		Status: HealthStatusHealthy,
		Uptime: time.Since(m.startTime),
	}
	for health := range results {
		out.Components = append(out.Components, health)
		switch health.Status {
		case HealthStatusUnhealthy:
			out.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if out.Status == HealthStatusHealthy {
				out.Status = HealthStatusDegraded
			}
		}
	}
	sort.Slice(out.Components, func(i, j int) bool {
		return out.Components[i].Name < out.Components[j].Name
	})
	return out
}

func runCheck(ctx context.Context, name string, check HealthCheck) (health ComponentHealth) {
	defer func() {
		if r := recover(); r != nil {
			health = ComponentHealth{
				Name:    name,
				Status:  HealthStatusUnhealthy,
				Message: fmt.Sprintf("Panic recovered: %v", r),
			}
		}
	}()
	return check(ctx)
}

// BreakerCheck reports an open circuit as degraded: the scraping service is
// optional for every read path.
func BreakerCheck(cb *CircuitBreaker) HealthCheck {
	return func(context.Context) ComponentHealth {
		stats := cb.Stats()
		health := ComponentHealth{
			Status:  HealthStatusHealthy,
			Message: fmt.Sprintf("circuit %s", stats.State),
		}
		if stats.State != CircuitClosed {
			health.Status = HealthStatusDegraded
		}
		return health
	}
}

// PingCheck reports a component unhealthy when ping fails.
func PingCheck(ping func(context.Context) error) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: HealthStatusUnhealthy, Message: err.Error()}
		}
		return ComponentHealth{Status: HealthStatusHealthy}
	}
}
