package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the metrics cache is unavailable; searches still work.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	SearchEngine = "search_engine"
	MetricsCache = "metrics_cache"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status  Status
	Backend string
	Checks  map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine  Pinger
	backend string
	cache   Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Service. cache can be nil when the metrics cache is disabled.
func New(engine Pinger, backend string, cache Pinger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, backend: backend, cache: cache, timeout: DefaultTimeout, logger: logger}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{SearchEngine: s.ping(ctx, SearchEngine, s.engine)}
	if s.cache != nil {
		checks[MetricsCache] = s.ping(ctx, MetricsCache, s.cache)
	}

	status := Healthy
	switch {
	case checks[SearchEngine] == CheckError:
		status = Unhealthy
	case checks[MetricsCache] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Backend: s.backend, Checks: checks}
}

func (s *Service) ping(ctx context.Context, name string, p Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
