package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

// BuildInfo is the release metadata reported by /healthz and /readyz.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// HealthChecker is an in-process component that reports its own state, such
// as the order sweeper.
type HealthChecker interface {
	HealthCheck(now time.Time) domain.SystemHealthCheck
}

type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	// Components are merged into the report next to the dependency probes.
	Components map[string]HealthChecker
	Clock      func() time.Time
	Build      BuildInfo
}

type systemService struct {
	health     repositories.HealthRepository
	components map[string]HealthChecker
	clock      func() time.Time
	build      BuildInfo
}

var _ SystemService = (*systemService)(nil)

func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	build.Version = strings.TrimSpace(build.Version)
	build.CommitSHA = strings.TrimSpace(build.CommitSHA)
	build.Environment = strings.TrimSpace(build.Environment)
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	return &systemService{
		health:     deps.HealthRepository,
		components: deps.Components,
		clock:      func() time.Time { return clock().UTC() },
		build:      build,
	}, nil
}

// HealthReport collects dependency probes, adds component checks and fills
// build metadata the repository left blank. The overall status is the worst
// check unless the repository already decided it.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.clock()
	if report.Checks == nil {
		report.Checks = make(map[string]domain.SystemHealthCheck, len(s.components))
	}
	for name, component := range s.components {
		if component != nil {
			report.Checks[name] = component.HealthCheck(now)
		}
	}

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	if report.Version == "" {
		report.Version = s.build.Version
	}
	if report.CommitSHA == "" {
		report.CommitSHA = s.build.CommitSHA
	}
	if report.Environment == "" {
		report.Environment = s.build.Environment
	}
	if report.Uptime <= 0 {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if report.Status == "" {
		report.Status = worstStatus(report.Checks)
	}
	return report, nil
}

func worstStatus(checks map[string]domain.SystemHealthCheck) domain.HealthStatus {
	status := domain.HealthStatusOK
	for _, check := range checks {
		if check.Status == domain.HealthStatusError {
			return domain.HealthStatusError
		}
		if check.Status == domain.HealthStatusDegraded {
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
