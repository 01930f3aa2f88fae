package health

import (
	"context"
	"time"
)

// Report is the aggregate health report, JSON-serializable for a
// dashboard, CLI or alerting consumer.
type Report struct {
	Timestamp         time.Time                `json:"timestamp"`
	TotalServices     int                      `json:"total_services"`
	HealthyServices   int                      `json:"healthy_services"`
	UnhealthyServices []string                 `json:"unhealthy_services"`
	OverallHealthPct  float64                  `json:"overall_health_percentage"`
	Services          map[string]ServiceReport `json:"services"`
	Checks            map[string]CheckReport   `json:"checks,omitempty"`
}

// ServiceReport is the per-service detail of a report.
type ServiceReport struct {
	Status              string  `json:"status"`
	BreakerState        string  `json:"breaker_state"`
	TotalRequests       int64   `json:"total_requests"`
	RejectedCount       int64   `json:"rejected_count"`
	ErrorRate           float64 `json:"error_rate"`
	SuccessRate         float64 `json:"success_rate"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	AvgResponseMs       float64 `json:"avg_response_ms"`
	LastError           string  `json:"last_error,omitempty"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// CheckReport is the per-checker detail of a report.
type CheckReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Report builds the aggregate report from current service metrics and a
// fresh run of every process-level checker.
func (r *Registry) Report(ctx context.Context) Report {
	r.mu.Lock()
	boundaries := r.snapshotBoundariesLocked()
	checkers := r.snapshotCheckersLocked()
	r.mu.Unlock()

	now := r.clock.Now()
	report := Report{
		Timestamp:         now,
		TotalServices:     len(boundaries),
		UnhealthyServices: []string{},
		Services:          make(map[string]ServiceReport, len(boundaries)),
	}

	for name, b := range boundaries {
		m := b.Metrics()
		report.Services[name] = ServiceReport{
			Status:              m.Status.String(),
			BreakerState:        b.BreakerState().String(),
			TotalRequests:       m.TotalRequests,
			RejectedCount:       m.RejectedCount,
			ErrorRate:           m.ErrorRate(),
			SuccessRate:         m.SuccessRate(),
			ConsecutiveFailures: m.ConsecutiveFailures,
			AvgResponseMs:       float64(m.AvgResponseTime.Microseconds()) / 1000,
			LastError:           m.LastError,
			UptimeSeconds:       now.Sub(m.UptimeStartedAt).Seconds(),
		}
		if b.IsHealthy() {
			report.HealthyServices++
		} else {
			report.UnhealthyServices = append(report.UnhealthyServices, name)
		}
	}

	if report.TotalServices == 0 {
		report.OverallHealthPct = 100
	} else {
		report.OverallHealthPct = float64(report.HealthyServices) / float64(report.TotalServices) * 100
	}

	if len(checkers) > 0 {
		report.Checks = make(map[string]CheckReport, len(checkers))
		for name, c := range checkers {
			result := r.runChecker(ctx, c)
			check := CheckReport{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
				Details:  result.Details,
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			report.Checks[name] = check
		}
	}

	return report
}
