package boundary

import "time"

// Status classifies a protected service's health.
type Status int

const (
	// StatusHealthy means the service is operating normally.
	StatusHealthy Status = iota
	// StatusDegraded means the service works but has recent errors.
	StatusDegraded
	// StatusUnhealthy means the service is failing often.
	StatusUnhealthy
	// StatusCritical means the service is effectively down.
	StatusCritical
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Thresholds holds the error-rate and consecutive-failure bands used to
// reclassify a service after each call. The bands are asymmetric: recovery
// after a success is judged more leniently than degradation after a
// failure. They are operator tuning knobs, not invariants.
type Thresholds struct {
	// Bands applied after a success, when consecutive failures are back
	// at zero. Status is the first band the error rate falls under.
	HealthyBelowPct   float64 // default 30
	DegradedBelowPct  float64 // default 50
	UnhealthyBelowPct float64 // default 75

	// Bands applied after a failure.
	CriticalFailures  int     // default 5
	CriticalErrorPct  float64 // default 50
	UnhealthyFailures int     // default 3
	UnhealthyErrorPct float64 // default 25
}

// DefaultThresholds returns the default classification bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HealthyBelowPct:   30,
		DegradedBelowPct:  50,
		UnhealthyBelowPct: 75,
		CriticalFailures:  5,
		CriticalErrorPct:  50,
		UnhealthyFailures: 3,
		UnhealthyErrorPct: 25,
	}
}

func (t Thresholds) afterSuccess(errorRate float64) Status {
	switch {
	case errorRate < t.HealthyBelowPct:
		return StatusHealthy
	case errorRate < t.DegradedBelowPct:
		return StatusDegraded
	case errorRate < t.UnhealthyBelowPct:
		return StatusUnhealthy
	default:
		return StatusCritical
	}
}

func (t Thresholds) afterFailure(consecutive int, errorRate float64) Status {
	switch {
	case consecutive >= t.CriticalFailures || errorRate > t.CriticalErrorPct:
		return StatusCritical
	case consecutive >= t.UnhealthyFailures || errorRate > t.UnhealthyErrorPct:
		return StatusUnhealthy
	case consecutive >= 1 || errorRate > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// HealthMetrics is a read-only snapshot of one service's accounting.
type HealthMetrics struct {
	Service             string
	Status              Status
	ErrorCount          int64
	SuccessCount        int64
	TotalRequests       int64
	RejectedCount       int64
	ConsecutiveFailures int
	AvgResponseTime     time.Duration
	LastError           string
	LastCheckedAt       time.Time
	UptimeStartedAt     time.Time
}

// ErrorRate returns the error percentage, 0 when no requests were made.
func (m HealthMetrics) ErrorRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.ErrorCount) / float64(m.TotalRequests) * 100
}

// SuccessRate returns the success percentage.
func (m HealthMetrics) SuccessRate() float64 {
	return 100 - m.ErrorRate()
}
