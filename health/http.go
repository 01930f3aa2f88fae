package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// This is a simple check that the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes. It
// reports 200 while every registered service is usable (healthy or
// degraded) and 503 otherwise.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unhealthy := reg.UnhealthyServices()

		w.Header().Set("Content-Type", "text/plain")
		if len(unhealthy) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("UNHEALTHY"))
	}
}

// ReportHandler returns an HTTP handler serving the full aggregate
// report as JSON. The status code follows overall health.
func ReportHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		report := reg.Report(ctx)

		w.Header().Set("Content-Type", "application/json")
		if len(report.UnhealthyServices) == 0 {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// ServiceHandler returns an HTTP handler for one registered service.
func ServiceHandler(reg *Registry, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := reg.Service(name)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}

		m := b.Metrics()
		response := ServiceReport{
			Status:              m.Status.String(),
			BreakerState:        b.BreakerState().String(),
			TotalRequests:       m.TotalRequests,
			RejectedCount:       m.RejectedCount,
			ErrorRate:           m.ErrorRate(),
			SuccessRate:         m.SuccessRate(),
			ConsecutiveFailures: m.ConsecutiveFailures,
			AvgResponseMs:       float64(m.AvgResponseTime.Microseconds()) / 1000,
			LastError:           m.LastError,
		}

		w.Header().Set("Content-Type", "application/json")
		if b.IsHealthy() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers registers the probe and report handlers on the mux.
func RegisterHandlers(mux *http.ServeMux, reg *Registry) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(reg))
	mux.HandleFunc("/health", ReportHandler(reg))
}
