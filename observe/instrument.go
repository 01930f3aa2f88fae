package observe

import "context"

// Instrumentation bundles the telemetry surfaces a guarded component needs.
// Zero-value fields are tolerated; use FromObserver or NewNoopInstrumentation
// to get a fully populated bundle.
type Instrumentation struct {
	Tracer  *Tracer
	Metrics *CallMetrics
	Logger  Logger
}

// FromObserver builds an Instrumentation bundle from an Observer.
func FromObserver(obs Observer) (*Instrumentation, error) {
	metrics, err := NewCallMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return &Instrumentation{
		Tracer:  NewTracer(obs.Tracer()),
		Metrics: metrics,
		Logger:  obs.Logger(),
	}, nil
}

// NewNoopInstrumentation returns a bundle that records nothing.
func NewNoopInstrumentation() *Instrumentation {
	obs, _ := NewObserver(context.Background(), Config{ServiceName: "noop"})
	inst, _ := FromObserver(obs)
	return inst
}
