package workflow

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the pipeline subsystem.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	StepsTotal   *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	EventsTotal  *prometheus.CounterVec
	QueueDepth   prometheus.GaugeFunc
}

// NewMetrics registers and returns pipeline metrics on the given
// registerer. queueLen feeds the queue depth gauge.
func NewMetrics(reg prometheus.Registerer, queueLen func() int) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_runs_total",
			Help: "Total pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"outcome"}),
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_steps_total",
			Help: "Total pipeline step executions by step and status.",
		}, []string{"step", "status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_step_duration_seconds",
			Help:    "Duration of pipeline steps in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"step"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_events_total",
			Help: "Total inbound events by disposition.",
		}, []string{"disposition"}),
		QueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "remedy_queue_depth",
			Help: "Incidents waiting in the event queue.",
		}, func() float64 { return float64(queueLen()) }),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StepsTotal,
		m.StepDuration,
		m.EventsTotal,
		m.QueueDepth,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnStep: func(step string, duration float64, failed bool) {
			status := "success"
			if failed {
				status = "error"
			}
			m.StepsTotal.WithLabelValues(step, status).Inc()
			m.StepDuration.WithLabelValues(step).Observe(duration)
		},
		OnComplete: func(run *Run) {
			outcome := "complete"
			if run.Degraded() {
				outcome = "degraded"
			}
			m.RunsTotal.WithLabelValues(outcome).Inc()
			m.RunDuration.WithLabelValues(outcome).Observe(run.Duration)
		},
	}
}
