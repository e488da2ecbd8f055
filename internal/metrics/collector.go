package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector gathers workflow, step, and communicator metrics. All
// recording methods are nil-safe so components can run without metrics
// in tests.
type Collector struct {
	workflowsCreated  prometheus.Counter
	workflowsFinished *prometheus.CounterVec
	workflowsRejected prometheus.Counter
	activeWorkflows   prometheus.Gauge

	stepDuration *prometheus.HistogramVec
	stepRetries  *prometheus.CounterVec
	stepFailures *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector registered against reg. Pass
// prometheus.DefaultRegisterer in production; tests can hand in a
// private registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.workflowsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflows_created_total",
		Help:      "Total number of workflows created",
	})

	c.workflowsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_finished_total",
			Help:      "Total number of workflows that reached a terminal state",
		},
		[]string{"state"},
	)

	c.workflowsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflows_rejected_total",
		Help:      "Total number of workflow creations rejected by the concurrency gate",
	})

	c.activeWorkflows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workflows_active",
		Help:      "Number of workflows currently in a non-terminal state",
	})

	c.stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Workflow step duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent_type"},
	)

	c.stepRetries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_retries_total",
			Help:      "Total number of step retry attempts",
		},
		[]string{"agent_type"},
	)

	c.stepFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Total number of terminally failed steps",
		},
		[]string{"agent_type"},
	)

	return c
}

// RecordWorkflowCreated increments the created counter and active gauge.
func (c *Collector) RecordWorkflowCreated() {
	if c == nil {
		return
	}
	c.workflowsCreated.Inc()
	c.activeWorkflows.Inc()
}

// RecordWorkflowFinished counts a terminal transition and drops the gauge.
func (c *Collector) RecordWorkflowFinished(state string) {
	if c == nil {
		return
	}
	c.workflowsFinished.WithLabelValues(state).Inc()
	c.activeWorkflows.Dec()
}

// RecordWorkflowRejected counts a gate rejection.
func (c *Collector) RecordWorkflowRejected() {
	if c == nil {
		return
	}
	c.workflowsRejected.Inc()
}

// RecordStepDuration observes one completed step attempt.
func (c *Collector) RecordStepDuration(agentType string, d time.Duration) {
	if c == nil {
		return
	}
	c.stepDuration.WithLabelValues(agentType).Observe(d.Seconds())
}

// RecordStepRetry counts one retry attempt.
func (c *Collector) RecordStepRetry(agentType string) {
	if c == nil {
		return
	}
	c.stepRetries.WithLabelValues(agentType).Inc()
}

// RecordStepFailure counts a terminal step failure.
func (c *Collector) RecordStepFailure(agentType string) {
	if c == nil {
		return
	}
	c.stepFailures.WithLabelValues(agentType).Inc()
}
