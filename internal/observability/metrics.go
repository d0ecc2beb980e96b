package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InterpretationsTotal counts interpreter outcomes.
	// Labels: source (fast_path, llm, heuristic), result (action_plan, clarification)
	InterpretationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcaa",
		Subsystem: "interpreter",
		Name:      "results_total",
		Help:      "Interpreter results by source and result kind",
	}, []string{"source", "result"})

	// PlansTotal counts execution plans built by the navigator.
	// Labels: snapshot (ax, dom), action
	PlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcaa",
		Subsystem: "navigator",
		Name:      "plans_total",
		Help:      "Execution plans built by snapshot kind and action",
	}, []string{"snapshot", "action"})

	// ClarificationsTotal counts clarification requests by stage and reason.
	ClarificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcaa",
		Subsystem: "pipeline",
		Name:      "clarifications_total",
		Help:      "Clarification requests by stage and reason",
	}, []string{"stage", "reason"})

	// OrphansTotal counts messages dropped because no session matched.
	// Labels: kind (action_plan, result)
	OrphansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcaa",
		Subsystem: "orchestrator",
		Name:      "orphaned_messages_total",
		Help:      "Messages dropped for lack of a live session",
	}, []string{"kind"})

	// SessionsPrunedTotal counts sessions removed by TTL expiry.
	SessionsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vcaa",
		Subsystem: "orchestrator",
		Name:      "sessions_pruned_total",
		Help:      "Sessions removed after their TTL elapsed",
	})

	// LLMLatencySeconds measures provider round trips.
	LLMLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vcaa",
		Subsystem: "llm",
		Name:      "latency_seconds",
		Help:      "Provider round-trip latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider", "purpose"})
)

// RecordInterpretation counts one interpreter result.
func RecordInterpretation(source, result string) {
	InterpretationsTotal.WithLabelValues(source, result).Inc()
}

// RecordPlan counts one execution plan.
func RecordPlan(snapshot, action string) {
	PlansTotal.WithLabelValues(snapshot, action).Inc()
}

// RecordClarification counts one clarification request.
func RecordClarification(stage, reason string) {
	ClarificationsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordOrphan counts one dropped message.
func RecordOrphan(kind string) {
	OrphansTotal.WithLabelValues(kind).Inc()
}

// RecordPruned adds n pruned sessions.
func RecordPruned(n int) {
	if n > 0 {
		SessionsPrunedTotal.Add(float64(n))
	}
}

// ObserveLLM records the latency of one provider call started at start.
func ObserveLLM(provider, purpose string, start time.Time) {
	LLMLatencySeconds.WithLabelValues(provider, purpose).Observe(time.Since(start).Seconds())
}
