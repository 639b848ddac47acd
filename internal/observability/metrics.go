package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowTransitionsTotal counts committed workflow transitions by action.
	WorkflowTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_workflow_transitions_total",
		Help: "Total number of committed workflow transitions by action",
	}, []string{"action"})

	// WorkflowTransitionErrors counts rejected transitions by error code.
	WorkflowTransitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_workflow_transition_errors_total",
		Help: "Total number of rejected workflow transitions by error code",
	}, []string{"code"})

	// OverdueStages is the gauge of open stages past their deadline, set by
	// the periodic overdue sweep.
	OverdueStages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paperflow_overdue_stages",
		Help: "Number of open workflow stages past their deadline",
	})

	// NotificationPublishErrors counts failed notification publishes by event.
	NotificationPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_notification_publish_errors_total",
		Help: "Total number of failed notification publishes by event type",
	}, []string{"event"})

	// PapersByStatus is the gauge of papers per lifecycle status, refreshed
	// by the overdue sweep.
	PapersByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "paperflow_papers_by_status",
		Help: "Number of concept papers per lifecycle status",
	}, []string{"status"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperflow_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
