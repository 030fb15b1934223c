package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_events_processed_total",
}, []string{"type"})

var eventErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_event_errors_total",
}, []string{"type"})

var eventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "warden_event_duration_seconds",
	Buckets: prometheus.ExponentialBucketsRange(0.0001, 2.0, 12),
}, []string{"type"})

var actionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_executed_total",
}, []string{"action"})

var warningsIssued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_warnings_issued_total",
})

var reviewsQueued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_reviews_queued_total",
})

var spamViolations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_spam_violations_total",
}, []string{"kind"})

var raidsDetected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_raids_detected_total",
})

var newAccountsFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_new_accounts_flagged_total",
}, []string{"tier"})

var advisorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_advisor_calls_total",
}, []string{"status"})

var policyReloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_policy_reloads_total",
}, []string{"status"})
