// Package metrics holds the process-wide Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "machus"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// ParticipationEventsTotal counts ledger transitions: join, duplicate, cancel, kick.
	ParticipationEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participation_events_total",
		Help:      "Participation ledger transitions by event.",
	}, []string{"event"})

	PostEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "post_events_total",
		Help:      "Post lifecycle operations by event.",
	}, []string{"event"})

	MailSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_sent_total",
		Help:      "Outgoing account mails by kind and result.",
	}, []string{"kind", "result"})
)

// Participation event labels
const (
	EventJoin      = "join"
	EventDuplicate = "duplicate"
	EventCancel    = "cancel"
	EventKick      = "kick"
)

// Post event labels
const (
	EventCreate = "create"
	EventUpdate = "update"
	EventDelete = "delete"
)
