// Package metrics provides Prometheus metrics for turn handling.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memgate"

var (
	// TurnsTotal counts handled turns by outcome. The outcome label is
	// "success" or the typed error kind.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total conversation turns handled, by outcome",
		},
		[]string{"outcome"},
	)

	// CompletionLatency observes upstream completion request latency.
	CompletionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_seconds",
			Help:      "Latency of upstream chat-completion requests",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ActiveConversations tracks live conversation records in the store.
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of live conversation records",
		},
	)

	// ExpiredConversations counts records removed by the expiry sweep.
	ExpiredConversations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_conversations_total",
			Help:      "Conversation records removed by the expiry sweep",
		},
	)

	// ConfigReloads counts hot-reload attempts by outcome.
	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration hot-reload attempts, by outcome",
		},
		[]string{"outcome"},
	)

	// PromptEntities observes how many entities survive filtering per turn.
	PromptEntities = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_entities",
			Help:      "Entities exposed to the system prompt per turn",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 200},
		},
	)
)
