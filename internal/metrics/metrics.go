// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_chat_requests_total",
			Help: "Chat requests by outcome",
		},
		[]string{"outcome"},
	)

	StrategySelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_strategy_selections_total",
			Help: "Query strategy decisions by size class",
		},
		[]string{"class"},
	)

	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salary_model_request_duration_seconds",
			Help:    "Duration of model completion calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "outcome"},
	)

	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_dataset_loads_total",
			Help: "Full dataset loads by result",
		},
		[]string{"result"},
	)

	DatasetPagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salary_dataset_pages_fetched_total",
			Help: "Range pages fetched from the store",
		},
	)

	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "salary_dataset_records",
			Help: "Records in the loaded snapshot",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salary_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)
)
