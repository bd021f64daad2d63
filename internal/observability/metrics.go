package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "searches_total", Help: "Total taxi searches served"})
	SearchesEmpty  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "searches_no_route_total", Help: "Searches where no route connected pickup and drop-off"})
	SearchLatency  = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "taxi_dispatch", Name: "search_latency_seconds", Help: "FindTaxis latency seconds"})

	ProximitySweeps         = promauto.NewCounter(prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "proximity_sweeps_total", Help: "Total proximity sweep ticks"})
	RidesEvaluated          = promauto.NewCounter(prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "rides_evaluated_total", Help: "Rides evaluated for proximity"})
	NotificationsEmitted    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "notifications_emitted_total", Help: "Notifications recorded and pushed"})
	NotificationsSuppressed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "notifications_suppressed_total", Help: "Notifications suppressed by the debounce window"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "taxi_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taxi_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
