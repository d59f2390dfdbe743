package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dutyrobot",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"route", "method", "code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dutyrobot",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dutyrobot",
			Name:      "rate_cache_hits_total",
			Help:      "Total base-rate cache hits",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dutyrobot",
			Name:      "rate_cache_misses_total",
			Help:      "Total base-rate cache misses, stale reads included",
		},
	)

	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dutyrobot",
			Name:      "upstream_calls_total",
			Help:      "Outbound calls by upstream and outcome",
		},
		[]string{"upstream", "outcome"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dutyrobot",
			Name:      "duty_quotes_total",
			Help:      "Duty quotes computed by outcome",
		},
		[]string{"outcome"},
	)

	registerOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestTotal, requestDuration, cacheHits, cacheMisses, upstreamCalls, quotes)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRequest(route, method, code string, d time.Duration) {
	requestTotal.WithLabelValues(route, method, code).Inc()
	requestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func IncCacheHit() {
	cacheHits.Inc()
}

func IncCacheMiss() {
	cacheMisses.Inc()
}

func IncUpstreamCall(upstream, outcome string) {
	upstreamCalls.WithLabelValues(upstream, outcome).Inc()
}

func IncQuote(outcome string) {
	quotes.WithLabelValues(outcome).Inc()
}
