// Package metrics exposes Prometheus collectors for the cindy service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cindy_poll_cycles_total",
			Help: "Total number of poll cycles, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	sourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cindy_sources_polled_total",
			Help: "Total number of per-source polls, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	eventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cindy_events_published_total",
			Help: "Total number of events published to the social target.",
		},
	)

	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cindy_events_dropped_total",
			Help: "Total number of events dropped, labeled by filter reason.",
		},
		[]string{"reason"},
	)

	redirectsFollowedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cindy_redirects_followed_total",
			Help: "Total number of HTTP redirects followed on behalf of callers.",
		},
	)

	redirectCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cindy_redirect_cache_hits_total",
			Help: "Total number of network hops skipped via the permanent-redirect cache.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle increments the cycle counter for the given outcome.
func ObserveCycle(outcome string) {
	cyclesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSource increments the per-source poll counter.
func ObserveSource(outcome string) {
	sourcesTotal.WithLabelValues(outcome).Inc()
}

// ObserveEventPublished increments the published-events counter.
func ObserveEventPublished() {
	eventsPublishedTotal.Inc()
}

// ObserveEventDropped increments the dropped-events counter for a reason.
func ObserveEventDropped(reason string) {
	eventsDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveRedirectFollowed increments the followed-redirects counter.
func ObserveRedirectFollowed() {
	redirectsFollowedTotal.Inc()
}

// ObserveRedirectCacheHit increments the redirect cache hit counter.
func ObserveRedirectCacheHit() {
	redirectCacheHitsTotal.Inc()
}
