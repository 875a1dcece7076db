package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Stops  prometheus.Gauge
	Routes prometheus.Gauge

	ActiveSessions prometheus.Gauge
	SessionsOpened prometheus.Counter

	Suggestions *prometheus.HistogramVec // kind label: route|stop
	Resolutions *prometheus.CounterVec   // input label: route|stop|free, result label: route|stop|none
	Plans       *prometheus.CounterVec   // outcome label, see waypoint.Outcome

	LocationRequests *prometheus.CounterVec // result label: ok|unavailable
	LocationDuration prometheus.Histogram
	StaleDiscards    prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	SuggestLimit prometheus.Gauge
}

func NewCollector(suggestLimit int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Stops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finder_stops",
			Help: "Number of stops in the loaded dataset.",
		}),
		Routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finder_routes",
			Help: "Number of routes in the loaded dataset.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finder_active_sessions",
			Help: "Number of live search sessions.",
		}),
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finder_sessions_opened_total",
			Help: "Total search sessions opened.",
		}),
		Suggestions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finder_suggestions",
			Help:    "Suggestions returned per query, by entity kind.",
			Buckets: prometheus.LinearBuckets(0, 1, 7),
		}, []string{"kind"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finder_resolutions_total",
			Help: "Resolved selection inputs by input kind and resulting selection kind.",
		}, []string{"input", "result"}),
		Plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finder_waypoint_plans_total",
			Help: "Waypoint plans by outcome.",
		}, []string{"outcome"}),
		LocationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finder_location_requests_total",
			Help: "Device location requests by result.",
		}, []string{"result"}),
		LocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finder_location_request_duration_seconds",
			Help:    "Duration of one-shot device location requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finder_stale_location_discards_total",
			Help: "Location results discarded because the selection changed first.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finder_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finder_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finder_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finder_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SuggestLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "finder_suggest_limit",
			Help: "Maximum suggestions kept per entity kind.",
		}),
	}

	reg.MustRegister(
		c.Stops, c.Routes,
		c.ActiveSessions, c.SessionsOpened,
		c.Suggestions, c.Resolutions, c.Plans,
		c.LocationRequests, c.LocationDuration, c.StaleDiscards,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.SuggestLimit,
	)

	c.SuggestLimit.Set(float64(suggestLimit))

	return c
}

// PlanObserve, LocationObserve and StaleDiscardInc satisfy waypoint.Metrics.
func (c *Collector) PlanObserve(outcome string) { c.Plans.WithLabelValues(outcome).Inc() }

func (c *Collector) LocationObserve(d time.Duration, err error) {
	c.LocationDuration.Observe(d.Seconds())
	if err != nil {
		c.LocationRequests.WithLabelValues("unavailable").Inc()
		return
	}
	c.LocationRequests.WithLabelValues("ok").Inc()
}

func (c *Collector) StaleDiscardInc() { c.StaleDiscards.Inc() }

// The methods below satisfy session.Metrics.
func (c *Collector) SuggestionsObserve(routes, stops int) {
	c.Suggestions.WithLabelValues("route").Observe(float64(routes))
	c.Suggestions.WithLabelValues("stop").Observe(float64(stops))
}

func (c *Collector) ResolutionInc(input, result string) {
	c.Resolutions.WithLabelValues(input, result).Inc()
}

func (c *Collector) SessionOpenedInc()       { c.SessionsOpened.Inc() }
func (c *Collector) ActiveSessionsSet(n int) { c.ActiveSessions.Set(float64(n)) }

// Dataset records the size of the loaded dataset.
func (c *Collector) Dataset(stops, routes int) {
	c.Stops.Set(float64(stops))
	c.Routes.Set(float64(routes))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
