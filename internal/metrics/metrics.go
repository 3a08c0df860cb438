// Package metrics exposes Prometheus metrics for long-running clipdeck
// commands, chiefly `projects watch`.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
	"clipdeck/internal/logging"
)

// Collector records API traffic and render-watch progress.
type Collector struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	polls          prometheus.Counter
	pollFailures   prometheus.Counter
	projects       *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipdeck_api_requests_total",
			Help: "Remote API requests by operation and HTTP status (0 for transport failures).",
		}, []string{"operation", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clipdeck_api_request_seconds",
			Help:    "Remote API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdeck_poll_total",
			Help: "Project list refetches issued by the render-status poller.",
		}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipdeck_poll_failures_total",
			Help: "Project list refetches that failed and were retried.",
		}),
		projects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clipdeck_projects",
			Help: "Projects in the most recent list, by status.",
		}, []string{"status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipdeck_project_transitions_total",
			Help: "Observed project status changes, by destination status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.polls,
		c.pollFailures,
		c.projects,
		c.transitions,
	)
	return c
}

// ObserveRequest implements api.Recorder.
func (c *Collector) ObserveRequest(operation string, status int, duration time.Duration) {
	c.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	c.requestLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPoll counts a refetch attempt.
func (c *Collector) RecordPoll() {
	c.polls.Inc()
}

// RecordPollFailure counts a failed refetch.
func (c *Collector) RecordPollFailure() {
	c.pollFailures.Inc()
}

// RecordProjects replaces the per-status gauges with counts from projects.
func (c *Collector) RecordProjects(projects []api.Project) {
	counts := map[api.ProjectStatus]int{
		api.StatusDraft:      0,
		api.StatusProcessing: 0,
		api.StatusRendering:  0,
		api.StatusCompleted:  0,
		api.StatusFailed:     0,
	}
	for _, p := range projects {
		counts[p.Status]++
	}
	for status, n := range counts {
		c.projects.WithLabelValues(string(status)).Set(float64(n))
	}
}

// RecordTransition counts a status change into status.
func (c *Collector) RecordTransition(status api.ProjectStatus) {
	c.transitions.WithLabelValues(string(status)).Inc()
}

// Follow keeps the project gauges and transition counter current from bus
// events. The returned func unsubscribes.
func (c *Collector) Follow(bus *events.Bus) func() {
	unrefreshed := bus.Subscribe(events.ProjectsRefreshed, func(ev events.Event) {
		c.RecordProjects(ev.Projects)
	})
	untransitioned := bus.Subscribe(events.ProjectTransitioned, func(ev events.Event) {
		c.RecordTransition(ev.ToStatus)
	})
	return func() {
		unrefreshed()
		untransitioned()
	}
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute returns a mux serving /metrics.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// Serve listens on bind and serves /metrics until ctx is cancelled. The bound
// address is sent on ready once the listener is open.
func Serve(ctx context.Context, bind string, gatherer prometheus.Gatherer, logger *slog.Logger, ready chan<- string) error {
	logger = logging.NewComponentLogger(logger, "metrics")
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           SetupMetricsRoute(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if ready != nil {
		ready <- listener.Addr().String()
	}
	logger.Info("metrics listener started", logging.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
