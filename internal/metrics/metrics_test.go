package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
	"clipdeck/internal/logging"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metricLoop
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest("projects.list", 200, 20*time.Millisecond)
	c.ObserveRequest("projects.list", 200, 30*time.Millisecond)
	c.ObserveRequest("projects.list", 401, time.Millisecond)

	if v := gatherValue(t, reg, "clipdeck_api_requests_total", map[string]string{"operation": "projects.list", "status": "200"}); v != 2 {
		t.Errorf("requests_total{200} = %v, want 2", v)
	}
	if v := gatherValue(t, reg, "clipdeck_api_requests_total", map[string]string{"status": "401"}); v != 1 {
		t.Errorf("requests_total{401} = %v, want 1", v)
	}
	if v := gatherValue(t, reg, "clipdeck_api_request_seconds", map[string]string{"operation": "projects.list"}); v != 3 {
		t.Errorf("latency sample count = %v, want 3", v)
	}
}

func TestRecordProjectsResetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProjects([]api.Project{{Status: api.StatusRendering}, {Status: api.StatusRendering}, {Status: api.StatusDraft}})
	if v := gatherValue(t, reg, "clipdeck_projects", map[string]string{"status": "rendering"}); v != 2 {
		t.Errorf("rendering gauge = %v, want 2", v)
	}

	c.RecordProjects([]api.Project{{Status: api.StatusCompleted}})
	if v := gatherValue(t, reg, "clipdeck_projects", map[string]string{"status": "rendering"}); v != 0 {
		t.Errorf("rendering gauge after settle = %v, want 0", v)
	}
	if v := gatherValue(t, reg, "clipdeck_projects", map[string]string{"status": "completed"}); v != 1 {
		t.Errorf("completed gauge = %v, want 1", v)
	}
}

func TestPollAndTransitionCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPoll()
	c.RecordPoll()
	c.RecordPollFailure()
	c.RecordTransition(api.StatusFailed)

	if v := gatherValue(t, reg, "clipdeck_poll_total", nil); v != 2 {
		t.Errorf("poll_total = %v, want 2", v)
	}
	if v := gatherValue(t, reg, "clipdeck_poll_failures_total", nil); v != 1 {
		t.Errorf("poll_failures_total = %v, want 1", v)
	}
	if v := gatherValue(t, reg, "clipdeck_project_transitions_total", map[string]string{"status": "failed"}); v != 1 {
		t.Errorf("transitions{failed} = %v, want 1", v)
	}
}

func TestFollowRecordsBusEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	bus := events.NewBus()
	unfollow := c.Follow(bus)

	bus.Publish(events.Event{Kind: events.ProjectsRefreshed, Projects: []api.Project{{Status: api.StatusRendering}}})
	bus.Publish(events.Event{Kind: events.ProjectTransitioned, FromStatus: api.StatusRendering, ToStatus: api.StatusCompleted})
	if v := gatherValue(t, reg, "clipdeck_projects", map[string]string{"status": "rendering"}); v != 1 {
		t.Errorf("rendering gauge = %v, want 1", v)
	}
	if v := gatherValue(t, reg, "clipdeck_project_transitions_total", map[string]string{"status": "completed"}); v != 1 {
		t.Errorf("transitions{completed} = %v, want 1", v)
	}

	unfollow()
	bus.Publish(events.Event{Kind: events.ProjectTransitioned, ToStatus: api.StatusCompleted})
	if v := gatherValue(t, reg, "clipdeck_project_transitions_total", map[string]string{"status": "completed"}); v != 1 {
		t.Errorf("transitions{completed} after unfollow = %v, want 1", v)
	}
}

func TestSetupMetricsRouteServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordPoll()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	SetupMetricsRoute(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "clipdeck_poll_total") {
		t.Error("response should contain clipdeck_poll_total metric")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", reg, logging.NewNop(), ready)
	}()

	addr := <-ready
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
