package poller_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"clipdeck/internal/api"
	"clipdeck/internal/poller"
)

func project(id string, status api.ProjectStatus) api.Project {
	return api.Project{ID: id, Name: "Project " + id, Status: status}
}

func TestNeedsPolling(t *testing.T) {
	tests := []struct {
		name     string
		projects []api.Project
		want     bool
	}{
		{name: "empty", projects: nil, want: false},
		{name: "drafts only", projects: []api.Project{project("a", api.StatusDraft)}, want: false},
		{name: "terminal only", projects: []api.Project{project("a", api.StatusCompleted), project("b", api.StatusFailed)}, want: false},
		{name: "rendering", projects: []api.Project{project("a", api.StatusCompleted), project("b", api.StatusRendering)}, want: true},
		{name: "processing", projects: []api.Project{project("a", api.StatusProcessing)}, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := poller.NeedsPolling(tc.projects); got != tc.want {
				t.Fatalf("NeedsPolling = %v, want %v", got, tc.want)
			}
			wantState := poller.Idle
			if tc.want {
				wantState = poller.Active
			}
			if got := poller.StateFor(tc.projects); got != wantState {
				t.Fatalf("StateFor = %v, want %v", got, wantState)
			}
		})
	}
}

type scriptedFetch struct {
	mu       sync.Mutex
	results  [][]api.Project
	errs     []error
	calls    int
	inFlight int
	overlap  bool
}

func (s *scriptedFetch) fetch(context.Context) ([]api.Project, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > 1 {
		s.overlap = true
	}
	idx := s.calls
	s.calls++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return nil, err
	}
	if idx < len(s.results) {
		return s.results[idx], nil
	}
	return s.results[len(s.results)-1], nil
}

func TestRunStopsWhenAllTerminal(t *testing.T) {
	script := &scriptedFetch{results: [][]api.Project{
		{project("a", api.StatusRendering)},
		{project("a", api.StatusCompleted)},
	}}
	var updates [][]api.Project
	p := poller.New(poller.Options{
		Interval: time.Millisecond,
		Fetch:    script.fetch,
		OnUpdate: func(list []api.Project) { updates = append(updates, list) },
	})

	final, err := p.Run(context.Background(), []api.Project{project("a", api.StatusRendering)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.State() != poller.Idle {
		t.Fatalf("expected idle, got %v", p.State())
	}
	if len(updates) != 2 || script.calls != 2 {
		t.Fatalf("expected two refetches, got updates=%d calls=%d", len(updates), script.calls)
	}
	if final[0].Status != api.StatusCompleted {
		t.Fatalf("expected completed final list, got %v", final[0].Status)
	}
	if script.overlap {
		t.Fatal("fetches overlapped")
	}
}

func TestRunIdleListNeverFetches(t *testing.T) {
	script := &scriptedFetch{results: [][]api.Project{{project("a", api.StatusCompleted)}}}
	p := poller.New(poller.Options{Interval: time.Millisecond, Fetch: script.fetch})

	initial := []api.Project{project("a", api.StatusCompleted), project("b", api.StatusDraft)}
	for i := 0; i < 3; i++ {
		if _, err := p.Run(context.Background(), initial); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if script.calls != 0 || p.Fetches() != 0 {
		t.Fatalf("expected no refetches for a settled list, got %d", script.calls)
	}
	if p.State() != poller.Idle {
		t.Fatalf("expected idle, got %v", p.State())
	}
}

func TestRunRetriesNonFatalErrors(t *testing.T) {
	transient := errors.New("connection reset")
	script := &scriptedFetch{
		errs:    []error{transient, nil},
		results: [][]api.Project{nil, {project("a", api.StatusFailed)}},
	}
	var seen []error
	p := poller.New(poller.Options{
		Interval: time.Millisecond,
		Fetch:    script.fetch,
		OnError:  func(err error) { seen = append(seen, err) },
	})

	final, err := p.Run(context.Background(), []api.Project{project("a", api.StatusProcessing)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 1 || !errors.Is(seen[0], transient) {
		t.Fatalf("expected one reported error, got %v", seen)
	}
	if final[0].Status != api.StatusFailed {
		t.Fatalf("expected failed final status, got %v", final[0].Status)
	}
}

func TestRunStopsOnAuthRejection(t *testing.T) {
	rejected := &api.Error{Status: http.StatusUnauthorized, Message: "Not authenticated"}
	script := &scriptedFetch{errs: []error{rejected}, results: [][]api.Project{nil}}
	p := poller.New(poller.Options{Interval: time.Millisecond, Fetch: script.fetch})

	_, err := p.Run(context.Background(), []api.Project{project("a", api.StatusRendering)})
	if !api.IsUnauthorized(err) {
		t.Fatalf("expected auth rejection to end polling, got %v", err)
	}
	if script.calls != 1 {
		t.Fatalf("expected a single fetch, got %d", script.calls)
	}
}

func TestCancellationPreventsScheduledFetch(t *testing.T) {
	script := &scriptedFetch{results: [][]api.Project{{project("a", api.StatusRendering)}}}
	p := poller.New(poller.Options{Interval: time.Hour, Fetch: script.fetch})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, []api.Project{project("a", api.StatusRendering)})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancellation should not be an error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if script.calls != 0 {
		t.Fatalf("expected no fetch after cancellation, got %d", script.calls)
	}
}

func TestStopEndsRun(t *testing.T) {
	script := &scriptedFetch{results: [][]api.Project{{project("a", api.StatusRendering)}}}
	var p *poller.Poller
	updates := 0
	p = poller.New(poller.Options{
		Interval: time.Millisecond,
		Fetch:    script.fetch,
		OnUpdate: func([]api.Project) {
			updates++
			if updates == 2 {
				p.Stop()
			}
		},
	})

	if _, err := p.Run(context.Background(), []api.Project{project("a", api.StatusRendering)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if script.calls != 2 {
		t.Fatalf("expected polling to end right after Stop, got %d fetches", script.calls)
	}
	if p.State() != poller.Idle {
		t.Fatalf("expected idle after stop, got %v", p.State())
	}

	if _, err := p.Run(context.Background(), []api.Project{project("a", api.StatusRendering)}); err != nil {
		t.Fatalf("Run after Stop: %v", err)
	}
	if script.calls != 2 {
		t.Fatal("a stopped poller must not fetch again")
	}
}

func TestTransitions(t *testing.T) {
	prev := []api.Project{project("a", api.StatusRendering), project("b", api.StatusDraft)}
	next := []api.Project{
		project("a", api.StatusCompleted),
		project("b", api.StatusDraft),
		project("c", api.StatusProcessing),
	}
	got := poller.Transitions(prev, next)
	if len(got) != 2 {
		t.Fatalf("expected two transitions, got %+v", got)
	}
	if got[0].Key != "a" || got[0].From != api.StatusRendering || got[0].To != api.StatusCompleted {
		t.Fatalf("unexpected first transition %+v", got[0])
	}
	if got[1].Key != "c" || got[1].From != "" {
		t.Fatalf("unexpected second transition %+v", got[1])
	}
}
