package projects_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
	"clipdeck/internal/notifications"
	"clipdeck/internal/poller"
	"clipdeck/internal/prefs"
	"clipdeck/internal/projects"
	"clipdeck/internal/services"
	"clipdeck/internal/session"
	"clipdeck/internal/testsupport"
)

func introTemplate() api.Template {
	return api.Template{
		TemplateID: "intro",
		Name:       "Neon Intro",
		Category:   "Openers",
		ParametersSchema: map[string]api.ParameterSpec{
			"color":    {Type: api.ParamColor, Required: true},
			"title":    {Type: api.ParamText, Required: true, MaxLength: 10, Default: "Hello"},
			"subtitle": {Type: api.ParamText},
		},
	}
}

type fixture struct {
	fake *testsupport.FakeService
	sess *session.Store
	svc  *projects.Service
	bus  *events.Bus
}

func setup(t *testing.T) fixture {
	t.Helper()
	fake := testsupport.NewFakeService(t)
	fake.AddUser("ada", "secret")
	fake.AddTemplate(introTemplate())
	client := fake.Client()
	sess := session.New(client, prefs.NewMemoryStore(), nil)
	if err := sess.Login(context.Background(), api.Credentials{Username: "ada", Password: "secret"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	bus := events.NewBus()
	return fixture{fake: fake, sess: sess, svc: projects.NewService(client, sess, bus, nil), bus: bus}
}

func TestValidateRequiredBeforeNetwork(t *testing.T) {
	f := setup(t)
	tpl := &api.Template{
		TemplateID:       "intro",
		Name:             "Neon Intro",
		ParametersSchema: map[string]api.ParameterSpec{"color": {Type: "color", Required: true}},
	}

	_, err := f.svc.CreateFromTemplate(context.Background(), tpl, projects.Draft{Parameters: map[string]any{}})
	var vErr *projects.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fields := vErr.Fields(); len(fields) != 1 || fields[0] != "color" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected validation marker")
	}
	if err.Error() != "color is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if calls := f.fake.Calls("POST /projects/"); calls != 0 {
		t.Fatalf("expected no create request, got %d", calls)
	}
}

func TestValidateTable(t *testing.T) {
	schema := introTemplate().ParametersSchema
	tests := []struct {
		name   string
		params map[string]any
		fields []string
	}{
		{name: "valid", params: map[string]any{"color": "#ff0000", "title": "Hi"}},
		{name: "blank string", params: map[string]any{"color": "  ", "title": "Hi"}, fields: []string{"color"}},
		{name: "too long", params: map[string]any{"color": "#fff", "title": "This title is too long"}, fields: []string{"title"}},
		{name: "missing both", params: map[string]any{}, fields: []string{"color", "title"}},
		{name: "non-string value", params: map[string]any{"color": 3, "title": "ok"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := projects.Validate(schema, tc.params)
			if len(tc.fields) == 0 {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var vErr *projects.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			got := vErr.Fields()
			if len(got) != len(tc.fields) {
				t.Fatalf("got fields %v want %v", got, tc.fields)
			}
			for i := range got {
				if got[i] != tc.fields[i] {
					t.Fatalf("got fields %v want %v", got, tc.fields)
				}
			}
		})
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := setup(t)
	resp, err := f.svc.Create(context.Background(), projects.Draft{
		TemplateID: "intro",
		Parameters: map[string]any{"color": "#00ff00"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	project, ok := f.fake.Project(resp.Key())
	if !ok {
		t.Fatal("expected project to exist")
	}
	if project.Name != "Neon Intro Project" {
		t.Fatalf("unexpected default name %q", project.Name)
	}
	if project.RenderQuality != api.Quality1080p {
		t.Fatalf("unexpected default quality %q", project.RenderQuality)
	}
	if project.Parameters["title"] != "Hello" {
		t.Fatalf("expected schema default for title, got %v", project.Parameters["title"])
	}
	if project.Status != api.StatusDraft {
		t.Fatalf("expected draft status, got %q", project.Status)
	}
	if calls := f.fake.Calls("POST /projects/"); calls != 1 {
		t.Fatalf("expected one create request, got %d", calls)
	}
}

func TestCreateRejectsUnknownQuality(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), projects.Draft{
		TemplateID: "intro",
		Quality:    "8k",
		Parameters: map[string]any{"color": "#00ff00"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.fake.Calls("POST /projects/") != 0 {
		t.Fatal("expected no create request")
	}
}

func TestCreateUnknownTemplateIsNotFound(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), projects.Draft{TemplateID: "missing"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRenderGetDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.fake.AddProject(api.Project{Name: "Promo", Status: api.StatusDraft})

	resp, err := f.svc.Render(ctx, p.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if resp.Status != api.StatusRendering {
		t.Fatalf("expected rendering, got %q", resp.Status)
	}
	got, err := f.svc.Get(ctx, p.ID)
	if err != nil || got.Status != api.StatusRendering {
		t.Fatalf("Get: %+v %v", got, err)
	}
	if _, err := f.svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, p.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

type capturedNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (c *capturedNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type countingTelemetry struct {
	polls, failures int
}

func (c *countingTelemetry) RecordPoll()        { c.polls++ }
func (c *countingTelemetry) RecordPollFailure() { c.failures++ }

func TestWatchFollowsRenderToCompletion(t *testing.T) {
	f := setup(t)
	f.fake.CompleteAfterPolls = 2
	rendering := f.fake.AddProject(api.Project{Name: "Promo", Status: api.StatusRendering})
	f.fake.AddProject(api.Project{Name: "Old", Status: api.StatusCompleted})

	notifier := &capturedNotifier{}
	telemetry := &countingTelemetry{}
	var updates int
	var refreshed int
	f.bus.Subscribe(events.ProjectsRefreshed, func(events.Event) { refreshed++ })
	var transitions []events.Event
	f.bus.Subscribe(events.ProjectTransitioned, func(ev events.Event) { transitions = append(transitions, ev) })

	result, err := f.svc.Watch(context.Background(), projects.WatchOptions{
		Interval:  time.Millisecond,
		Notifier:  notifier,
		Telemetry: telemetry,
		OnUpdate:  func([]api.Project, []poller.Transition) { updates++ },
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if result.Completed != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if poller.NeedsPolling(result.Projects) {
		t.Fatal("expected settled list")
	}
	if updates != refreshed || updates < 2 {
		t.Fatalf("expected matching update and refresh counts, got %d and %d", updates, refreshed)
	}
	if len(transitions) != 1 || transitions[0].FromStatus != api.StatusRendering || transitions[0].ToStatus != api.StatusCompleted {
		t.Fatalf("unexpected transitions %+v", transitions)
	}
	if transitions[0].Project == nil || transitions[0].Project.Key() != rendering.Key() {
		t.Fatalf("expected transitioned project %q, got %+v", rendering.Key(), transitions[0].Project)
	}
	if len(notifier.events) != 2 || notifier.events[0] != notifications.EventRenderCompleted || notifier.events[1] != notifications.EventWatchSettled {
		t.Fatalf("unexpected notifications %v", notifier.events)
	}
	final, _ := f.fake.Project(rendering.ID)
	if final.Status != api.StatusCompleted {
		t.Fatalf("expected project completed, got %q", final.Status)
	}
}

func TestWatchSingleProjectAndFailures(t *testing.T) {
	f := setup(t)
	f.fake.CompleteAfterPolls = 2
	f.fake.FailRenders = true
	target := f.fake.AddProject(api.Project{Name: "Target", Status: api.StatusProcessing})
	f.fake.AddProject(api.Project{Name: "Other", Status: api.StatusDraft})

	telemetry := &countingTelemetry{}
	result, err := f.svc.Watch(context.Background(), projects.WatchOptions{
		Interval:  time.Millisecond,
		ProjectID: target.ID,
		Telemetry: telemetry,
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(result.Projects) != 1 || result.Projects[0].Status != api.StatusFailed {
		t.Fatalf("unexpected result projects %+v", result.Projects)
	}
	if result.Failed != 1 {
		t.Fatalf("expected one failure, got %+v", result)
	}
}

func TestWatchRetriesTransientFailures(t *testing.T) {
	f := setup(t)
	f.fake.CompleteAfterPolls = 2
	f.fake.AddProject(api.Project{Name: "Promo", Status: api.StatusRendering})

	telemetry := &countingTelemetry{}
	var once sync.Once
	_, err := f.svc.Watch(context.Background(), projects.WatchOptions{
		Interval:  time.Millisecond,
		Telemetry: telemetry,
		OnUpdate: func([]api.Project, []poller.Transition) {
			once.Do(func() { f.fake.FailNext("GET /projects/", http.StatusServiceUnavailable, "busy") })
		},
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if telemetry.failures != 1 {
		t.Fatalf("expected one retried failure, got %d", telemetry.failures)
	}
	if telemetry.polls != 2 {
		t.Fatalf("expected two polls, got %d", telemetry.polls)
	}
}

func TestWatchInvalidatesSessionOnRejection(t *testing.T) {
	f := setup(t)
	f.fake.AddProject(api.Project{Name: "Promo", Status: api.StatusRendering})

	_, err := f.svc.Watch(context.Background(), projects.WatchOptions{
		Interval: time.Millisecond,
		OnUpdate: func([]api.Project, []poller.Transition) { f.fake.RevokeTokens() },
	})
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, ok := f.sess.Credential(); ok {
		t.Fatal("expected session to be cleared")
	}
}

func TestWatchStartsFromCallerList(t *testing.T) {
	f := setup(t)
	f.fake.CompleteAfterPolls = 1
	promo := f.fake.AddProject(api.Project{Name: "Promo", Status: api.StatusRendering})

	telemetry := &countingTelemetry{}
	result, err := f.svc.Watch(context.Background(), projects.WatchOptions{
		Interval:  time.Millisecond,
		Initial:   []api.Project{promo},
		Telemetry: telemetry,
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if result.Completed != 1 || telemetry.polls != 1 {
		t.Fatalf("unexpected result %+v after %d polls", result, telemetry.polls)
	}
	if calls := f.fake.Calls("GET /projects/"); calls != 1 {
		t.Fatalf("expected only the poll to list projects, got %d calls", calls)
	}
}

func TestWatchIdleListReturnsImmediately(t *testing.T) {
	f := setup(t)
	f.fake.AddProject(api.Project{Name: "Done", Status: api.StatusCompleted})

	result, err := f.svc.Watch(context.Background(), projects.WatchOptions{Interval: time.Hour})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if result.Polls != 0 {
		t.Fatalf("expected no polls, got %d", result.Polls)
	}
	if f.fake.Calls("GET /projects/") != 1 {
		t.Fatalf("expected only the initial list call, got %d", f.fake.Calls("GET /projects/"))
	}
}
