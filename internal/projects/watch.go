package projects

import (
	"context"
	"time"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
	"clipdeck/internal/logging"
	"clipdeck/internal/notifications"
	"clipdeck/internal/poller"
)

// Telemetry receives poll-loop measurements. Project counts and status
// changes travel on the event bus as ProjectsRefreshed and
// ProjectTransitioned.
type Telemetry interface {
	RecordPoll()
	RecordPollFailure()
}

// WatchOptions configures Watch.
type WatchOptions struct {
	Interval time.Duration
	// ProjectID restricts watching to a single project when set.
	ProjectID string
	// Initial is a list the caller already fetched. When nil, Watch lists
	// projects itself before polling.
	Initial []api.Project
	// OnUpdate receives the initial list and every refreshed list with the
	// status changes since the previous one.
	OnUpdate  func(projects []api.Project, changes []poller.Transition)
	Notifier  notifications.Service
	Telemetry Telemetry
}

// WatchResult summarizes a finished watch.
type WatchResult struct {
	Projects  []api.Project
	Completed int
	Failed    int
	Polls     int
	Elapsed   time.Duration
}

// Watch follows renders until every watched project is terminal or draft,
// ctx is cancelled, or the service rejects the credential. Transient fetch
// failures are logged and retried on the next interval.
func (s *Service) Watch(ctx context.Context, opts WatchOptions) (*WatchResult, error) {
	start := time.Now()
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}

	filter := func(list []api.Project) []api.Project {
		if opts.ProjectID == "" {
			return list
		}
		out := make([]api.Project, 0, 1)
		for _, p := range list {
			if p.ID == opts.ProjectID || p.ProjectID == opts.ProjectID {
				out = append(out, p)
			}
		}
		return out
	}

	all := opts.Initial
	if all == nil {
		all, err = s.client.Projects(ctx, token)
		if err != nil {
			return nil, s.session.Invalidate(ctx, err)
		}
	}
	initial := filter(all)
	s.publishRefresh(initial, opts, nil)

	result := &WatchResult{Projects: initial}
	prev := initial

	p := poller.New(poller.Options{
		Interval: opts.Interval,
		Logger:   s.logger,
		Fetch: func(ctx context.Context) ([]api.Project, error) {
			if opts.Telemetry != nil {
				opts.Telemetry.RecordPoll()
			}
			list, err := s.client.Projects(ctx, token)
			if err != nil {
				return nil, err
			}
			return filter(list), nil
		},
		OnError: func(err error) {
			if opts.Telemetry != nil {
				opts.Telemetry.RecordPollFailure()
			}
		},
		OnUpdate: func(next []api.Project) {
			changes := poller.Transitions(prev, next)
			for _, change := range changes {
				s.announce(ctx, notifier, change, next, result)
			}
			prev = next
			s.publishRefresh(next, opts, changes)
		},
	})

	final, err := p.Run(ctx, initial)
	result.Projects = final
	result.Polls = p.Fetches()
	result.Elapsed = time.Since(start)
	if err != nil {
		return result, s.session.Invalidate(ctx, err)
	}

	if ctx.Err() == nil && result.Completed+result.Failed > 0 {
		if err := notifier.Publish(ctx, notifications.EventWatchSettled, notifications.Payload{
			"completed": result.Completed,
			"failed":    result.Failed,
			"duration":  result.Elapsed,
		}); err != nil {
			s.logger.Warn("settle notification failed", logging.Error(err))
		}
	}
	return result, nil
}

func (s *Service) publishRefresh(list []api.Project, opts WatchOptions, changes []poller.Transition) {
	s.bus.Publish(events.Event{Kind: events.ProjectsRefreshed, Projects: list})
	if opts.OnUpdate != nil {
		opts.OnUpdate(list, changes)
	}
}

func (s *Service) announce(ctx context.Context, notifier notifications.Service, change poller.Transition, list []api.Project, result *WatchResult) {
	if change.From == "" {
		return
	}
	var project *api.Project
	for i := range list {
		if list[i].Key() == change.Key {
			project = &list[i]
			break
		}
	}
	s.bus.Publish(events.Event{Kind: events.ProjectTransitioned, Project: project, FromStatus: change.From, ToStatus: change.To})

	payload := notifications.Payload{"project": change.Name}
	var event notifications.Event
	switch {
	case change.To == api.StatusCompleted:
		result.Completed++
		event = notifications.EventRenderCompleted
		if project != nil {
			payload["videoURL"] = project.VideoURL
		}
	case change.To == api.StatusFailed:
		result.Failed++
		event = notifications.EventRenderFailed
	case change.To.InFlight() && !change.From.InFlight():
		event = notifications.EventRenderStarted
		if project != nil {
			payload["quality"] = project.RenderQuality
		}
	default:
		return
	}
	s.logger.Info("project status changed",
		logging.String(logging.FieldProjectID, change.Key),
		logging.String("from", string(change.From)),
		logging.String("to", string(change.To)),
	)
	if err := notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(s.logger, "render notification failed", "notify_failed",
			logging.String(logging.FieldProjectID, change.Key),
			logging.Error(err),
		)
	}
}
