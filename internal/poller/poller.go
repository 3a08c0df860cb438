package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipdeck/internal/api"
	"clipdeck/internal/logging"
)

// DefaultInterval is the refetch period while Active.
const DefaultInterval = 5 * time.Second

// FetchFunc retrieves the current project list.
type FetchFunc func(ctx context.Context) ([]api.Project, error)

// Options configures a Poller.
type Options struct {
	Interval time.Duration
	Fetch    FetchFunc
	// OnUpdate receives every successfully fetched list, in order.
	OnUpdate func([]api.Project)
	// OnError receives non-fatal fetch failures before the next retry.
	OnError func(error)
	// IsFatal decides which fetch errors end Run. Defaults to authentication rejections.
	IsFatal func(error) bool
	Logger  *slog.Logger
}

// Poller drives the Idle/Active refetch loop.
type Poller struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	stopped bool
	cancel  context.CancelFunc
	fetches int
}

// New constructs a poller.
func New(opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.IsFatal == nil {
		opts.IsFatal = api.IsUnauthorized
	}
	return &Poller{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "poller"),
	}
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Fetches returns how many refetches have been issued.
func (p *Poller) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// Stop cancels any pending wait or in-flight fetch. It is safe to call more
// than once and before Run.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.state = Idle
	if p.cancel != nil {
		p.cancel()
	}
}

// Run polls until the list settles, ctx is cancelled, Stop is called, or a
// fatal fetch error occurs. It returns the most recent list. Cancellation is
// not an error.
func (p *Poller) Run(ctx context.Context, initial []api.Project) ([]api.Project, error) {
	if p.opts.Fetch == nil {
		return initial, errors.New("poller: fetch function is required")
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return initial, nil
	}
	p.cancel = cancel
	p.mu.Unlock()

	current := initial
	p.setState(StateFor(current))

	for p.State() == Active {
		timer := time.NewTimer(p.opts.Interval)
		select {
		case <-runCtx.Done():
			timer.Stop()
			p.setState(Idle)
			return current, nil
		case <-timer.C:
		}
		if runCtx.Err() != nil {
			p.setState(Idle)
			return current, nil
		}

		p.mu.Lock()
		p.fetches++
		p.mu.Unlock()

		next, err := p.opts.Fetch(runCtx)
		if runCtx.Err() != nil {
			p.setState(Idle)
			return current, nil
		}
		if err != nil {
			if p.opts.IsFatal(err) {
				p.setState(Idle)
				return current, err
			}
			p.logger.Warn("project refresh failed; retrying next interval",
				logging.Error(err),
				logging.Duration("interval", p.opts.Interval),
				logging.String(logging.FieldEventType, "poll_failed"),
			)
			if p.opts.OnError != nil {
				p.opts.OnError(err)
			}
			continue
		}

		current = next
		if p.opts.OnUpdate != nil {
			p.opts.OnUpdate(current)
		}
		state := StateFor(current)
		p.setState(state)
		p.logger.Debug("project list refreshed",
			logging.Int("projects", len(current)),
			logging.String("state", state.String()),
		)
	}
	return current, nil
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.state = Idle
		return
	}
	p.state = s
}
