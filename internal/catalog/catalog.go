package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
	"clipdeck/internal/logging"
)

// Client is the subset of the remote client used by the catalog.
type Client interface {
	Templates(ctx context.Context, token string) ([]api.Template, error)
	Categories(ctx context.Context, token string) ([]string, error)
	TemplatesByCategory(ctx context.Context, token, category string) ([]api.Template, error)
	Template(ctx context.Context, token, id string) (*api.Template, error)
	SaveTemplate(ctx context.Context, token, id string) (*api.MessageResponse, error)
	UnsaveTemplate(ctx context.Context, token, id string) (*api.MessageResponse, error)
	SavedTemplates(ctx context.Context, token string) ([]api.Template, error)
}

// Session supplies the credential and handles authentication rejections.
type Session interface {
	Require() (string, error)
	Invalidate(ctx context.Context, err error) error
}

// Service wraps catalog reads and the save toggle.
type Service struct {
	client  Client
	session Session
	bus     *events.Bus
	logger  *slog.Logger
}

// NewService constructs a catalog service. bus may be nil.
func NewService(client Client, sess Session, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		session: sess,
		bus:     bus,
		logger:  logging.NewComponentLogger(logger, "catalog"),
	}
}

// List returns all templates, or only those in category when it is non-empty.
func (s *Service) List(ctx context.Context, category string) ([]api.Template, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	var templates []api.Template
	if category = strings.TrimSpace(category); category != "" {
		templates, err = s.client.TemplatesByCategory(ctx, token, category)
	} else {
		templates, err = s.client.Templates(ctx, token)
	}
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return templates, nil
}

// Categories returns the category names.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	categories, err := s.client.Categories(ctx, token)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return categories, nil
}

// Get returns one template.
func (s *Service) Get(ctx context.Context, id string) (*api.Template, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	tpl, err := s.client.Template(ctx, token, id)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return tpl, nil
}

// Saved returns the current user's saved templates straight from the service.
func (s *Service) Saved(ctx context.Context) ([]api.Template, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	templates, err := s.client.SavedTemplates(ctx, token)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return templates, nil
}

// ToggleSave flips tpl's saved flag in place before calling the service and
// publishes TemplateSaveToggled. If the call fails the change is reverted,
// TemplateSaveReverted is published, and the error is returned.
func (s *Service) ToggleSave(ctx context.Context, tpl *api.Template) error {
	if tpl == nil {
		return errors.New("toggle save: template is required")
	}
	token, err := s.session.Require()
	if err != nil {
		return err
	}

	previous := *tpl
	applySaved(tpl, !tpl.IsSaved)
	s.bus.Publish(events.Event{Kind: events.TemplateSaveToggled, Template: snapshot(tpl)})

	if tpl.IsSaved {
		_, err = s.client.SaveTemplate(ctx, token, tpl.TemplateID)
	} else {
		_, err = s.client.UnsaveTemplate(ctx, token, tpl.TemplateID)
	}
	if err != nil {
		tpl.IsSaved = previous.IsSaved
		tpl.TotalSaves = previous.TotalSaves
		s.bus.Publish(events.Event{Kind: events.TemplateSaveReverted, Template: snapshot(tpl), Err: err})
		s.logger.Warn("template save toggle reverted",
			logging.String(logging.FieldTemplateID, tpl.TemplateID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "save_reverted"),
			logging.String(logging.FieldImpact, "bookmark state unchanged"),
		)
		return s.session.Invalidate(ctx, err)
	}
	s.logger.Debug("template save toggled",
		logging.String(logging.FieldTemplateID, tpl.TemplateID),
		logging.Bool("saved", tpl.IsSaved),
	)
	return nil
}

// SetSaved makes tpl's saved flag equal want, toggling only when needed.
// It reports whether a change was made.
func (s *Service) SetSaved(ctx context.Context, tpl *api.Template, want bool) (bool, error) {
	if tpl == nil {
		return false, errors.New("set saved: template is required")
	}
	if tpl.IsSaved == want {
		return false, nil
	}
	if err := s.ToggleSave(ctx, tpl); err != nil {
		return false, err
	}
	return true, nil
}

// Search filters templates whose name or description contains query,
// case-insensitively. An empty query returns the input unchanged.
func Search(templates []api.Template, query string) []api.Template {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return templates
	}
	out := make([]api.Template, 0, len(templates))
	for _, t := range templates {
		if strings.Contains(strings.ToLower(t.Name), query) || strings.Contains(strings.ToLower(t.Description), query) {
			out = append(out, t)
		}
	}
	return out
}

func applySaved(tpl *api.Template, saved bool) {
	tpl.IsSaved = saved
	if saved {
		tpl.TotalSaves++
		return
	}
	if tpl.TotalSaves > 0 {
		tpl.TotalSaves--
	}
}

func snapshot(tpl *api.Template) *api.Template {
	cp := *tpl
	return &cp
}
