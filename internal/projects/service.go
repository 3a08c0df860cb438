package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
	"clipdeck/internal/logging"
	"clipdeck/internal/services"
)

// Client is the subset of the remote client used for projects.
type Client interface {
	Projects(ctx context.Context, token string) ([]api.Project, error)
	CreateProject(ctx context.Context, token string, payload api.CreateProjectRequest) (*api.CreateProjectResponse, error)
	Project(ctx context.Context, token, id string) (*api.Project, error)
	RenderProject(ctx context.Context, token, id string) (*api.RenderResponse, error)
	DeleteProject(ctx context.Context, token, id string) (*api.MessageResponse, error)
	Template(ctx context.Context, token, id string) (*api.Template, error)
}

// Session supplies the credential and handles authentication rejections.
type Session interface {
	Require() (string, error)
	Invalidate(ctx context.Context, err error) error
}

// Draft is user input for a new project.
type Draft struct {
	TemplateID  string
	Name        string
	Description string
	Quality     string
	Parameters  map[string]any
}

// Service runs project operations for the current session.
type Service struct {
	client  Client
	session Session
	bus     *events.Bus
	logger  *slog.Logger
}

// NewService constructs a project service. bus may be nil.
func NewService(client Client, sess Session, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		session: sess,
		bus:     bus,
		logger:  logging.NewComponentLogger(logger, "projects"),
	}
}

// List returns the current user's projects.
func (s *Service) List(ctx context.Context) ([]api.Project, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	list, err := s.client.Projects(ctx, token)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return list, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id string) (*api.Project, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	p, err := s.client.Project(ctx, token, id)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return p, nil
}

// Create fetches the draft's template and creates the project from it.
func (s *Service) Create(ctx context.Context, draft Draft) (*api.CreateProjectResponse, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft.TemplateID) == "" {
		return nil, services.Wrap(services.ErrValidation, "projects", "create", "template id is required", nil)
	}
	tpl, err := s.client.Template(ctx, token, draft.TemplateID)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	return s.CreateFromTemplate(ctx, tpl, draft)
}

// CreateFromTemplate applies schema defaults, validates, and fills the name
// and quality defaults before posting. Validation failures return a
// *ValidationError without any network call.
func (s *Service) CreateFromTemplate(ctx context.Context, tpl *api.Template, draft Draft) (*api.CreateProjectResponse, error) {
	if tpl == nil {
		return nil, errors.New("create project: template is required")
	}
	params := ApplyDefaults(tpl.ParametersSchema, draft.Parameters)
	if err := Validate(tpl.ParametersSchema, params); err != nil {
		return nil, err
	}
	quality, err := api.ParseQuality(draft.Quality)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "projects", "create", err.Error(), nil)
	}
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		name = fmt.Sprintf("%s Project", tpl.Name)
	}

	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	resp, err := s.client.CreateProject(ctx, token, api.CreateProjectRequest{
		TemplateID:    tpl.TemplateID,
		Name:          name,
		Description:   strings.TrimSpace(draft.Description),
		Parameters:    params,
		RenderQuality: quality,
	})
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	s.logger.Info("project created",
		logging.String(logging.FieldProjectID, resp.Key()),
		logging.String(logging.FieldTemplateID, tpl.TemplateID),
		logging.String("quality", quality),
	)
	return resp, nil
}

// Render starts rendering a project.
func (s *Service) Render(ctx context.Context, id string) (*api.RenderResponse, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	resp, err := s.client.RenderProject(ctx, token, id)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	logging.WithContext(services.WithProjectID(ctx, id), s.logger).Info("render requested",
		logging.String("status", string(resp.Status)),
	)
	return resp, nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, id string) (*api.MessageResponse, error) {
	token, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	resp, err := s.client.DeleteProject(ctx, token, id)
	if err != nil {
		return nil, s.session.Invalidate(ctx, err)
	}
	logging.WithContext(services.WithProjectID(ctx, id), s.logger).Info("project deleted")
	return resp, nil
}
