package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"clipdeck/internal/api"
	"clipdeck/internal/catalog"
	"clipdeck/internal/config"
	"clipdeck/internal/events"
	"clipdeck/internal/export"
	"clipdeck/internal/logging"
	"clipdeck/internal/metrics"
	"clipdeck/internal/notifications"
	"clipdeck/internal/prefs"
	"clipdeck/internal/projects"
	"clipdeck/internal/services"
	"clipdeck/internal/session"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger    *slog.Logger
	prefs     prefs.Store
	client    *api.Client
	session   *session.Store
	restored  bool
	bus       *events.Bus
	registry  *prometheus.Registry
	collector *metrics.Collector
	catalog   *catalog.Service
	projects  *projects.Service
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		bus:        events.NewBus(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) ensurePrefs() (prefs.Store, error) {
	if c.prefs != nil {
		return c.prefs, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := prefs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}
	c.prefs = store
	return store, nil
}

// telemetry returns the collector shared by the API client and the watch
// loop. It follows project events on the command bus. Its registry is only
// exposed when a metrics listener is requested.
func (c *commandContext) telemetry() (*metrics.Collector, *prometheus.Registry) {
	if c.collector == nil {
		c.registry = prometheus.NewRegistry()
		c.collector = metrics.NewCollector(c.registry)
		c.collector.Follow(c.bus)
	}
	return c.collector, c.registry
}

func (c *commandContext) ensureClient() (*api.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	collector, _ := c.telemetry()
	c.client = api.NewFromConfig(cfg, logger, api.WithRecorder(collector))
	return c.client, nil
}

// ensureSession builds the session store and rehydrates the persisted
// credential once per invocation.
func (c *commandContext) ensureSession(ctx context.Context) (*session.Store, error) {
	if c.session != nil && c.restored {
		return c.session, nil
	}
	client, err := c.ensureClient()
	if err != nil {
		return nil, err
	}
	store, err := c.ensurePrefs()
	if err != nil {
		return nil, err
	}
	logger, _ := c.ensureLogger()
	if c.session == nil {
		c.session = session.New(client, store, logger)
	}
	if err := c.session.Restore(ctx); err != nil {
		return nil, err
	}
	c.restored = true
	return c.session, nil
}

func (c *commandContext) catalogService(ctx context.Context) (*catalog.Service, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	c.catalog = catalog.NewService(c.client, sess, c.bus, c.logger)
	return c.catalog, nil
}

func (c *commandContext) projectService(ctx context.Context) (*projects.Service, error) {
	if c.projects != nil {
		return c.projects, nil
	}
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	c.projects = projects.NewService(c.client, sess, c.bus, c.logger)
	return c.projects, nil
}

func (c *commandContext) notifier() (notifications.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return notifications.NewService(cfg), nil
}

func (c *commandContext) downloader() (*export.Downloader, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return export.NewDownloader(cfg, logger), nil
}

// theme reads the stored theme, falling back to light when the store is unavailable.
func (c *commandContext) theme(ctx context.Context) prefs.Theme {
	store, err := c.ensurePrefs()
	if err != nil {
		return prefs.ThemeLight
	}
	theme, err := prefs.LoadTheme(ctx, store)
	if err != nil {
		return prefs.ThemeLight
	}
	return theme
}

// commandCtx stamps the invocation's command path and a request id on the
// cobra context for logging and request correlation.
func (c *commandContext) commandCtx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithCommand(ctx, cmd.CommandPath())
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	return ctx
}

func (c *commandContext) close() {
	if c.prefs != nil {
		if err := c.prefs.Close(); err != nil && c.logger != nil {
			c.logger.Warn("close preference store", logging.Error(err))
		}
		c.prefs = nil
	}
}

// explainSessionError points the user at login after the service rejected
// the stored credential. The unauthorized marker is kept for the exit code.
func explainSessionError(err error) error {
	if errors.Is(err, session.ErrSessionExpired) {
		return fmt.Errorf("%w (run `clipdeck login`)", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
