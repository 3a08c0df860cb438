package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateState(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"api.timeout_seconds":           c.API.TimeoutSeconds,
		"polling.interval_seconds":      c.Polling.IntervalSeconds,
		"export.max_download_mb":        c.Export.MaxDownloadMB,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.base_url must include a host, got %q", c.API.BaseURL)
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("api.requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateState() error {
	switch c.State.Backend {
	case BackendSQLite, BackendFile:
		return nil
	default:
		return fmt.Errorf("state.backend must be %q or %q, got %q", BackendSQLite, BackendFile, c.State.Backend)
	}
}

func (c *Config) validateNotifications() error {
	topic := strings.TrimSpace(c.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full URL (for example https://ntfy.sh/my-topic)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
