package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"clipdeck/internal/api"
	"clipdeck/internal/config"
)

// formatDate renders a service timestamp as a calendar date, or "" when absent.
func formatDate(value string) string {
	ts, ok := api.ParseTimestamp(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return ts.In(time.Local).Format("Jan 2, 2006")
}

// formatAge renders a service timestamp relative to now ("3 minutes ago").
func formatAge(value string) string {
	ts, ok := api.ParseTimestamp(value)
	if !ok {
		return "-"
	}
	return humanize.Time(ts)
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

func formatSizeMB(mb float64) string {
	if mb <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(mb * (1 << 20)))
}

// parseParams merges a JSON params file with repeated key=value flags; flags win.
func parseParams(file string, pairs []string) (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(file) != "" {
		path, err := config.ExpandPath(file)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read params file: %w", err)
		}
		if err := json.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("parse params file %s: %w", path, err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", pair)
		}
		params[key] = value
	}
	return params, nil
}

func requireArg(args []string, what string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New(what + " is required")
	}
	return strings.TrimSpace(args[0]), nil
}

func formatDefault(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return `""`
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
