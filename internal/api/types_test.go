package api_test

import (
	"encoding/json"
	"testing"

	"clipdeck/internal/api"
)

func TestParameterSchemaAcceptsBothShapes(t *testing.T) {
	payload := `{
		"template_id": "tpl-1",
		"name": "Intro",
		"parameters_schema": {
			"color": {"type": "color", "required": true},
			"title": {"type": "text", "max_length": 40, "default": "Hello"},
			"subtitle": "World",
			"duration": 5
		}
	}`
	var tpl api.Template
	if err := json.Unmarshal([]byte(payload), &tpl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	color := tpl.ParametersSchema["color"]
	if color.Type != api.ParamColor || !color.Required {
		t.Fatalf("unexpected color spec %+v", color)
	}
	title := tpl.ParametersSchema["title"]
	if title.MaxLength != 40 || title.Default != "Hello" {
		t.Fatalf("unexpected title spec %+v", title)
	}
	subtitle := tpl.ParametersSchema["subtitle"]
	if subtitle.Type != api.ParamText || subtitle.Required || subtitle.Default != "World" {
		t.Fatalf("unexpected scalar spec %+v", subtitle)
	}
	if tpl.ParametersSchema["duration"].Default != float64(5) {
		t.Fatalf("unexpected numeric default %+v", tpl.ParametersSchema["duration"])
	}
	names := tpl.ParameterNames()
	if len(names) != 4 || names[0] != "color" || names[3] != "title" {
		t.Fatalf("unexpected parameter order %v", names)
	}
}

func TestProjectKeyPrefersUnderscoreID(t *testing.T) {
	if key := (api.Project{ID: "a", ProjectID: "b"}).Key(); key != "a" {
		t.Fatalf("got %q", key)
	}
	if key := (api.Project{ProjectID: "b"}).Key(); key != "b" {
		t.Fatalf("got %q", key)
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   api.ProjectStatus
		inFlight bool
		terminal bool
	}{
		{api.StatusDraft, false, false},
		{api.StatusProcessing, true, false},
		{api.StatusRendering, true, false},
		{api.StatusCompleted, false, true},
		{api.StatusFailed, false, true},
	}
	for _, tc := range tests {
		if tc.status.InFlight() != tc.inFlight || tc.status.Terminal() != tc.terminal {
			t.Fatalf("unexpected predicates for %s", tc.status)
		}
	}
}

func TestParseQuality(t *testing.T) {
	if q, err := api.ParseQuality(""); err != nil || q != api.Quality1080p {
		t.Fatalf("expected default 1080p, got %q %v", q, err)
	}
	if q, err := api.ParseQuality("4K"); err != nil || q != api.Quality4K {
		t.Fatalf("expected 4k, got %q %v", q, err)
	}
	if _, err := api.ParseQuality("8k"); err == nil {
		t.Fatal("expected rejection of 8k")
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{"2024-05-01T10:00:00Z", "2024-05-01T10:00:00.123456", "2024-05-01 10:00:00"} {
		if _, ok := api.ParseTimestamp(value); !ok {
			t.Fatalf("expected %q to parse", value)
		}
	}
	if _, ok := api.ParseTimestamp("yesterday"); ok {
		t.Fatal("expected failure")
	}
}
