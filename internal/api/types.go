package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// User is the authenticated identity's profile.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}

// Credentials are the username/password pair sent to the login endpoint.
type Credentials struct {
	Username string
	Password string
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// AuthResponse is returned by both login and registration.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// ParameterSpec describes one template parameter.
type ParameterSpec struct {
	Type      string `json:"type"`
	Required  bool   `json:"required,omitempty"`
	Default   any    `json:"default,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
}

// UnmarshalJSON accepts both the structured object shape and the bare scalar
// shape, where the value is the default of an optional text parameter.
func (p *ParameterSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		type alias ParameterSpec
		var decoded alias
		if err := json.Unmarshal(trimmed, &decoded); err != nil {
			return err
		}
		*p = ParameterSpec(decoded)
		if p.Type == "" {
			p.Type = ParamText
		}
		return nil
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	*p = ParameterSpec{Type: ParamText, Default: value}
	return nil
}

// Parameter types understood by the client.
const (
	ParamText  = "text"
	ParamURL   = "url"
	ParamColor = "color"
)

// Template is a read-only catalog entry. Only IsSaved and TotalSaves change
// on the client, through save/unsave.
type Template struct {
	TemplateID       string                   `json:"template_id"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description"`
	Category         string                   `json:"category"`
	ParametersSchema map[string]ParameterSpec `json:"parameters_schema"`
	PreviewURL       string                   `json:"preview_url"`
	ThumbnailURL     string                   `json:"thumbnail_url"`
	DurationSeconds  float64                  `json:"duration_seconds"`
	Resolution       string                   `json:"resolution"`
	CreatedAt        string                   `json:"created_at"`
	IsPremium        bool                     `json:"is_premium"`
	IsActive         bool                     `json:"is_active"`
	RenderEngine     string                   `json:"render_engine"`
	Tags             []string                 `json:"tags"`
	IsSaved          bool                     `json:"is_saved"`
	TotalSaves       int                      `json:"total_saves"`
}

// ParameterNames returns schema keys in a stable order.
func (t Template) ParameterNames() []string {
	names := make([]string, 0, len(t.ParametersSchema))
	for name := range t.ParametersSchema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProjectStatus is the render lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusProcessing ProjectStatus = "processing"
	StatusRendering  ProjectStatus = "rendering"
	StatusCompleted  ProjectStatus = "completed"
	StatusFailed     ProjectStatus = "failed"
)

// InFlight reports whether the server is still working on the project.
func (s ProjectStatus) InFlight() bool {
	return s == StatusProcessing || s == StatusRendering
}

// Terminal reports whether no further status change is expected.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Render quality values accepted by the service.
const (
	Quality720p  = "720p"
	Quality1080p = "1080p"
	Quality4K    = "4k"
)

// Qualities lists the accepted render qualities in display order.
func Qualities() []string {
	return []string{Quality720p, Quality1080p, Quality4K}
}

// ParseQuality normalizes a quality string, rejecting unknown values.
func ParseQuality(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return Quality1080p, nil
	}
	for _, q := range Qualities() {
		if normalized == q {
			return q, nil
		}
	}
	return "", fmt.Errorf("render quality must be one of %s, got %q", strings.Join(Qualities(), ", "), value)
}

// TemplateInfo is the denormalized template summary embedded in projects.
type TemplateInfo struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Project is a user's instantiation of a template.
type Project struct {
	ID                string         `json:"_id"`
	ProjectID         string         `json:"project_id"`
	UserID            string         `json:"user_id"`
	TemplateID        string         `json:"template_id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Parameters        map[string]any `json:"parameters"`
	Status            ProjectStatus  `json:"status"`
	RenderQuality     string         `json:"render_quality"`
	VideoURL          string         `json:"video_url,omitempty"`
	ThumbnailURL      string         `json:"thumbnail_url"`
	DurationSeconds   float64        `json:"duration_seconds"`
	FileSizeMB        float64        `json:"file_size_mb"`
	RenderStartedAt   string         `json:"render_started_at"`
	RenderCompletedAt string         `json:"render_completed_at"`
	CreatedAt         string         `json:"created_at"`
	UpdatedAt         string         `json:"updated_at"`
	IsPublic          bool           `json:"is_public"`
	TemplateInfo      TemplateInfo   `json:"template_info"`
}

// Key returns the canonical identifier, preferring _id over project_id.
func (p Project) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.ProjectID
}

// CreateProjectRequest is the project creation payload.
type CreateProjectRequest struct {
	TemplateID    string         `json:"template_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Parameters    map[string]any `json:"parameters"`
	RenderQuality string         `json:"render_quality"`
}

// CreateProjectResponse acknowledges project creation.
type CreateProjectResponse struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
	ID        string `json:"_id"`
}

// Key returns the canonical identifier of the created project.
func (r CreateProjectResponse) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.ProjectID
}

// RenderResponse acknowledges a render request.
type RenderResponse struct {
	Message   string        `json:"message"`
	ProjectID string        `json:"project_id"`
	Status    ProjectStatus `json:"status"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the service's ISO timestamps. Values without a zone
// are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
