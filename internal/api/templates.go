package api

import (
	"context"
	"net/http"
)

// Templates lists the full catalog.
func (c *Client) Templates(ctx context.Context, token string) ([]Template, error) {
	var out []Template
	if err := c.do(ctx, request{op: "templates.list", method: http.MethodGet, path: "/templates/", token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists template category names.
func (c *Client) Categories(ctx context.Context, token string) ([]string, error) {
	var out categoriesResponse
	if err := c.do(ctx, request{op: "templates.categories", method: http.MethodGet, path: "/templates/categories", token: token}, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// TemplatesByCategory lists templates in one category.
func (c *Client) TemplatesByCategory(ctx context.Context, token, category string) ([]Template, error) {
	var out []Template
	path := "/templates/category/" + escape(category)
	if err := c.do(ctx, request{op: "templates.by_category", method: http.MethodGet, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Template fetches one template.
func (c *Client) Template(ctx context.Context, token, id string) (*Template, error) {
	var out Template
	if err := c.do(ctx, request{op: "templates.get", method: http.MethodGet, path: "/templates/" + escape(id), token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveTemplate bookmarks a template for the current user.
func (c *Client) SaveTemplate(ctx context.Context, token, id string) (*MessageResponse, error) {
	var out MessageResponse
	path := "/templates/" + escape(id) + "/save"
	if err := c.do(ctx, request{op: "templates.save", method: http.MethodPost, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnsaveTemplate removes a bookmark.
func (c *Client) UnsaveTemplate(ctx context.Context, token, id string) (*MessageResponse, error) {
	var out MessageResponse
	path := "/templates/" + escape(id) + "/unsave"
	if err := c.do(ctx, request{op: "templates.unsave", method: http.MethodDelete, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavedTemplates lists the current user's bookmarks.
func (c *Client) SavedTemplates(ctx context.Context, token string) ([]Template, error) {
	var out []Template
	if err := c.do(ctx, request{op: "templates.saved", method: http.MethodGet, path: "/templates/saved/my-templates", token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
