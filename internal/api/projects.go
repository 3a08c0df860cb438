package api

import (
	"context"
	"net/http"
)

// Projects lists the current user's projects.
func (c *Client) Projects(ctx context.Context, token string) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, request{op: "projects.list", method: http.MethodGet, path: "/projects/", token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject instantiates a template.
func (c *Client) CreateProject(ctx context.Context, token string, payload CreateProjectRequest) (*CreateProjectResponse, error) {
	if payload.Parameters == nil {
		payload.Parameters = map[string]any{}
	}
	var out CreateProjectResponse
	if err := c.do(ctx, request{op: "projects.create", method: http.MethodPost, path: "/projects/", token: token, body: payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Project fetches one project.
func (c *Client) Project(ctx context.Context, token, id string) (*Project, error) {
	var out Project
	if err := c.do(ctx, request{op: "projects.get", method: http.MethodGet, path: "/projects/" + escape(id), token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderProject asks the service to start rendering.
func (c *Client) RenderProject(ctx context.Context, token, id string) (*RenderResponse, error) {
	var out RenderResponse
	path := "/projects/" + escape(id) + "/render"
	if err := c.do(ctx, request{op: "projects.render", method: http.MethodPost, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, token, id string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, request{op: "projects.delete", method: http.MethodDelete, path: "/projects/" + escape(id), token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
