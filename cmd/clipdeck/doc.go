// Package main implements the clipdeck command-line client for the video
// generation service.
//
// The CLI covers the dashboard's surfaces: authentication (login, register,
// logout, whoami), the template catalog with saved templates, project
// creation and rendering with a live render-status watch, the export table
// and video downloads, the theme preference, configuration scaffolding, and a
// notification smoke test.
//
// Each invocation builds a commandContext lazily: configuration, logging,
// the durable preference store, the remote client, and the session are only
// constructed when a command needs them. Output goes to stdout (tables or
// JSON with --json); logs go to the clipdeck log file.
package main
