// Package config loads, normalizes, and validates clipdeck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, applies a working-directory .env file, and
// honours environment fallbacks such as CLIPDECK_API_URL. The Config type
// centralizes every knob the CLI needs so the remote service location, state
// directory, and polling cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
