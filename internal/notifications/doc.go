// Package notifications delivers render lifecycle events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover the render milestones so commands can
// emit consistent, user-friendly messages without duplicating HTTP glue.
// Individual events can be switched off in the [notifications] section.
package notifications
