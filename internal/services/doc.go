// Package services defines shared utilities consumed by the clipdeck client
// packages and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, command names, and correlation
//     identifiers for logging and request tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent CLI exit codes.
//
// Use these helpers when wiring new client features so operational behaviour
// (error classification, observability) stays uniform across commands.
package services
