// Package textutil provides small text helpers shared by the command layer
// and the exporter.
//
// The primary use cases are:
//   - Sanitizing project names into safe download file names
//   - Reducing server-supplied descriptions (which may carry markup) to plain text
//   - Truncating long values for table columns
package textutil
