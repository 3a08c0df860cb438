// Package export builds the export view of a user's projects and downloads
// rendered videos.
//
// Rows mirror the dashboard's export table: creation and completion times,
// a preview marker, and a download label derived from the project status.
// Downloads stream the project's video_url into a sanitized file name. Unless
// export.allow_private_hosts is set, the HTTP client is SSRF-guarded so a
// hostile video_url cannot reach loopback, private, or metadata addresses.
package export
