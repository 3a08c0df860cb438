// Package projects implements the project lifecycle on top of the remote
// client: parameter validation against a template schema, creation with
// client-side defaults, render requests, deletion, and the watch loop that
// follows renders to completion through the poller.
package projects
