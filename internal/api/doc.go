// Package api is the remote data client for the video-generation service.
//
// Every request flows through a single wrapper that attaches the bearer
// credential, encodes the body (JSON, or form-urlencoded for login), stamps an
// X-Request-ID, honours the optional client-side rate limit, and converts any
// non-2xx response into an *Error carrying the server's detail message. The
// client never retries and never touches session state: callers decide what an
// authentication rejection means.
package api
