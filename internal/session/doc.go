// Package session owns the authenticated identity and bearer credential.
//
// A Store is created once per process, rehydrated from the preference store,
// and injected into every command that talks to the service. It is the only
// component that mutates the credential: Login and Register set it, Logout
// and Invalidate clear it. The remote client never reaches back into the
// session; callers hand authentication rejections to Invalidate instead.
package session
