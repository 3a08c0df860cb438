// Package prefs persists the small amount of client state that survives a
// restart: the session credential and the theme preference.
//
// Two backends implement Store. The SQLite backend (default) keeps a single
// key/value table; the file backend writes a JSON document guarded by an
// advisory lock so concurrent clipdeck invocations cannot interleave writes.
// Any key other than the two known ones is rejected.
package prefs
