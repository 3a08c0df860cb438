// Package poller refreshes the project list while any render is in flight.
//
// Polling is a two-state machine over a pure predicate: the poller is Active
// exactly when some project is processing or rendering, and Idle otherwise.
// While Active it waits a fixed interval, refetches the whole list, publishes
// it, and re-evaluates. Refetches are strictly sequential and none fires after
// Stop or context cancellation.
package poller
