package poller

import "clipdeck/internal/api"

// State is the poller's lifecycle state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// NeedsPolling reports whether any project is still being processed or rendered.
func NeedsPolling(projects []api.Project) bool {
	for _, p := range projects {
		if p.Status.InFlight() {
			return true
		}
	}
	return false
}

// StateFor maps a project list to the poller state it implies.
func StateFor(projects []api.Project) State {
	if NeedsPolling(projects) {
		return Active
	}
	return Idle
}

// Transition records a project whose status changed between two fetches.
type Transition struct {
	Key  string
	Name string
	From api.ProjectStatus
	To   api.ProjectStatus
}

// Transitions lists status changes from prev to next, in next's order.
// Projects absent from prev are reported with an empty From.
func Transitions(prev, next []api.Project) []Transition {
	before := make(map[string]api.ProjectStatus, len(prev))
	for _, p := range prev {
		before[p.Key()] = p.Status
	}
	var out []Transition
	for _, p := range next {
		from, seen := before[p.Key()]
		if seen && from == p.Status {
			continue
		}
		out = append(out, Transition{Key: p.Key(), Name: p.Name, From: from, To: p.Status})
	}
	return out
}
