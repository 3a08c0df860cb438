// Package events is a small synchronous in-process dispatcher used to
// propagate client-side state changes, such as optimistic template saves,
// to the components that cache derived views.
package events

import (
	"sync"

	"clipdeck/internal/api"
)

// Kind identifies an event type.
type Kind string

const (
	TemplateSaveToggled  Kind = "template_save_toggled"
	TemplateSaveReverted Kind = "template_save_reverted"
	ProjectsRefreshed    Kind = "projects_refreshed"
	ProjectTransitioned  Kind = "project_transitioned"
)

// Event carries a kind and its payload. Fields irrelevant to the kind are zero.
type Event struct {
	Kind       Kind
	Template   *api.Template
	Projects   []api.Project
	Project    *api.Project
	FromStatus api.ProjectStatus
	ToStatus   api.ProjectStatus
	Err        error
}

// Handler consumes events.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers handler for kind and returns a function that removes it.
func (b *Bus) Subscribe(kind Kind, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			current := b.subs[kind]
			for i, sub := range current {
				if sub.id == id {
					b.subs[kind] = append(current[:i:i], current[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev synchronously. Handlers may subscribe or unsubscribe
// while running; such changes apply to the next Publish.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[ev.Kind]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.handler(ev)
	}
}
