package catalog

import (
	"context"
	"sync"

	"clipdeck/internal/api"
	"clipdeck/internal/events"
)

// SavedIndex caches the saved-templates list. It follows save toggles
// optimistically and drops its cache whenever a toggle is reverted.
type SavedIndex struct {
	svc *Service

	mu     sync.Mutex
	loaded bool
	items  []api.Template
	unsubs []func()
}

// NewSavedIndex subscribes the index to svc's save events.
func NewSavedIndex(svc *Service) *SavedIndex {
	idx := &SavedIndex{svc: svc}
	if svc.bus != nil {
		idx.unsubs = append(idx.unsubs,
			svc.bus.Subscribe(events.TemplateSaveToggled, idx.onToggled),
			svc.bus.Subscribe(events.TemplateSaveReverted, idx.onReverted),
		)
	}
	return idx
}

// Templates returns the cached list, loading it on first use or after invalidation.
func (idx *SavedIndex) Templates(ctx context.Context) ([]api.Template, error) {
	idx.mu.Lock()
	if idx.loaded {
		out := append([]api.Template(nil), idx.items...)
		idx.mu.Unlock()
		return out, nil
	}
	idx.mu.Unlock()

	items, err := idx.svc.Saved(ctx)
	if err != nil {
		return nil, err
	}
	idx.mu.Lock()
	idx.items = items
	idx.loaded = true
	idx.mu.Unlock()
	return append([]api.Template(nil), items...), nil
}

// Invalidate forces the next Templates call to refetch.
func (idx *SavedIndex) Invalidate() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.loaded = false
	idx.items = nil
}

// Close detaches the index from the event bus.
func (idx *SavedIndex) Close() {
	for _, unsub := range idx.unsubs {
		unsub()
	}
	idx.unsubs = nil
}

func (idx *SavedIndex) onToggled(ev events.Event) {
	if ev.Template == nil {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.loaded {
		return
	}
	filtered := idx.items[:0]
	for _, t := range idx.items {
		if t.TemplateID != ev.Template.TemplateID {
			filtered = append(filtered, t)
		}
	}
	idx.items = filtered
	if ev.Template.IsSaved {
		idx.items = append(idx.items, *ev.Template)
	}
}

func (idx *SavedIndex) onReverted(events.Event) {
	idx.Invalidate()
}
