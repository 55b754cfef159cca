package attachments

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Listener observes item mutations. It runs on the caller's goroutine after
// the mutation is applied and may safely call back into the Registry.
type Listener func(Item)

// Option configures a Registry.
type Option func(*Registry)

// WithListener registers l for every added or updated item.
func WithListener(l Listener) Option {
	return func(r *Registry) { r.listener = l }
}

// WithItems seeds the registry as if AddAttachments(items...) was called.
func WithItems(items ...Item) Option {
	return func(r *Registry) { r.seed = append(r.seed, items...) }
}

type state struct {
	items []Item
	meta  map[string]string
}

// Registry is an ordered, path-unique collection of attachments plus the
// MetaState map.
//
// A single goroutine owns the data; every operation is queued to it and
// computed from the latest state, so concurrent updates are never lost.
// Close stops the owner goroutine.
type Registry struct {
	ops       chan func(*state)
	done      chan struct{}
	closeOnce sync.Once
	listener  Listener
	seed      []Item
}

// NewRegistry starts the owner goroutine.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		ops:  make(chan func(*state)),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	st := &state{meta: make(map[string]string)}
	st.items = addItems(st.items, r.seed)
	r.seed = nil

	go r.loop(st)
	return r
}

func (r *Registry) loop(st *state) {
	for {
		select {
		case op := <-r.ops:
			op(st)
		case <-r.done:
			return
		}
	}
}

// Close stops the registry. Subsequent calls return ErrRegistryClosed.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Registry) do(op func(*state)) error {
	finished := make(chan struct{})
	select {
	case r.ops <- func(st *state) {
		defer close(finished)
		op(st)
	}:
	case <-r.done:
		return ErrRegistryClosed
	}
	<-finished
	return nil
}

func (r *Registry) notify(items ...Item) {
	if r.listener == nil {
		return
	}
	for _, it := range items {
		r.listener(it)
	}
}

// AddAttachments inserts items. An existing item with the same path is
// removed and the new one is appended at the end. Unset fields default to
// progress 0, status IDLE, action IDLE, kind FILE.
func (r *Registry) AddAttachments(items ...Item) error {
	for _, it := range items {
		if it.Path == "" {
			return ErrEmptyPath
		}
	}

	var added []Item
	err := r.do(func(st *state) {
		st.items = addItems(st.items, items)
		added = slices.Clone(st.items[len(st.items)-countUnique(items):])
	})
	if err != nil {
		return err
	}

	r.notify(added...)
	return nil
}

// addItems filters out replaced paths, then appends the batch. Within one
// batch the last item for a path wins.
func addItems(existing, incoming []Item) []Item {
	if len(incoming) == 0 {
		return existing
	}

	replaced := make(map[string]int, len(incoming))
	batch := make([]Item, 0, len(incoming))
	for _, it := range incoming {
		it = it.withDefaults()
		if i, ok := replaced[it.Path]; ok {
			batch[i] = it
			continue
		}
		replaced[it.Path] = len(batch)
		batch = append(batch, it)
	}

	next := make([]Item, 0, len(existing)+len(batch))
	for _, it := range existing {
		if _, ok := replaced[it.Path]; !ok {
			next = append(next, it)
		}
	}
	return append(next, batch...)
}

func countUnique(items []Item) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.Path] = struct{}{}
	}
	return len(seen)
}

// UpdateByPath merges p into the item at path. It reports whether an item
// matched; a missing path is a no-op.
func (r *Registry) UpdateByPath(path string, p Patch) (bool, error) {
	var (
		updated Item
		found   bool
	)
	err := r.do(func(st *state) {
		for i := range st.items {
			if st.items[i].Path == path {
				st.items[i] = p.apply(st.items[i])
				updated, found = st.items[i], true
				return
			}
		}
	})
	if err != nil {
		return false, err
	}

	if found {
		r.notify(updated)
	}
	return found, nil
}

// AddMeta sets one MetaState key. Last write wins.
func (r *Registry) AddMeta(key, value string) error {
	if key == "" {
		return fmt.Errorf("meta key: %w", ErrEmptyPath)
	}
	return r.do(func(st *state) { st.meta[key] = value })
}

// Meta returns a copy of the MetaState.
func (r *Registry) Meta() (map[string]string, error) {
	var out map[string]string
	err := r.do(func(st *state) { out = maps.Clone(st.meta) })
	return out, err
}

// Snapshot returns a copy of the items in registry order.
func (r *Registry) Snapshot() ([]Item, error) {
	var out []Item
	err := r.do(func(st *state) { out = slices.Clone(st.items) })
	return out, err
}

// Get returns the item stored under path.
func (r *Registry) Get(path string) (Item, bool, error) {
	var (
		out   Item
		found bool
	)
	err := r.do(func(st *state) {
		i := slices.IndexFunc(st.items, func(it Item) bool { return it.Path == path })
		if i >= 0 {
			out, found = st.items[i], true
		}
	})
	return out, found, err
}

// Len returns the number of items.
func (r *Registry) Len() (int, error) {
	var n int
	err := r.do(func(st *state) { n = len(st.items) })
	return n, err
}
