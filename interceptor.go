package ofetch

import "sync"

// InterceptorChain is an ordered, sparse list of interceptor entries. Slots
// are never shifted: Eject empties a slot in place so handles issued earlier
// stay valid. It is safe for concurrent use.
type InterceptorChain[T any] struct {
	mu         sync.RWMutex
	entries    []*InterceptorEntry[T]
	generation int
}

// NewInterceptorChain creates an empty chain.
func NewInterceptorChain[T any]() *InterceptorChain[T] {
	return &InterceptorChain[T]{}
}

// Use appends an entry built from the given pair and options and returns its
// handle. Either handler may be nil; the pipeline treats a nil handler as a
// pass-through for its path.
func (c *InterceptorChain[T]) Use(onFulfilled Interceptor[T], onRejected Recovery[T], opts *InterceptorOptions) Handle {
	entry := &InterceptorEntry[T]{
		OnFulfilled: onFulfilled,
		OnRejected:  onRejected,
	}
	if opts != nil {
		entry.Synchronous = opts.Synchronous
		entry.RunWhen = opts.RunWhen
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return Handle{index: len(c.entries) - 1, generation: c.generation}
}

// Eject empties the slot identified by h. Ejecting an already empty, out of
// range, or pre-Clear handle is a no-op.
func (c *InterceptorChain[T]) Eject(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.generation != c.generation {
		return
	}
	if h.index < 0 || h.index >= len(c.entries) {
		return
	}
	c.entries[h.index] = nil
}

// Clear discards all entries. Handles issued before Clear are invalidated
// and can never match an entry registered afterwards.
func (c *InterceptorChain[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.generation++
}

// Len reports the number of live entries.
func (c *InterceptorChain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, entry := range c.entries {
		if entry != nil {
			n++
		}
	}
	return n
}

// ForEach visits live entries in registration order. The visit callback must
// not mutate the entry; it runs on a snapshot, so concurrent Use/Eject calls
// do not affect an in-progress traversal.
func (c *InterceptorChain[T]) ForEach(visit func(entry *InterceptorEntry[T])) {
	c.mu.RLock()
	snapshot := make([]*InterceptorEntry[T], len(c.entries))
	copy(snapshot, c.entries)
	c.mu.RUnlock()

	for _, entry := range snapshot {
		if entry == nil {
			continue
		}
		visit(entry)
	}
}
