// Package routekey carries the routing key of one unit of work.
//
// A Holder is a mutable slot stored in a context.Context. Code that serves a
// unit of work (an HTTP request, a job) creates a holder with WithHolder or
// Scope, and the routing data source reads it back with From. Holder.Acquire
// changes a holder in place and is meant for the goroutine that owns it; Scope
// and Do always start a new holder and are safe to call from goroutines
// sharing a parent context. Nothing is
// shared between contexts that were not derived from each other, so a key set
// for one request is never seen by another request, even when both run on the
// same reused goroutine.
package routekey

import (
	"context"
	"sync"
	"sync/atomic"
)

// Holder holds at most one routing key
type Holder struct {
	key atomic.Pointer[string]
}

func (h *Holder) Set(key string) {
	h.key.Store(&key)
}

// Get returns the current key and whether one is set
func (h *Holder) Get() (string, bool) {
	p := h.key.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

func (h *Holder) Clear() {
	h.key.Store(nil)
}

// Release ends a scope started by Acquire. Calling it more than once has no further effect.
type Release func()

// Acquire sets key and returns a Release that restores whatever was set before,
// so nested scopes unwind in order and the outermost release leaves h empty.
func (h *Holder) Acquire(key string) Release {
	prev := h.key.Swap(&key)
	var once sync.Once
	return func() {
		once.Do(func() {
			h.key.Store(prev)
		})
	}
}

type contextKey struct{}

// WithHolder returns a child of ctx carrying a new, empty Holder.
func WithHolder(ctx context.Context) (context.Context, *Holder) {
	h := &Holder{}
	return context.WithValue(ctx, contextKey{}, h), h
}

// HolderFrom returns the Holder carried by ctx, or nil.
func HolderFrom(ctx context.Context) *Holder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(contextKey{}).(*Holder)
	return h
}

// From returns the routing key of ctx. It reports false when ctx has no holder or the holder is empty.
func From(ctx context.Context) (string, bool) {
	h := HolderFrom(ctx)
	if h == nil {
		return "", false
	}
	return h.Get()
}

// Scope returns a child of ctx with its own Holder set to key. The holder of
// ctx, if any, is left untouched, so sibling goroutines scoping the same parent
// never see each other's keys. The returned Release clears the child holder and
// must be called when the unit of work ends, usually with defer.
func Scope(ctx context.Context, key string) (context.Context, Release) {
	ctx, h := WithHolder(ctx)
	return ctx, h.Acquire(key)
}

// Do runs fn with key in scope. The key is released on every exit of fn, panics included.
func Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	ctx, release := Scope(ctx, key)
	defer release()
	return fn(ctx)
}
