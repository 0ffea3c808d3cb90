// Package session tracks which dataset a conversation works against.
//
// A Context is an immutable value handed to one turn. The process-wide
// Binding only ever swaps in a new Context, so a turn that has taken its
// snapshot keeps the same dataset even if an upload lands mid-turn.
package session

import "sync/atomic"

type Context struct {
	DatasetPath string
}

// WithDataset returns a copy of c bound to path.
func (c Context) WithDataset(path string) Context {
	c.DatasetPath = path
	return c
}

// DatasetLabel names the dataset for prompts, falling back to the default
// dataset label when nothing is bound.
func (c Context) DatasetLabel(defaultLabel string) string {
	if c.DatasetPath == "" {
		return defaultLabel
	}
	return c.DatasetPath
}

type Binding struct {
	current atomic.Pointer[Context]
}

func NewBinding(initial Context) *Binding {
	b := &Binding{}
	b.current.Store(&initial)
	return b
}

// Snapshot returns the context in effect right now.
func (b *Binding) Snapshot() Context {
	if c := b.current.Load(); c != nil {
		return *c
	}
	return Context{}
}

// Bind replaces the active context with one bound to path and returns it.
func (b *Binding) Bind(path string) Context {
	next := b.Snapshot().WithDataset(path)
	b.current.Store(&next)
	return next
}
