package store

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate serializes mutations of the inventory and publishes each committed
// table for lock-free reads.
//
// A mutation runs on a clone of the current table while holding mu. The
// clone is saved to the document and only then published, so readers see
// either the table before the mutation or after it, and a failed save
// leaves both the medium and the published table untouched.
type Gate struct {
	mu      sync.Mutex
	doc     Document
	current atomic.Pointer[Table]
}

// OpenGate loads the document and publishes it as the current table.
func OpenGate(ctx context.Context, doc Document) (*Gate, error) {
	loaded, err := doc.Load(ctx)
	if err != nil {
		return nil, err
	}
	table, err := NewTable(loaded)
	if err != nil {
		return nil, err
	}

	g := &Gate{doc: doc}
	g.current.Store(table)
	return g, nil
}

// Snapshot returns the last committed table. Callers must not mutate it.
func (g *Gate) Snapshot() *Table {
	return g.current.Load()
}

// WithExclusiveAccess runs op against a private copy of the current table
// with no other mutation running. If op succeeds the copy is saved and
// published before WithExclusiveAccess returns.
func (g *Gate) WithExclusiveAccess(ctx context.Context, op func(t *Table) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.current.Load().Clone()
	if err := op(next); err != nil {
		return err
	}
	if err := g.doc.Save(ctx, next.Document()); err != nil {
		return err
	}
	g.current.Store(next)
	return nil
}
