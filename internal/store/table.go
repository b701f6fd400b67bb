package store

import (
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

// Table is the in-memory item collection: a map keyed by id plus the
// insertion order used for listing. A Table published by the Gate is
// never modified again; mutations work on a Clone.
type Table struct {
	items  map[int64]model.Item
	order  []int64
	nextID int64
}

// NewTable builds a table from a loaded document. The next id is the
// larger of the stored counter and the highest item id plus one.
func NewTable(doc model.Document) (*Table, error) {
	t := &Table{
		items:  make(map[int64]model.Item, len(doc.Items)),
		order:  make([]int64, 0, len(doc.Items)),
		nextID: 1,
	}
	for _, item := range doc.Items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("document holds non-positive item id %d", item.ID)
		}
		if _, dup := t.items[item.ID]; dup {
			return nil, fmt.Errorf("document holds duplicate item id %d", item.ID)
		}
		t.items[item.ID] = copyItem(item)
		t.order = append(t.order, item.ID)
		if item.ID >= t.nextID {
			t.nextID = item.ID + 1
		}
	}
	if doc.NextID > t.nextID {
		t.nextID = doc.NextID
	}
	return t, nil
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		items:  make(map[int64]model.Item, len(t.items)),
		order:  make([]int64, len(t.order)),
		nextID: t.nextID,
	}
	for id, item := range t.items {
		c.items[id] = item
	}
	copy(c.order, t.order)
	return c
}

// Document returns the durable form of the table.
func (t *Table) Document() model.Document {
	return model.Document{NextID: t.nextID, Items: t.List()}
}

// NextID returns the id the next insert will assign.
func (t *Table) NextID() int64 { return t.nextID }

// Len returns the number of items.
func (t *Table) Len() int { return len(t.order) }

// Insert appends a new item under the next id.
func (t *Table) Insert(name, description string) (model.Item, error) {
	if name == "" {
		return model.Item{}, model.Invalid("name required")
	}
	item := model.Item{ID: t.nextID, Name: name, Description: description}
	t.nextID++
	t.items[item.ID] = item
	t.order = append(t.order, item.ID)
	return copyItem(item), nil
}

// Get returns the item with the given id.
func (t *Table) Get(id int64) (model.Item, error) {
	item, ok := t.items[id]
	if !ok {
		return model.Item{}, model.NotFound("item %d", id)
	}
	return copyItem(item), nil
}

// List returns all items in insertion order.
func (t *Table) List() []model.Item {
	out := make([]model.Item, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, copyItem(t.items[id]))
	}
	return out
}

// Update applies the supplied, non-empty fields of u.
func (t *Table) Update(id int64, u model.ItemUpdate) (model.Item, error) {
	item, ok := t.items[id]
	if !ok {
		return model.Item{}, model.NotFound("item %d", id)
	}
	if u.Name != nil && *u.Name != "" {
		item.Name = *u.Name
	}
	if u.Description != nil && *u.Description != "" {
		item.Description = *u.Description
	}
	t.items[id] = item
	return copyItem(item), nil
}

// SetPhoto points the item at blobID and returns the reference it replaced,
// or "" when the item had no photo.
func (t *Table) SetPhoto(id int64, blobID string) (model.Item, string, error) {
	item, ok := t.items[id]
	if !ok {
		return model.Item{}, "", model.NotFound("item %d", id)
	}
	var old string
	if item.PhotoRef != nil {
		old = *item.PhotoRef
	}
	ref := blobID
	item.PhotoRef = &ref
	t.items[id] = item
	return copyItem(item), old, nil
}

// Remove deletes the item and returns it, photo reference included.
func (t *Table) Remove(id int64) (model.Item, error) {
	item, ok := t.items[id]
	if !ok {
		return model.Item{}, model.NotFound("item %d", id)
	}
	delete(t.items, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return copyItem(item), nil
}

// copyItem detaches the photo reference so callers cannot alias table state.
func copyItem(item model.Item) model.Item {
	if item.PhotoRef != nil {
		ref := *item.PhotoRef
		item.PhotoRef = &ref
	}
	return item
}
