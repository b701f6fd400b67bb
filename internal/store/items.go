package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/model"
)

// Inventory is the item store used by the HTTP layer. It keeps item
// metadata in a Gate-guarded document and photos in a blob store.
type Inventory struct {
	gate   *Gate
	blobs  blob.Store
	logger *zap.SugaredLogger
}

// Stats summarizes the committed inventory.
type Stats struct {
	Items  int   `json:"items"`
	NextID int64 `json:"next_id"`
}

// Open loads doc and returns an inventory whose photos live in blobs.
func Open(ctx context.Context, doc Document, blobs blob.Store, logger *zap.SugaredLogger) (*Inventory, error) {
	gate, err := OpenGate(ctx, doc)
	if err != nil {
		return nil, err
	}
	snap := gate.Snapshot()
	logger.Infow("inventory loaded", "document", describeDocument(doc), "items", snap.Len(), "next_id", snap.NextID())
	return &Inventory{gate: gate, blobs: blobs, logger: logger}, nil
}

// Mutating operations run to completion once accepted, so they detach from
// the caller's cancellation before touching the medium.

// Register creates an item. A non-empty photo is stored before the item is
// inserted and removed again if the insert does not commit.
func (inv *Inventory) Register(ctx context.Context, name, description string, photo []byte) (model.Item, error) {
	if name == "" {
		return model.Item{}, model.Invalid("name required")
	}

	ctx = context.WithoutCancel(ctx)

	var blobID string
	if len(photo) > 0 {
		id, err := inv.blobs.Put(ctx, photo)
		if err != nil {
			return model.Item{}, err
		}
		blobID = id
	}

	var created model.Item
	err := inv.gate.WithExclusiveAccess(ctx, func(t *Table) error {
		item, err := t.Insert(name, description)
		if err != nil {
			return err
		}
		if blobID != "" {
			item, _, err = t.SetPhoto(item.ID, blobID)
			if err != nil {
				return err
			}
		}
		created = item
		return nil
	})
	if err != nil {
		if blobID != "" {
			inv.discard(ctx, blobID)
		}
		return model.Item{}, err
	}

	inv.logger.Infow("item registered", "item_id", created.ID, "photo", blobID != "")
	return created, nil
}

// Get returns the item with the given id.
func (inv *Inventory) Get(_ context.Context, id int64) (model.Item, error) {
	return inv.gate.Snapshot().Get(id)
}

// List returns all items in insertion order.
func (inv *Inventory) List(_ context.Context) []model.Item {
	return inv.gate.Snapshot().List()
}

// Search returns the projected view of the item with the given id.
func (inv *Inventory) Search(_ context.Context, id int64) (model.ItemView, error) {
	item, err := inv.gate.Snapshot().Get(id)
	if err != nil {
		return model.ItemView{}, err
	}
	return item.View(), nil
}

// Update merges the supplied fields into the item.
func (inv *Inventory) Update(ctx context.Context, id int64, u model.ItemUpdate) (model.Item, error) {
	ctx = context.WithoutCancel(ctx)
	var updated model.Item
	err := inv.gate.WithExclusiveAccess(ctx, func(t *Table) error {
		item, err := t.Update(id, u)
		updated = item
		return err
	})
	if err != nil {
		return model.Item{}, err
	}
	return updated, nil
}

// Delete removes the item and then its photo blob. A failure to remove the
// blob does not fail the delete; it is returned as the mutation's warning.
func (inv *Inventory) Delete(ctx context.Context, id int64) (model.Mutation, error) {
	ctx = context.WithoutCancel(ctx)
	var removed model.Item
	err := inv.gate.WithExclusiveAccess(ctx, func(t *Table) error {
		item, err := t.Remove(id)
		removed = item
		return err
	})
	if err != nil {
		return model.Mutation{}, err
	}

	inv.logger.Infow("item deleted", "item_id", id)

	res := model.Mutation{Item: removed}
	if removed.HasPhoto() {
		res.Warning = inv.cleanup(ctx, id, *removed.PhotoRef)
	}
	return res, nil
}

// SetPhoto stores payload as the item's photo and removes the photo it
// replaces. The new blob is written first and removed again if the item
// is unknown or the document cannot be saved.
func (inv *Inventory) SetPhoto(ctx context.Context, id int64, payload []byte) (model.Mutation, error) {
	if len(payload) == 0 {
		return model.Mutation{}, model.Invalid("photo payload required")
	}
	if _, err := inv.gate.Snapshot().Get(id); err != nil {
		return model.Mutation{}, err
	}
	ctx = context.WithoutCancel(ctx)

	blobID, err := inv.blobs.Put(ctx, payload)
	if err != nil {
		return model.Mutation{}, err
	}

	var (
		updated model.Item
		oldRef  string
	)
	err = inv.gate.WithExclusiveAccess(ctx, func(t *Table) error {
		item, old, err := t.SetPhoto(id, blobID)
		updated, oldRef = item, old
		return err
	})
	if err != nil {
		inv.discard(ctx, blobID)
		return model.Mutation{}, err
	}

	inv.logger.Infow("item photo set", "item_id", id, "blob_id", blobID)

	res := model.Mutation{Item: updated}
	if oldRef != "" {
		res.Warning = inv.cleanup(ctx, id, oldRef)
	}
	return res, nil
}

// GetPhoto returns the bytes of the item's photo.
//
// The blob is read outside the gate, so a SetPhoto committing in between
// may already have removed it. A missing blob is only reported as NotFound
// once the committed item still points at it.
func (inv *Inventory) GetPhoto(ctx context.Context, id int64) ([]byte, error) {
	item, err := inv.gate.Snapshot().Get(id)
	if err != nil {
		return nil, err
	}
	for {
		if !item.HasPhoto() {
			return nil, model.NotFound("item %d has no photo", id)
		}
		ref := *item.PhotoRef

		data, err := inv.blobs.Get(ctx, ref)
		if !errors.Is(err, model.ErrNotFound) {
			return data, err
		}

		item, err = inv.gate.Snapshot().Get(id)
		if err != nil {
			return nil, err
		}
		if item.HasPhoto() && *item.PhotoRef == ref {
			return nil, model.NotFound("photo of item %d", id)
		}
	}
}

// Stats returns the item count and next id of the committed inventory.
func (inv *Inventory) Stats() Stats {
	snap := inv.gate.Snapshot()
	return Stats{Items: snap.Len(), NextID: snap.NextID()}
}

// cleanup removes a blob no item references any more.
func (inv *Inventory) cleanup(ctx context.Context, itemID int64, blobID string) *model.CleanupWarning {
	if err := inv.blobs.Delete(ctx, blobID); err != nil {
		inv.logger.Warnw("orphaned photo blob", "item_id", itemID, "blob_id", blobID, "error", err)
		return &model.CleanupWarning{ItemID: itemID, BlobID: blobID, Err: err}
	}
	return nil
}

// discard removes a blob that never got committed to an item.
func (inv *Inventory) discard(ctx context.Context, blobID string) {
	if err := inv.blobs.Delete(ctx, blobID); err != nil {
		inv.logger.Warnw("failed to discard uncommitted photo blob", "blob_id", blobID, "error", err)
	}
}
