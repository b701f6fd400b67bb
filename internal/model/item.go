package model

// Item is one inventory record. PhotoRef holds the blob id of the item's
// photo, or nil when the item has none.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PhotoRef    *string `json:"photo"`
}

// HasPhoto reports whether the item references a photo blob.
func (i Item) HasPhoto() bool {
	return i.PhotoRef != nil && *i.PhotoRef != ""
}

// ItemUpdate carries the fields of a partial update. A nil field was not
// supplied. A supplied but empty field is ignored as well, so neither the
// name nor the description can be cleared through an update.
type ItemUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ItemView is the projection returned by a search.
type ItemView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	HasPhoto    bool    `json:"has_photo"`
	PhotoRef    *string `json:"photo"`
}

// View projects the item into its search view.
func (i Item) View() ItemView {
	return ItemView{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		HasPhoto:    i.HasPhoto(),
		PhotoRef:    i.PhotoRef,
	}
}

// Document is the durable form of the whole inventory.
type Document struct {
	NextID int64  `json:"next_id"`
	Items  []Item `json:"items"`
}

// Mutation is the outcome of an operation that may leave an orphaned blob
// behind. Warning is nil when cleanup succeeded or was not needed.
type Mutation struct {
	Item    Item            `json:"item"`
	Warning *CleanupWarning `json:"warning,omitempty"`
}
