package index

import (
	"slices"
	"time"

	"albumsync/internal/model"
)

// Index is the root aggregate of local sync state.
// It is not safe for concurrent use; a sync pass owns it exclusively.
type Index struct {
	LastUpdated time.Time
	Items       map[string]model.IndexedItem
	Collections map[string]*model.Collection
}

// New returns an empty index.
func New() *Index {
	return &Index{
		Items:       make(map[string]model.IndexedItem),
		Collections: make(map[string]*model.Collection),
	}
}

func (i *Index) touch(at time.Time) {
	if at.After(i.LastUpdated) {
		i.LastUpdated = at
	}
}

// Item returns the indexed item with the given id.
func (i *Index) Item(id string) (model.IndexedItem, bool) {
	it, ok := i.Items[id]
	return it, ok
}

// Has reports whether id is indexed.
func (i *Index) Has(id string) bool {
	_, ok := i.Items[id]
	return ok
}

// PutItem inserts or replaces an item.
func (i *Index) PutItem(item model.IndexedItem, at time.Time) {
	i.Items[item.ID] = item
	i.touch(at)
}

// RemoveItem deletes an item and removes it from every collection.
// It returns the removed item, if any.
func (i *Index) RemoveItem(id string, at time.Time) (model.IndexedItem, bool) {
	item, ok := i.Items[id]
	if ok {
		delete(i.Items, id)
	}
	for _, c := range i.Collections {
		if c.RemoveMember(id, at) {
			ok = true
		}
	}
	if ok {
		i.touch(at)
	}
	return item, ok
}

// ItemCount returns the number of indexed items.
func (i *Index) ItemCount() int { return len(i.Items) }

// ItemIDs returns all item ids in sorted order.
func (i *Index) ItemIDs() []string {
	ids := make([]string, 0, len(i.Items))
	for id := range i.Items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Collection returns the collection with the given id, or nil.
func (i *Index) Collection(id string) *model.Collection {
	return i.Collections[id]
}

// CollectionByName returns the first collection whose display name matches name.
// Ties are broken by id so the result is stable.
func (i *Index) CollectionByName(name string) *model.Collection {
	var found *model.Collection
	for _, c := range i.Collections {
		if c.Name != name {
			continue
		}
		if found == nil || c.ID < found.ID {
			found = c
		}
	}
	return found
}

// PutCollection inserts or replaces a collection.
func (i *Index) PutCollection(c *model.Collection, at time.Time) {
	i.Collections[c.ID] = c
	i.touch(at)
}

// RemoveCollection deletes a collection. Member items are left in place.
func (i *Index) RemoveCollection(id string, at time.Time) bool {
	if _, ok := i.Collections[id]; !ok {
		return false
	}
	delete(i.Collections, id)
	i.touch(at)
	return true
}

// AddMember adds an indexed item to a collection.
// It returns false if the collection does not exist or the item was already a member.
func (i *Index) AddMember(collectionID, itemID string, at time.Time) bool {
	c := i.Collections[collectionID]
	if c == nil || !c.AddMember(itemID, at) {
		return false
	}
	i.touch(at)
	return true
}

// RemoveMember drops an item from one collection without touching the item itself.
func (i *Index) RemoveMember(collectionID, itemID string, at time.Time) bool {
	c := i.Collections[collectionID]
	if c == nil || !c.RemoveMember(itemID, at) {
		return false
	}
	i.touch(at)
	return true
}

// Members returns the indexed items of a collection in member order.
// Member ids without an indexed item are skipped.
func (i *Index) Members(collectionID string) []model.IndexedItem {
	c := i.Collections[collectionID]
	if c == nil {
		return nil
	}
	items := make([]model.IndexedItem, 0, len(c.Members))
	for _, id := range c.Members {
		if it, ok := i.Items[id]; ok {
			items = append(items, it)
		}
	}
	return items
}

// Stats summarizes how much metadata the index holds.
type Stats struct {
	Items        int
	Collections  int
	WithMetadata int
	WithGPS      int
	WithPlace    int
}

// Stats counts items by the metadata they carry.
func (i *Index) Stats() Stats {
	s := Stats{Items: len(i.Items), Collections: len(i.Collections)}
	for _, it := range i.Items {
		if it.Metadata != nil {
			s.WithMetadata++
		}
		if it.Metadata.HasCoordinates() {
			s.WithGPS++
		}
		if it.Place != nil {
			s.WithPlace++
		}
	}
	return s
}
