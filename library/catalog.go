package library

import (
	"fmt"
	"strings"
	"time"
)

// Catalog owns the set of circulating items, keyed by identifier. Insertion
// order is preserved so listings and search results are stable.
type Catalog struct {
	items  map[string]*Item
	order  []string
	genres []string
}

// NewCatalog creates an empty catalog with the given genre enumeration.
func NewCatalog(genres []string) *Catalog {
	return &Catalog{
		items:  make(map[string]*Item),
		genres: genres,
	}
}

// AddItem registers a new item. Creation requires at least one copy and a
// genre from the configured set; identifiers are unique for the catalog's
// lifetime unless the item is explicitly removed.
func (c *Catalog) AddItem(id, title, author, genre string, copies int) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if _, ok := c.items[id]; ok {
		return fmt.Errorf("%w: item %s", ErrDuplicateID, id)
	}
	if !ValidGenre(genre, c.genres) {
		return fmt.Errorf("%w: %q", ErrInvalidGenre, genre)
	}
	if copies < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCopyCount, copies)
	}
	c.items[id] = &Item{
		ID:          id,
		Title:       title,
		Author:      author,
		Genre:       genre,
		TotalCopies: copies,
		CreatedAt:   time.Now(),
	}
	c.order = append(c.order, id)
	return nil
}

// UpdateItem applies the non-nil fields of upd. Validation failures leave
// the record untouched; copy counts may drop to zero here (administrative
// adjustment) but never below.
func (c *Catalog) UpdateItem(id string, upd ItemUpdate) error {
	item, ok := c.items[id]
	if !ok {
		return fmt.Errorf("%w: item %s", ErrItemNotFound, id)
	}
	if upd.Genre != nil && !ValidGenre(*upd.Genre, c.genres) {
		return fmt.Errorf("%w: %q", ErrInvalidGenre, *upd.Genre)
	}
	if upd.TotalCopies != nil && *upd.TotalCopies < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCopyCount, *upd.TotalCopies)
	}
	if upd.Title != nil {
		item.Title = *upd.Title
	}
	if upd.Author != nil {
		item.Author = *upd.Author
	}
	if upd.Genre != nil {
		item.Genre = *upd.Genre
	}
	if upd.TotalCopies != nil {
		item.TotalCopies = *upd.TotalCopies
	}
	return nil
}

// RemoveItem deletes an item unless any member currently holds it. The
// borrowed-set check and the deletion are a single step from the caller's
// perspective; a failed check leaves no partial state.
func (c *Catalog) RemoveItem(id string, roster *Roster) error {
	if _, ok := c.items[id]; !ok {
		return fmt.Errorf("%w: item %s", ErrItemNotFound, id)
	}
	if roster.anyHolds(id) {
		return fmt.Errorf("%w: item %s", ErrItemCheckedOut, id)
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find returns the item with the given identifier.
func (c *Catalog) Find(id string) (*Item, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", ErrItemNotFound, id)
	}
	return item, nil
}

// Search returns items whose title or author contains term,
// case-insensitively, in catalog insertion order. An unknown field yields
// an empty result and an error.
func (c *Catalog) Search(term, field string) ([]*Item, error) {
	if field != "title" && field != "author" {
		return nil, fmt.Errorf("%w: %q (use title or author)", ErrUnknownSearchField, field)
	}
	needle := strings.ToLower(term)
	var matches []*Item
	for _, id := range c.order {
		item := c.items[id]
		var hay string
		if field == "title" {
			hay = item.Title
		} else {
			hay = item.Author
		}
		if strings.Contains(strings.ToLower(hay), needle) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

// Items returns all items in insertion order.
func (c *Catalog) Items() []*Item {
	out := make([]*Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Len reports the number of items in the catalog.
func (c *Catalog) Len() int { return len(c.items) }

// insert places an already-built item into the catalog, used when loading
// a snapshot. Returns false if the identifier is taken.
func (c *Catalog) insert(item *Item) bool {
	if _, ok := c.items[item.ID]; ok {
		return false
	}
	c.items[item.ID] = item
	c.order = append(c.order, item.ID)
	return true
}
