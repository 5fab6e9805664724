package library

import (
	"errors"
	"testing"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(DefaultGenres)
}

func TestCatalogAddAndFind(t *testing.T) {
	c := newCatalog(t)
	if err := c.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	item, err := c.Find("B1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if item.Title != "Dune" || item.TotalCopies != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if c.Len() != 1 {
		t.Fatalf("want 1 item, got %d", c.Len())
	}
}

func TestCatalogAddRejectsBadInput(t *testing.T) {
	c := newCatalog(t)

	if err := c.AddItem("", "T", "A", "Fiction", 1); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("empty id: want ErrInvalidID, got %v", err)
	}
	if err := c.AddItem("B1", "T", "A", "Cooking", 1); !errors.Is(err, ErrInvalidGenre) {
		t.Fatalf("bad genre: want ErrInvalidGenre, got %v", err)
	}
	if err := c.AddItem("B1", "T", "A", "Fiction", 0); !errors.Is(err, ErrInvalidCopyCount) {
		t.Fatalf("zero copies: want ErrInvalidCopyCount, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("rejected adds must leave catalog empty, got %d items", c.Len())
	}

	if err := c.AddItem("B1", "T", "A", "Fiction", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem("B1", "Other", "A", "Fiction", 1); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate id: want ErrDuplicateID, got %v", err)
	}
}

func TestCatalogUpdateValidatesBeforeMutating(t *testing.T) {
	c := newCatalog(t)
	if err := c.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	title := "Dune Messiah"
	genre := "Cooking"
	err := c.UpdateItem("B1", ItemUpdate{Title: &title, Genre: &genre})
	if !errors.Is(err, ErrInvalidGenre) {
		t.Fatalf("want ErrInvalidGenre, got %v", err)
	}
	item, _ := c.Find("B1")
	if item.Title != "Dune" {
		t.Fatalf("failed update must not change title, got %q", item.Title)
	}

	// Zero copies is a legal administrative adjustment on update.
	zero := 0
	if err := c.UpdateItem("B1", ItemUpdate{TotalCopies: &zero}); err != nil {
		t.Fatalf("update to zero copies: %v", err)
	}
	neg := -1
	if err := c.UpdateItem("B1", ItemUpdate{TotalCopies: &neg}); !errors.Is(err, ErrInvalidCopyCount) {
		t.Fatalf("negative copies: want ErrInvalidCopyCount, got %v", err)
	}

	if err := c.UpdateItem("missing", ItemUpdate{Title: &title}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}

func TestCatalogRemoveBlockedWhileHeld(t *testing.T) {
	c := newCatalog(t)
	r := NewRoster()
	if err := c.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := r.AddMember("M1", "Alice", "alice@example.com", ""); err != nil {
		t.Fatalf("add member: %v", err)
	}
	eng := NewEngine(c, r, 3)
	if err := eng.Borrow("B1", "M1"); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	if err := c.RemoveItem("B1", r); !errors.Is(err, ErrItemCheckedOut) {
		t.Fatalf("want ErrItemCheckedOut, got %v", err)
	}
	if _, err := c.Find("B1"); err != nil {
		t.Fatalf("blocked removal must not delete: %v", err)
	}

	if err := eng.Return("B1", "M1"); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := c.RemoveItem("B1", r); err != nil {
		t.Fatalf("remove after return: %v", err)
	}
	if _, err := c.Find("B1"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound after removal, got %v", err)
	}

	// The identifier is reusable once the item is gone.
	if err := c.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 1); err != nil {
		t.Fatalf("re-add after removal: %v", err)
	}
}

func TestCatalogSearch(t *testing.T) {
	c := newCatalog(t)
	c.AddItem("B1", "The Left Hand of Darkness", "Ursula K. Le Guin", "Sci-Fi", 1)
	c.AddItem("B2", "A Wizard of Earthsea", "Ursula K. Le Guin", "Fiction", 1)
	c.AddItem("B3", "Dune", "Frank Herbert", "Sci-Fi", 1)

	hits, err := c.Search("le guin", "author")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	// Results come back in catalog insertion order.
	if hits[0].ID != "B1" || hits[1].ID != "B2" {
		t.Fatalf("unexpected order: %s, %s", hits[0].ID, hits[1].ID)
	}

	hits, err = c.Search("DUNE", "title")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "B3" {
		t.Fatalf("case-insensitive title search failed: %+v", hits)
	}

	hits, err = c.Search("nothing-matches", "title")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("want empty result, got %d", len(hits))
	}

	if _, err := c.Search("x", "genre"); !errors.Is(err, ErrUnknownSearchField) {
		t.Fatalf("want ErrUnknownSearchField, got %v", err)
	}
}
