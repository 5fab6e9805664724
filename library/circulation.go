package library

import "fmt"

// Engine drives the borrow/return state machine across the catalog and the
// roster. It holds no records of its own; on success the copy-count
// decrement and the borrowed-set append happen together or not at all.
type Engine struct {
	catalog *Catalog
	roster  *Roster
	limit   int
}

// NewEngine wires a circulation engine over the given stores with the
// configured borrowing limit.
func NewEngine(catalog *Catalog, roster *Roster, limit int) *Engine {
	if limit < 1 {
		limit = DefaultBorrowLimit
	}
	return &Engine{catalog: catalog, roster: roster, limit: limit}
}

// Limit returns the configured borrowing limit.
func (e *Engine) Limit() int { return e.limit }

// Borrow checks, in order: item exists, member exists, copies available,
// member does not already hold the item, member is under the limit. The
// order is load-bearing: earlier failures mask later ones in reporting
// (a missing item is always ErrItemNotFound, never ErrNoCopiesAvailable).
func (e *Engine) Borrow(itemID, memberID string) error {
	item, ok := e.catalog.items[itemID]
	if !ok {
		return fmt.Errorf("%w: item %s", ErrItemNotFound, itemID)
	}
	member, ok := e.roster.members[memberID]
	if !ok {
		return fmt.Errorf("%w: member %s", ErrMemberNotFound, memberID)
	}
	if item.TotalCopies <= 0 {
		return fmt.Errorf("%w: %q", ErrNoCopiesAvailable, item.Title)
	}
	for _, id := range member.Borrowed {
		if id == itemID {
			return fmt.Errorf("%w: item %s", ErrAlreadyBorrowed, itemID)
		}
	}
	if len(member.Borrowed) >= e.limit {
		return fmt.Errorf("%w: limit is %d", ErrBorrowLimit, e.limit)
	}

	item.TotalCopies--
	member.Borrowed = append(member.Borrowed, itemID)
	return nil
}

// Return reverses a borrow: the copy count is restored and the item leaves
// the member's borrowed set, together or not at all.
func (e *Engine) Return(itemID, memberID string) error {
	item, ok := e.catalog.items[itemID]
	if !ok {
		return fmt.Errorf("%w: item %s", ErrItemNotFound, itemID)
	}
	member, ok := e.roster.members[memberID]
	if !ok {
		return fmt.Errorf("%w: member %s", ErrMemberNotFound, memberID)
	}
	idx := -1
	for i, id := range member.Borrowed {
		if id == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: item %s, member %s", ErrNotBorrowed, itemID, memberID)
	}

	item.TotalCopies++
	member.Borrowed = append(member.Borrowed[:idx], member.Borrowed[idx+1:]...)
	return nil
}

// BorrowedItems resolves a member's borrowed IDs to item records in borrow
// order. IDs with no matching catalog entry are skipped; the health check
// reports those.
func (e *Engine) BorrowedItems(memberID string) ([]*Item, error) {
	member, ok := e.roster.members[memberID]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", ErrMemberNotFound, memberID)
	}
	var out []*Item
	for _, id := range member.Borrowed {
		if item, ok := e.catalog.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}
