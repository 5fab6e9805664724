package library

import (
	"fmt"
	"strings"
	"time"
)

// Roster owns the set of registered members in registration order. Email
// addresses are validated for syntax only; uniqueness is not enforced (the
// member ID is the key).
type Roster struct {
	members map[string]*Member
	order   []string
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{members: make(map[string]*Member)}
}

// AddMember registers a new member. Contact syntax is checked; the phone
// is optional.
func (r *Roster) AddMember(id, name, email, phone string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if _, ok := r.members[id]; ok {
		return fmt.Errorf("%w: member %s", ErrDuplicateID, id)
	}
	if !ValidEmail(email) {
		return fmt.Errorf("%w: email %q", ErrInvalidContact, email)
	}
	if phone != "" && !ValidPhone(phone) {
		return fmt.Errorf("%w: phone %q", ErrInvalidContact, phone)
	}
	r.members[id] = &Member{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Borrowed:     []string{},
		RegisteredAt: time.Now(),
	}
	r.order = append(r.order, id)
	return nil
}

// UpdateMember applies the non-nil fields of upd without touching the
// borrowed set.
func (r *Roster) UpdateMember(id string, upd MemberUpdate) error {
	m, ok := r.members[id]
	if !ok {
		return fmt.Errorf("%w: member %s", ErrMemberNotFound, id)
	}
	if upd.Email != nil && !ValidEmail(*upd.Email) {
		return fmt.Errorf("%w: email %q", ErrInvalidContact, *upd.Email)
	}
	if upd.Phone != nil && *upd.Phone != "" && !ValidPhone(*upd.Phone) {
		return fmt.Errorf("%w: phone %q", ErrInvalidContact, *upd.Phone)
	}
	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.Email != nil {
		m.Email = *upd.Email
	}
	if upd.Phone != nil {
		m.Phone = *upd.Phone
	}
	return nil
}

// RemoveMember deletes a member unless their borrowed set is non-empty.
// There is no cascading forced return.
func (r *Roster) RemoveMember(id string) error {
	m, ok := r.members[id]
	if !ok {
		return fmt.Errorf("%w: member %s", ErrMemberNotFound, id)
	}
	if len(m.Borrowed) > 0 {
		return fmt.Errorf("%w: member %s holds %d item(s)", ErrHasBorrowedItems, id, len(m.Borrowed))
	}
	delete(r.members, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find returns the member with the given identifier.
func (r *Roster) Find(id string) (*Member, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", ErrMemberNotFound, id)
	}
	return m, nil
}

// Members returns all members in registration order.
func (r *Roster) Members() []*Member {
	out := make([]*Member, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id])
	}
	return out
}

// Len reports the number of registered members.
func (r *Roster) Len() int { return len(r.members) }

// anyHolds reports whether any member currently holds the given item.
func (r *Roster) anyHolds(itemID string) bool {
	for _, m := range r.members {
		for _, id := range m.Borrowed {
			if id == itemID {
				return true
			}
		}
	}
	return false
}

// insert places an already-built member into the roster, used when loading
// a snapshot. Returns false if the identifier is taken.
func (r *Roster) insert(m *Member) bool {
	if _, ok := r.members[m.ID]; ok {
		return false
	}
	if m.Borrowed == nil {
		m.Borrowed = []string{}
	}
	r.members[m.ID] = m
	r.order = append(r.order, m.ID)
	return true
}
