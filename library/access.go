package library

import "fmt"

// Gate maps each role to its permitted action set. The table is static
// configuration: admins may do everything, librarians handle the catalog
// and circulation but may not delete members or touch accounts, members
// get search, borrow, return and self-service views.
type Gate struct {
	perms map[Role]map[Action]bool
}

var librarianActions = []Action{
	ActionAddItem, ActionUpdateItem, ActionRemoveItem, ActionBatchAddItems,
	ActionAddMember, ActionUpdateMember,
	ActionBorrowItem, ActionReturnItem,
	ActionSearchItems, ActionViewItems, ActionViewMembers, ActionViewBorrowed,
	ActionSaveData, ActionBackupData, ActionExportItems, ActionHealthCheck,
}

var memberActions = []Action{
	ActionSearchItems, ActionViewItems,
	ActionBorrowItem, ActionReturnItem, ActionViewBorrowed,
}

var allActions = []Action{
	ActionAddItem, ActionUpdateItem, ActionRemoveItem, ActionBatchAddItems,
	ActionAddMember, ActionUpdateMember, ActionRemoveMember,
	ActionBorrowItem, ActionReturnItem,
	ActionSearchItems, ActionViewItems, ActionViewMembers, ActionViewBorrowed,
	ActionRegisterUser, ActionResetPassword, ActionViewAudit,
	ActionSaveData, ActionRestoreData, ActionBackupData, ActionExportItems, ActionHealthCheck,
}

// NewGate builds the static permission table.
func NewGate() *Gate {
	g := &Gate{perms: make(map[Role]map[Action]bool)}
	g.grant(RoleAdmin, allActions)
	g.grant(RoleLibrarian, librarianActions)
	g.grant(RoleMember, memberActions)
	return g
}

func (g *Gate) grant(role Role, actions []Action) {
	set := make(map[Action]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	g.perms[role] = set
}

// Authorize reports whether the identity's role permits the action. A
// denial is a value, not an exception: callers check it and stop; a denied
// call performs zero side effects.
func (g *Gate) Authorize(id *Identity, action Action) error {
	if id == nil {
		return ErrNotAuthenticated
	}
	if set, ok := g.perms[id.Role]; ok && set[action] {
		return nil
	}
	return fmt.Errorf("%w: role %q may not %s", ErrDenied, id.Role, action)
}

// Allowed lists the actions a role may perform, in table order. Used by
// the CLI help output.
func (g *Gate) Allowed(role Role) []Action {
	set, ok := g.perms[role]
	if !ok {
		return nil
	}
	var out []Action
	for _, a := range allActions {
		if set[a] {
			out = append(out, a)
		}
	}
	return out
}
