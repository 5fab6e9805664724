package library

import "time"

// Role tags carried by identities. The set is closed; anything else is
// treated as unknown and folded into the admin audit partition.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
	RoleUnknown   Role = "unknown"
)

// Action tags name every gated operation. The access gate keys its
// permission table on these, and the audit trail records them verbatim.
type Action string

const (
	ActionAddItem       Action = "add_item"
	ActionUpdateItem    Action = "update_item"
	ActionRemoveItem    Action = "remove_item"
	ActionBatchAddItems Action = "batch_add_items"

	ActionAddMember    Action = "add_member"
	ActionUpdateMember Action = "update_member"
	ActionRemoveMember Action = "remove_member"

	ActionBorrowItem Action = "borrow_item"
	ActionReturnItem Action = "return_item"

	ActionSearchItems  Action = "search_items"
	ActionViewItems    Action = "view_items"
	ActionViewMembers  Action = "view_members"
	ActionViewBorrowed Action = "view_borrowed"

	ActionRegisterUser  Action = "register_user"
	ActionResetPassword Action = "reset_password"
	ActionViewAudit     Action = "view_audit"

	ActionSaveData    Action = "save_data"
	ActionRestoreData Action = "restore_data"
	ActionBackupData  Action = "backup_data"
	ActionExportItems Action = "export_items"
	ActionHealthCheck Action = "health_check"
)

// Session lifecycle audit tags. These are recorded by the login/logout
// paths rather than gated through the permission table.
const (
	ActionLogin       Action = "login"
	ActionLogout      Action = "logout"
	ActionFailedLogin Action = "failed_login"
)

// Item is one catalog entry. TotalCopies is the number of copies currently
// on the shelf; it is decremented on borrow and restored on return.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       string    `json:"genre"`
	TotalCopies int       `json:"total_copies"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is a registered borrower. Borrowed holds item IDs in the order
// they were borrowed and never contains duplicates.
type Member struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Borrowed     []string  `json:"borrowed"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Identity binds a username to a role and an opaque credential hash.
// MemberID is empty for staff accounts.
type Identity struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never serialized to callers
	Role         Role   `json:"role"`
	MemberID     string `json:"member_id,omitempty"`
	FullName     string `json:"full_name"`
}

// AuditEvent is one append-only record of a gated action or a session
// lifecycle event. Events are partitioned by the acting role and never
// mutated or reordered after insertion.
type AuditEvent struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	FullName string    `json:"full_name,omitempty"`
	Action   Action    `json:"action"`
	Detail   string    `json:"detail,omitempty"`
}

// ItemUpdate carries the optional fields of an item update; nil fields are
// left unchanged.
type ItemUpdate struct {
	Title       *string
	Author      *string
	Genre       *string
	TotalCopies *int
}

// MemberUpdate carries the optional fields of a member update.
type MemberUpdate struct {
	Name  *string
	Email *string
	Phone *string
}
