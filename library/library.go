package library

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Library is the facade over the core: it authenticates through the
// session manager, gates every operation through the access table, applies
// the mutation, records the audit event, and asks the store to flush.
// All operations serialize behind one mutex; an operation runs to
// completion (audit write and flush included) before the next begins.
type Library struct {
	mu sync.Mutex

	cfg Config
	log *zap.SugaredLogger

	catalog    *Catalog
	roster     *Roster
	engine     *Engine
	gate       *Gate
	trail      *Trail
	identities *Identities
	sessions   *Sessions

	store *Store // nil in store-less tests; flush becomes a no-op
}

// New assembles a library from its configuration. The store may be nil,
// in which case persistence is disabled.
func New(cfg Config, log *zap.SugaredLogger, store *Store) *Library {
	if len(cfg.Genres) == 0 {
		cfg.Genres = DefaultGenres
	}
	catalog := NewCatalog(cfg.Genres)
	roster := NewRoster()
	ids := NewIdentities()
	return &Library{
		cfg:        cfg,
		log:        log,
		catalog:    catalog,
		roster:     roster,
		engine:     NewEngine(catalog, roster, cfg.BorrowLimit),
		gate:       NewGate(),
		trail:      NewTrail(),
		identities: ids,
		sessions:   NewSessions(ids, cfg.IdleTimeout),
		store:      store,
	}
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

// Login authenticates a user. A failed attempt records exactly one audit
// event under the unknown role (folded into the admin partition) with the
// attempted username and leaves any active session untouched; a success
// replaces the active session. The credential is verified before the old
// session is superseded.
func (l *Library) Login(username, password string) (*Identity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.identities.Find(username)
	if err != nil || CheckPassword(id.PasswordHash, password) != nil {
		l.trail.Record(RoleUnknown, username, "", ActionFailedLogin, "failed login attempt")
		l.flush()
		return nil, ErrInvalidCredentials
	}

	if l.sessions.Current() != nil {
		l.logoutLocked("superseded by new login")
	}
	l.sessions.establish(id)

	l.trail.Record(id.Role, id.Username, id.FullName, ActionLogin, "logged in")
	l.log.Infow("login", "user", id.Username, "role", id.Role)
	l.flush()
	return id, nil
}

// Logout ends the active session. With no session it is a no-op that
// reports ErrNoActiveSession.
func (l *Library) Logout() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessions.Current() == nil {
		return ErrNoActiveSession
	}
	l.logoutLocked("logged out")
	l.flush()
	return nil
}

// CurrentUser returns the identity holding the session, or nil.
func (l *Library) CurrentUser() *Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions.Current()
}

func (l *Library) logoutLocked(reason string) {
	id, duration, ok := l.sessions.Logout()
	if !ok {
		return
	}
	detail := fmt.Sprintf("%s (session lasted %s)", reason, duration.Round(time.Second))
	l.trail.Record(id.Role, id.Username, id.FullName, ActionLogout, detail)
	l.log.Infow("logout", "user", id.Username, "duration", duration)
}

// begin runs the common gate sequence: expire the session if it idled out,
// require an authenticated identity, authorize the action, touch the
// activity clock. A denied call has performed zero side effects when begin
// returns an error.
func (l *Library) begin(action Action) (*Identity, error) {
	if l.sessions.Expired() {
		l.logoutLocked("session expired")
		l.flush()
		return nil, fmt.Errorf("%w: session expired", ErrNotAuthenticated)
	}
	id := l.sessions.Current()
	if id == nil {
		return nil, ErrNotAuthenticated
	}
	if err := l.gate.Authorize(id, action); err != nil {
		l.log.Warnw("denied", "user", id.Username, "role", id.Role, "action", action)
		return nil, err
	}
	l.sessions.Touch()
	return id, nil
}

// commit records the audit event for a successful mutation and flushes.
func (l *Library) commit(id *Identity, action Action, detail string) {
	l.trail.Record(id.Role, id.Username, id.FullName, action, detail)
	l.flush()
}

// record is commit without the flush, used by successful reads.
func (l *Library) record(id *Identity, action Action, detail string) {
	l.trail.Record(id.Role, id.Username, id.FullName, action, detail)
}

// flush writes the full current state through to the store. A failed save
// is logged and the in-memory state stays authoritative; the action that
// triggered the flush is never undone.
func (l *Library) flush() {
	if l.store == nil {
		return
	}
	if err := l.store.Save(l.snapshotLocked()); err != nil {
		l.log.Warnw("snapshot save failed, continuing degraded", "error", err)
	}
}

func (l *Library) snapshotLocked() *Snapshot {
	audit := make(map[string][]AuditEvent, len(Partitions))
	for _, p := range Partitions {
		audit[p] = l.trail.Partition(p)
	}
	return &Snapshot{
		Items:      l.catalog.Items(),
		Members:    l.roster.Members(),
		Identities: l.identities.All(),
		Audit:      audit,
		LastSave:   time.Now(),
	}
}

// ---------------------------------------------------------------------------
// Catalog operations
// ---------------------------------------------------------------------------

// AddItem registers a new catalog entry.
func (l *Library) AddItem(id, title, author, genre string, copies int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionAddItem)
	if err != nil {
		return err
	}
	if err := l.catalog.AddItem(id, title, author, genre, copies); err != nil {
		return err
	}
	l.commit(actor, ActionAddItem, fmt.Sprintf("added item %s (%q, %d copies)", id, title, copies))
	return nil
}

// ItemInput is one row of a batch addition.
type ItemInput struct {
	ID     string
	Title  string
	Author string
	Genre  string
	Copies int
}

// AddItems adds a batch of items, skipping rows that fail, and returns the
// number added.
func (l *Library) AddItems(items []ItemInput) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionBatchAddItems)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, in := range items {
		if err := l.catalog.AddItem(in.ID, in.Title, in.Author, in.Genre, in.Copies); err != nil {
			l.log.Warnw("batch add skipped item", "id", in.ID, "error", err)
			continue
		}
		added++
	}
	l.commit(actor, ActionBatchAddItems, fmt.Sprintf("added %d of %d items", added, len(items)))
	return added, nil
}

// UpdateItem applies a partial update to a catalog entry.
func (l *Library) UpdateItem(id string, upd ItemUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionUpdateItem)
	if err != nil {
		return err
	}
	if err := l.catalog.UpdateItem(id, upd); err != nil {
		return err
	}
	l.commit(actor, ActionUpdateItem, fmt.Sprintf("updated item %s", id))
	return nil
}

// RemoveItem deletes a catalog entry unless a member holds it.
func (l *Library) RemoveItem(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionRemoveItem)
	if err != nil {
		return err
	}
	if err := l.catalog.RemoveItem(id, l.roster); err != nil {
		return err
	}
	l.commit(actor, ActionRemoveItem, fmt.Sprintf("removed item %s", id))
	return nil
}

// FindItem returns one catalog entry.
func (l *Library) FindItem(id string) (*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.begin(ActionViewItems); err != nil {
		return nil, err
	}
	return l.catalog.Find(id)
}

// Items lists the catalog in insertion order.
func (l *Library) Items() ([]*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionViewItems)
	if err != nil {
		return nil, err
	}
	items := l.catalog.Items()
	l.record(actor, ActionViewItems, fmt.Sprintf("listed %d items", len(items)))
	return items, nil
}

// SearchItems finds items by case-insensitive substring on title or author.
func (l *Library) SearchItems(term, field string) ([]*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionSearchItems)
	if err != nil {
		return nil, err
	}
	items, err := l.catalog.Search(term, field)
	if err != nil {
		return nil, err
	}
	l.record(actor, ActionSearchItems, fmt.Sprintf("searched %s for %q, %d hit(s)", field, term, len(items)))
	return items, nil
}

// ---------------------------------------------------------------------------
// Roster operations
// ---------------------------------------------------------------------------

// AddMember registers a new member.
func (l *Library) AddMember(id, name, email, phone string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionAddMember)
	if err != nil {
		return err
	}
	if err := l.roster.AddMember(id, name, email, phone); err != nil {
		return err
	}
	l.commit(actor, ActionAddMember, fmt.Sprintf("added member %s (%q)", id, name))
	return nil
}

// UpdateMember applies a partial update to a member record.
func (l *Library) UpdateMember(id string, upd MemberUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionUpdateMember)
	if err != nil {
		return err
	}
	if err := l.roster.UpdateMember(id, upd); err != nil {
		return err
	}
	l.commit(actor, ActionUpdateMember, fmt.Sprintf("updated member %s", id))
	return nil
}

// RemoveMember deletes a member with an empty borrowed set.
func (l *Library) RemoveMember(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionRemoveMember)
	if err != nil {
		return err
	}
	if err := l.roster.RemoveMember(id); err != nil {
		return err
	}
	l.commit(actor, ActionRemoveMember, fmt.Sprintf("removed member %s", id))
	return nil
}

// FindMember returns one member record.
func (l *Library) FindMember(id string) (*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.begin(ActionViewMembers); err != nil {
		return nil, err
	}
	return l.roster.Find(id)
}

// Members lists the roster in registration order.
func (l *Library) Members() ([]*Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionViewMembers)
	if err != nil {
		return nil, err
	}
	members := l.roster.Members()
	l.record(actor, ActionViewMembers, fmt.Sprintf("listed %d members", len(members)))
	return members, nil
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// Borrow checks out one copy of an item to a member.
func (l *Library) Borrow(itemID, memberID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionBorrowItem)
	if err != nil {
		return err
	}
	if err := l.selfService(actor, memberID); err != nil {
		return err
	}
	if err := l.engine.Borrow(itemID, memberID); err != nil {
		return err
	}
	l.commit(actor, ActionBorrowItem, fmt.Sprintf("member %s borrowed item %s", memberID, itemID))
	return nil
}

// Return takes back one copy of an item from a member.
func (l *Library) Return(itemID, memberID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionReturnItem)
	if err != nil {
		return err
	}
	if err := l.selfService(actor, memberID); err != nil {
		return err
	}
	if err := l.engine.Return(itemID, memberID); err != nil {
		return err
	}
	l.commit(actor, ActionReturnItem, fmt.Sprintf("member %s returned item %s", memberID, itemID))
	return nil
}

// BorrowedItems lists the items a member currently holds.
func (l *Library) BorrowedItems(memberID string) ([]*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionViewBorrowed)
	if err != nil {
		return nil, err
	}
	if err := l.selfService(actor, memberID); err != nil {
		return nil, err
	}
	return l.engine.BorrowedItems(memberID)
}

// selfService restricts member-role actors to their own member record.
func (l *Library) selfService(actor *Identity, memberID string) error {
	if actor.Role == RoleMember && actor.MemberID != memberID {
		return fmt.Errorf("%w: members may only act on their own record", ErrDenied)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// RegisterUser creates an account with the given role.
func (l *Library) RegisterUser(username, password string, role Role, memberID, fullName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionRegisterUser)
	if err != nil {
		return err
	}
	if err := l.identities.Register(username, password, role, memberID, fullName); err != nil {
		return err
	}
	l.commit(actor, ActionRegisterUser, fmt.Sprintf("registered user %s with role %s", username, role))
	return nil
}

// SeedIdentity registers an account without a session. This is the
// provisioning path used by the seed tool before any administrator exists;
// it is not reachable from the CLI surface.
func (l *Library) SeedIdentity(username, password string, role Role, memberID, fullName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identities.Register(username, password, role, memberID, fullName)
}

// ResetPassword replaces a user's credential.
func (l *Library) ResetPassword(username, newPassword string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionResetPassword)
	if err != nil {
		return err
	}
	if err := l.identities.SetPassword(username, newPassword); err != nil {
		return err
	}
	l.commit(actor, ActionResetPassword, fmt.Sprintf("reset password for %s", username))
	return nil
}

// ---------------------------------------------------------------------------
// Audit queries
// ---------------------------------------------------------------------------

// AuditByRole returns the most recent events for a role's partition,
// newest first.
func (l *Library) AuditByRole(role Role, limit int) ([]AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.begin(ActionViewAudit); err != nil {
		return nil, err
	}
	return l.trail.QueryByRole(role, limit), nil
}

// AuditByUser returns every event for a username across partitions,
// newest first.
func (l *Library) AuditByUser(username string) ([]AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.begin(ActionViewAudit); err != nil {
		return nil, err
	}
	return l.trail.QueryByUser(username), nil
}

// ---------------------------------------------------------------------------
// Persistence and boundary surfaces
// ---------------------------------------------------------------------------

// Save flushes the full state to the store explicitly.
func (l *Library) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionSaveData)
	if err != nil {
		return err
	}
	if l.store == nil {
		return fmt.Errorf("no store configured")
	}
	// Recorded first so the event is part of the snapshot it describes.
	l.record(actor, ActionSaveData, "saved snapshot")
	if err := l.store.Save(l.snapshotLocked()); err != nil {
		l.log.Warnw("explicit save failed", "error", err)
		return err
	}
	return nil
}

// Restore loads the stored snapshot and merges it additively: entries whose
// key already exists in memory are skipped and counted, audit partitions
// are concatenated. Returns the number of skipped records.
func (l *Library) Restore() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionRestoreData)
	if err != nil {
		return 0, err
	}
	skipped, err := l.restoreLocked()
	if err != nil {
		return 0, err
	}
	l.record(actor, ActionRestoreData, fmt.Sprintf("restored snapshot, %d duplicate(s) skipped", skipped))
	return skipped, nil
}

// Bootstrap performs the unauthenticated startup load. Call once, before
// any session exists.
func (l *Library) Bootstrap() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.restoreLocked()
}

func (l *Library) restoreLocked() (int, error) {
	if l.store == nil {
		return 0, fmt.Errorf("no store configured")
	}
	snap, err := l.store.Load()
	if err != nil {
		l.log.Warnw("snapshot load failed, starting empty", "error", err)
		return 0, err
	}
	skipped := 0
	for _, item := range snap.Items {
		if !l.catalog.insert(item) {
			skipped++
		}
	}
	for _, m := range snap.Members {
		if !l.roster.insert(m) {
			skipped++
		}
	}
	for _, id := range snap.Identities {
		if !l.identities.insert(id) {
			skipped++
		}
	}
	for _, p := range Partitions {
		l.trail.concat(p, snap.Audit[p])
	}
	if skipped > 0 {
		l.log.Warnw("snapshot merge skipped duplicate keys", "skipped", skipped)
	}
	return skipped, nil
}

// Backup writes a timestamped copy of the snapshot file and returns its
// path.
func (l *Library) Backup() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionBackupData)
	if err != nil {
		return "", err
	}
	if l.store == nil {
		return "", fmt.Errorf("no store configured")
	}
	path, err := l.store.Backup(time.Now())
	if err != nil {
		l.log.Warnw("backup failed", "error", err)
		return "", err
	}
	l.record(actor, ActionBackupData, fmt.Sprintf("backup written to %s", path))
	return path, nil
}

// ExportItems writes the catalog as CSV to w.
func (l *Library) ExportItems(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionExportItems)
	if err != nil {
		return err
	}
	if err := WriteItemsCSV(w, l.catalog.Items()); err != nil {
		return err
	}
	l.record(actor, ActionExportItems, fmt.Sprintf("exported %d items", l.catalog.Len()))
	return nil
}

// HealthCheck scans for integrity findings without mutating state.
func (l *Library) HealthCheck() ([]Finding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	actor, err := l.begin(ActionHealthCheck)
	if err != nil {
		return nil, err
	}
	findings := HealthCheck(l.catalog, l.roster)
	l.record(actor, ActionHealthCheck, fmt.Sprintf("%d finding(s)", len(findings)))
	return findings, nil
}

// AllowedActions lists what the given role may do.
func (l *Library) AllowedActions(role Role) []Action {
	return l.gate.Allowed(role)
}
