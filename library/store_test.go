package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Items: []*Item{
			{ID: "B1", Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi", TotalCopies: 2, CreatedAt: now},
			{ID: "B2", Title: "1984", Author: "George Orwell", Genre: "Fiction", TotalCopies: 4, CreatedAt: now},
		},
		Members: []*Member{
			{ID: "M1", Name: "Alice", Email: "alice@example.com", Phone: "555-0101", Borrowed: []string{"B1"}, RegisteredAt: now},
			{ID: "M2", Name: "Ben", Email: "ben@example.com", Borrowed: []string{}, RegisteredAt: now},
		},
		Identities: []*Identity{
			{Username: "admin", PasswordHash: "$2a$10$fakehashfakehashfakehash", Role: RoleAdmin, FullName: "Root"},
			{Username: "alice", PasswordHash: "$2a$10$otherhashotherhashother", Role: RoleMember, MemberID: "M1"},
		},
		Audit: map[string][]AuditEvent{
			PartitionAdmins: {
				{ID: "ev1", Time: now, Username: "admin", Role: RoleAdmin, Action: ActionAddItem, Detail: "added item B1"},
			},
			PartitionMembers: {
				{ID: "ev2", Time: now, Username: "alice", Role: RoleMember, Action: ActionBorrowItem, Detail: "borrowed B1"},
			},
		},
		LastSave: now,
	}
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	s := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(sampleSnapshot(now)))

	got, err := s.Load()
	require.NoError(t, err)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "B1", got.Items[0].ID)
	assert.Equal(t, "Dune", got.Items[0].Title)
	assert.Equal(t, 2, got.Items[0].TotalCopies)
	assert.Equal(t, "B2", got.Items[1].ID)

	require.Len(t, got.Members, 2)
	assert.Equal(t, []string{"B1"}, got.Members[0].Borrowed)
	assert.Equal(t, []string{}, got.Members[1].Borrowed)
	assert.Equal(t, "555-0101", got.Members[0].Phone)

	require.Len(t, got.Identities, 2)
	assert.Equal(t, RoleAdmin, got.Identities[0].Role)
	assert.Equal(t, "M1", got.Identities[1].MemberID)

	require.Len(t, got.Audit[PartitionAdmins], 1)
	require.Len(t, got.Audit[PartitionMembers], 1)
	assert.Empty(t, got.Audit[PartitionLibrarians])
	assert.Equal(t, ActionBorrowItem, got.Audit[PartitionMembers][0].Action)

	assert.True(t, got.LastSave.Equal(now), "last save stamp: want %s, got %s", now, got.LastSave)
}

// A save is a full overwrite: records absent from the new snapshot are gone.
func TestStoreSaveOverwrites(t *testing.T) {
	s := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(sampleSnapshot(now)))

	smaller := &Snapshot{
		Items:    []*Item{{ID: "B9", Title: "New", Author: "A", Genre: "Fiction", TotalCopies: 1, CreatedAt: now}},
		Audit:    map[string][]AuditEvent{},
		LastSave: now.Add(time.Hour),
	}
	require.NoError(t, s.Save(smaller))

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "B9", got.Items[0].ID)
	assert.Empty(t, got.Members)
	assert.Empty(t, got.Identities)
	assert.Empty(t, got.Audit[PartitionAdmins])
}

func TestStoreLoadEmpty(t *testing.T) {
	s := tempStore(t)
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Empty(t, got.Members)
	assert.Empty(t, got.Identities)
	for _, p := range Partitions {
		assert.Empty(t, got.Audit[p])
	}
}

func TestStoreBackup(t *testing.T) {
	s := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(sampleSnapshot(now)))

	path, err := s.Backup(now)
	require.NoError(t, err)
	assert.Equal(t, "backup_library_20260301_120000.db", filepath.Base(path))
	assert.True(t, strings.HasPrefix(path, filepath.Dir(s.Path())))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// The copy is a loadable snapshot in its own right.
	bak, err := OpenStore(path)
	require.NoError(t, err)
	defer bak.Close()
	got, err := bak.Load()
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

// Bootstrapping twice from the same snapshot skips every duplicate key and
// concatenates the audit partitions.
func TestBootstrapMergeSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(sampleSnapshot(now)))

	l := New(Config{}, zap.NewNop().Sugar(), s)
	skipped, err := l.Bootstrap()
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 2, l.catalog.Len())
	assert.Equal(t, 2, l.roster.Len())
	assert.Equal(t, 2, l.trail.Len())

	// Second load: 2 items + 2 members + 2 identities already present.
	skipped, err = l.Bootstrap()
	require.NoError(t, err)
	assert.Equal(t, 6, skipped)
	assert.Equal(t, 2, l.catalog.Len())
	assert.Equal(t, 4, l.trail.Len(), "audit partitions concatenate on merge")
}

// An explicit save's own audit event is part of the snapshot it writes,
// not deferred to the next flush.
func TestExplicitSaveAuditsItself(t *testing.T) {
	s := tempStore(t)
	l := New(Config{}, zap.NewNop().Sugar(), s)
	require.NoError(t, l.SeedIdentity("admin", "adminpw", RoleAdmin, "", "Root"))
	loginAs(t, l, "admin", "adminpw")
	require.NoError(t, l.Save())

	snap, err := s.Load()
	require.NoError(t, err)
	var sawSave bool
	for _, ev := range snap.Audit[PartitionAdmins] {
		if ev.Action == ActionSaveData {
			sawSave = true
		}
	}
	assert.True(t, sawSave, "stored snapshot must contain the save_data event")
}

// When the snapshot cannot be read at startup the library carries on with
// in-memory state authoritative.
func TestBootstrapFailureLeavesLibraryUsable(t *testing.T) {
	s := tempStore(t)
	_, err := s.db.Exec("DROP TABLE items")
	require.NoError(t, err)

	l := New(Config{}, zap.NewNop().Sugar(), s)
	require.NoError(t, l.SeedIdentity("admin", "adminpw", RoleAdmin, "", "Root"))
	_, err = l.Bootstrap()
	require.Error(t, err)

	loginAs(t, l, "admin", "adminpw")
	require.NoError(t, l.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 1))
	item, err := l.FindItem("B1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", item.Title)
}

// State written through the facade survives a process restart.
func TestFacadePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := OpenStore(path)
	require.NoError(t, err)
	l := New(Config{}, zap.NewNop().Sugar(), s)
	require.NoError(t, l.SeedIdentity("admin", "adminpw", RoleAdmin, "", "Root"))
	loginAs(t, l, "admin", "adminpw")
	require.NoError(t, l.AddItem("B1", "Dune", "Frank Herbert", "Sci-Fi", 2))
	require.NoError(t, l.AddMember("M1", "Alice", "alice@example.com", ""))
	require.NoError(t, l.Borrow("B1", "M1"))
	require.NoError(t, l.Logout())
	require.NoError(t, s.Close())

	s2, err := OpenStore(path)
	require.NoError(t, err)
	defer s2.Close()
	l2 := New(Config{}, zap.NewNop().Sugar(), s2)
	_, err = l2.Bootstrap()
	require.NoError(t, err)

	loginAs(t, l2, "admin", "adminpw")
	item, err := l2.FindItem("B1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.TotalCopies, "borrow must survive the restart")
	m, err := l2.FindMember("M1")
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, m.Borrowed)

	// The audit history from the first run is intact.
	events, err := l2.AuditByUser("admin")
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}
