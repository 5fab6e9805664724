package main

import (
	"fmt"
	"os"
	"time"

	"readeasy/library"
)

// Sample data for a fresh installation: a small catalog, a few members and
// one account per role. Run from the repository root; writes readeasy.db.
func main() {
	dbPath := library.DefaultDBPath
	if v := os.Getenv("READEASY_DB"); v != "" {
		dbPath = v
	}

	fmt.Println("Cleaning up existing database files...")
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}

	store, err := library.OpenStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	now := time.Now().UTC()

	items := []*library.Item{
		{ID: "978-1593279288", Title: "Python Crash Course", Author: "Eric Matthes", Genre: "Non-Fiction", TotalCopies: 3, CreatedAt: now},
		{ID: "978-0441172719", Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi", TotalCopies: 2, CreatedAt: now},
		{ID: "978-0062073488", Title: "Murder on the Orient Express", Author: "Agatha Christie", Genre: "Mystery", TotalCopies: 2, CreatedAt: now},
		{ID: "978-0451524935", Title: "1984", Author: "George Orwell", Genre: "Fiction", TotalCopies: 4, CreatedAt: now},
		{ID: "978-1451648539", Title: "Steve Jobs", Author: "Walter Isaacson", Genre: "Biography", TotalCopies: 1, CreatedAt: now},
	}

	members := []*library.Member{
		{ID: "M001", Name: "Alice Nguyen", Email: "alice@example.com", Phone: "555-0101", Borrowed: []string{}, RegisteredAt: now},
		{ID: "M002", Name: "Ben Ortiz", Email: "ben@example.com", Phone: "555-0102", Borrowed: []string{}, RegisteredAt: now},
		{ID: "M003", Name: "Chloe Park", Email: "chloe@example.com", Phone: "", Borrowed: []string{}, RegisteredAt: now},
		{ID: "M004", Name: "Dan Webb", Email: "dan@example.com", Phone: "555-0104", Borrowed: []string{}, RegisteredAt: now},
	}

	accounts := []struct {
		username, password string
		role               library.Role
		memberID, fullName string
	}{
		{"admin", "admin123", library.RoleAdmin, "", "System Administrator"},
		{"librarian1", "lib123", library.RoleLibrarian, "", "Head Librarian"},
		{"alice", "pass123", library.RoleMember, "M001", "Alice Nguyen"},
		{"ben", "pass123", library.RoleMember, "M002", "Ben Ortiz"},
	}

	identities := make([]*library.Identity, 0, len(accounts))
	for _, a := range accounts {
		hash, err := library.HashPassword(a.password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error hashing password for %s: %v\n", a.username, err)
			os.Exit(1)
		}
		identities = append(identities, &library.Identity{
			Username:     a.username,
			PasswordHash: hash,
			Role:         a.role,
			MemberID:     a.memberID,
			FullName:     a.fullName,
		})
	}

	snap := &library.Snapshot{
		Items:      items,
		Members:    members,
		Identities: identities,
		Audit:      map[string][]library.AuditEvent{},
		LastSave:   now,
	}
	if err := store.Save(snap); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded %d items, %d members and %d accounts into %s.\n",
		len(items), len(members), len(identities), dbPath)
	fmt.Println("Default accounts: admin/admin123, librarian1/lib123, alice/pass123, ben/pass123")
}
