package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"readeasy/library"
)

func main() {
	_ = godotenv.Load()

	cfg := library.LoadConfig()
	log := library.NewLogger()
	defer log.Sync()

	store, err := library.OpenStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	lib := library.New(cfg, log, store)
	if _, err := lib.Bootstrap(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load snapshot, starting empty: %v\n", err)
	}

	if err := newRootCommand(lib).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand wires the CLI surface. Every subcommand authenticates
// first; the core decides what the logged-in role may actually do.
func newRootCommand(lib *library.Library) *cobra.Command {
	root := &cobra.Command{
		Use:          "readeasy",
		Short:        "ReadEasy library management",
		Long:         "Catalog, roster, circulation and audit for a small library.",
		SilenceUsage: true,
	}

	root.AddCommand(newShellCommand(lib))
	root.AddCommand(newExportCommand(lib))
	root.AddCommand(newBackupCommand(lib))
	root.AddCommand(newHealthCommand(lib))
	root.AddCommand(newAuditCommand(lib))

	return root
}

func newShellCommand(lib *library.Library) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			runShell(lib)
			return nil
		},
	}
}

func newExportCommand(lib *library.Library) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(os.Stdin)
			if err := promptLogin(sc, lib); err != nil {
				return err
			}
			defer lib.Logout()
			if out == "" {
				out = library.ExportFilename(time.Now())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := lib.ExportItems(f); err != nil {
				return err
			}
			fmt.Printf("Catalog exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: timestamped name)")
	return cmd
}

func newBackupCommand(lib *library.Library) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped copy of the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(os.Stdin)
			if err := promptLogin(sc, lib); err != nil {
				return err
			}
			defer lib.Logout()
			path, err := lib.Backup()
			if err != nil {
				return err
			}
			fmt.Printf("Backup written to %s\n", path)
			return nil
		},
	}
}

func newHealthCommand(lib *library.Library) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Scan for orphaned references and negative copy counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(os.Stdin)
			if err := promptLogin(sc, lib); err != nil {
				return err
			}
			defer lib.Logout()
			findings, err := lib.HealthCheck()
			if err != nil {
				return err
			}
			if len(findings) == 0 {
				fmt.Println("System healthy: no findings.")
				return nil
			}
			for _, f := range findings {
				fmt.Printf("%-20s %s\n", f.Kind, f.Detail)
			}
			return nil
		},
	}
}

func newAuditCommand(lib *library.Library) *cobra.Command {
	var (
		user  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "audit [role]",
		Short: "Show the audit trail for a role partition or a user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(os.Stdin)
			if err := promptLogin(sc, lib); err != nil {
				return err
			}
			defer lib.Logout()

			var (
				events []library.AuditEvent
				err    error
			)
			if user != "" {
				events, err = lib.AuditByUser(user)
			} else {
				role := library.RoleAdmin
				if len(args) == 1 {
					role = library.Role(args[0])
				}
				events, err = lib.AuditByRole(role, limit)
			}
			if err != nil {
				return err
			}
			printAuditEvents(events)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "show events for one username across partitions")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events to show")
	return cmd
}

// ---------------------------------------------------------------------------
// Interactive shell
// ---------------------------------------------------------------------------

func runShell(lib *library.Library) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to ReadEasy!")
	fmt.Println("Available commands:")
	fmt.Println("  Session:     login, logout, whoami")
	fmt.Println("  Catalog:     add item, update item, remove item, list items, search")
	fmt.Println("  Members:     add member, update member, remove member, list members")
	fmt.Println("  Circulation: borrow, return, borrowed")
	fmt.Println("  Accounts:    register user, reset password")
	fmt.Println("  System:      audit, save, backup, export, health, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "login":
			if err := promptLogin(scanner, lib); err != nil {
				fmt.Printf("Login failed: %v\n", err)
			}
		case "logout":
			if err := lib.Logout(); err != nil {
				fmt.Println("No active session.")
			} else {
				fmt.Println("Logged out.")
			}
		case "whoami":
			if id := lib.CurrentUser(); id != nil {
				fmt.Printf("%s (%s), role %s\n", id.Username, id.FullName, id.Role)
			} else {
				fmt.Println("Not logged in.")
			}
		case "add item":
			handleAddItem(scanner, lib)
		case "update item":
			handleUpdateItem(scanner, lib)
		case "remove item":
			handleRemoveItem(scanner, lib)
		case "list items":
			handleListItems(lib)
		case "search":
			handleSearch(scanner, lib)
		case "add member":
			handleAddMember(scanner, lib)
		case "update member":
			handleUpdateMember(scanner, lib)
		case "remove member":
			handleRemoveMember(scanner, lib)
		case "list members":
			handleListMembers(lib)
		case "borrow":
			handleBorrow(scanner, lib)
		case "return":
			handleReturn(scanner, lib)
		case "borrowed":
			handleBorrowed(scanner, lib)
		case "register user":
			handleRegisterUser(scanner, lib)
		case "reset password":
			handleResetPassword(scanner, lib)
		case "audit":
			handleAudit(scanner, lib)
		case "save":
			if err := lib.Save(); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Println("Snapshot saved.")
			}
		case "backup":
			if path, err := lib.Backup(); err != nil {
				fmt.Printf("Error: %v\n", err)
			} else {
				fmt.Printf("Backup written to %s\n", path)
			}
		case "export":
			handleExport(lib)
		case "health":
			handleHealth(lib)
		case "exit":
			if lib.CurrentUser() != nil {
				lib.Logout()
			}
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func promptLogin(sc *bufio.Scanner, lib *library.Library) error {
	fmt.Print("Username: ")
	if !sc.Scan() {
		return fmt.Errorf("no input")
	}
	username := strings.TrimSpace(sc.Text())
	password, err := readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	id, err := lib.Login(username, password)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s! Role: %s\n", id.Username, id.Role)
	return nil
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func handleAddItem(sc *bufio.Scanner, lib *library.Library) {
	id, ok := prompt(sc, "Item ID (ISBN): ")
	if !ok {
		return
	}
	if !library.ValidISBN(id) {
		fmt.Printf("Warning: %q is not a valid ISBN.\n", id)
	}
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	genre, ok := prompt(sc, fmt.Sprintf("Genre %v: ", library.DefaultGenres))
	if !ok {
		return
	}
	copiesStr, ok := prompt(sc, "Copies: ")
	if !ok {
		return
	}
	copies, err := strconv.Atoi(copiesStr)
	if err != nil {
		fmt.Printf("Invalid copy count: %s\n", copiesStr)
		return
	}
	if err := lib.AddItem(id, title, author, genre, copies); err != nil {
		fmt.Printf("Error adding item: %v\n", err)
		return
	}
	fmt.Printf("Added item %s (%q).\n", id, title)
}

func handleUpdateItem(sc *bufio.Scanner, lib *library.Library) {
	id, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	var upd library.ItemUpdate
	if v, ok := prompt(sc, "New title (blank to keep): "); ok && v != "" {
		upd.Title = &v
	}
	if v, ok := prompt(sc, "New author (blank to keep): "); ok && v != "" {
		upd.Author = &v
	}
	if v, ok := prompt(sc, "New genre (blank to keep): "); ok && v != "" {
		upd.Genre = &v
	}
	if v, ok := prompt(sc, "New copy count (blank to keep): "); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fmt.Printf("Invalid copy count: %s\n", v)
			return
		}
		upd.TotalCopies = &n
	}
	if err := lib.UpdateItem(id, upd); err != nil {
		fmt.Printf("Error updating item: %v\n", err)
		return
	}
	fmt.Printf("Updated item %s.\n", id)
}

func handleRemoveItem(sc *bufio.Scanner, lib *library.Library) {
	id, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	if err := lib.RemoveItem(id); err != nil {
		fmt.Printf("Error removing item: %v\n", err)
		return
	}
	fmt.Printf("Removed item %s.\n", id)
}

func handleListItems(lib *library.Library) {
	items, err := lib.Items()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		fmt.Println("No items in the catalog.")
		return
	}
	fmt.Printf("%-15s %-35s %-25s %-12s %s\n", "ID", "Title", "Author", "Genre", "Copies")
	fmt.Println(strings.Repeat("-", 95))
	for _, it := range items {
		fmt.Printf("%-15s %-35s %-25s %-12s %d\n",
			it.ID, truncate(it.Title, 35), truncate(it.Author, 25), it.Genre, it.TotalCopies)
	}
}

func handleSearch(sc *bufio.Scanner, lib *library.Library) {
	term, ok := prompt(sc, "Search term: ")
	if !ok {
		return
	}
	field, ok := prompt(sc, "Search by (title/author) [title]: ")
	if !ok {
		return
	}
	if field == "" {
		field = "title"
	}
	items, err := lib.SearchItems(term, field)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		fmt.Printf("No items found with %s containing %q.\n", field, term)
		return
	}
	fmt.Printf("Found %d item(s):\n", len(items))
	for _, it := range items {
		fmt.Printf("  %-15s %q by %s (%s, %d copies)\n", it.ID, it.Title, it.Author, it.Genre, it.TotalCopies)
	}
}

func handleAddMember(sc *bufio.Scanner, lib *library.Library) {
	id, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	email, ok := prompt(sc, "Email: ")
	if !ok {
		return
	}
	phone, ok := prompt(sc, "Phone (optional): ")
	if !ok {
		return
	}
	if err := lib.AddMember(id, name, email, phone); err != nil {
		fmt.Printf("Error adding member: %v\n", err)
		return
	}
	fmt.Printf("Registered member %s (%s).\n", name, id)
}

func handleUpdateMember(sc *bufio.Scanner, lib *library.Library) {
	id, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	var upd library.MemberUpdate
	if v, ok := prompt(sc, "New name (blank to keep): "); ok && v != "" {
		upd.Name = &v
	}
	if v, ok := prompt(sc, "New email (blank to keep): "); ok && v != "" {
		upd.Email = &v
	}
	if v, ok := prompt(sc, "New phone (blank to keep): "); ok && v != "" {
		upd.Phone = &v
	}
	if err := lib.UpdateMember(id, upd); err != nil {
		fmt.Printf("Error updating member: %v\n", err)
		return
	}
	fmt.Printf("Updated member %s.\n", id)
}

func handleRemoveMember(sc *bufio.Scanner, lib *library.Library) {
	id, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	if err := lib.RemoveMember(id); err != nil {
		fmt.Printf("Error removing member: %v\n", err)
		return
	}
	fmt.Printf("Removed member %s.\n", id)
}

func handleListMembers(lib *library.Library) {
	members, err := lib.Members()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Printf("%-10s %-30s %-30s %s\n", "ID", "Name", "Email", "Borrowed")
	fmt.Println(strings.Repeat("-", 80))
	for _, m := range members {
		fmt.Printf("%-10s %-30s %-30s %d\n", m.ID, truncate(m.Name, 30), truncate(m.Email, 30), len(m.Borrowed))
	}
}

func handleBorrow(sc *bufio.Scanner, lib *library.Library) {
	itemID, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	if err := lib.Borrow(itemID, memberID); err != nil {
		if isDenied(err) {
			fmt.Printf("Access denied: %v\n", err)
		} else {
			fmt.Printf("Error borrowing item: %v\n", err)
		}
		return
	}
	fmt.Printf("Item %s borrowed by member %s.\n", itemID, memberID)
}

func handleReturn(sc *bufio.Scanner, lib *library.Library) {
	itemID, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	if err := lib.Return(itemID, memberID); err != nil {
		fmt.Printf("Error returning item: %v\n", err)
		return
	}
	fmt.Printf("Item %s returned by member %s.\n", itemID, memberID)
}

func handleBorrowed(sc *bufio.Scanner, lib *library.Library) {
	memberID, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	items, err := lib.BorrowedItems(memberID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		fmt.Println("No items currently borrowed.")
		return
	}
	for i, it := range items {
		fmt.Printf("%d. %s %q by %s\n", i+1, it.ID, it.Title, it.Author)
	}
}

func handleRegisterUser(sc *bufio.Scanner, lib *library.Library) {
	username, ok := prompt(sc, "Username: ")
	if !ok {
		return
	}
	roleStr, ok := prompt(sc, "Role (admin/librarian/member): ")
	if !ok {
		return
	}
	memberID, ok := prompt(sc, "Member ID (blank for staff): ")
	if !ok {
		return
	}
	fullName, ok := prompt(sc, "Full name: ")
	if !ok {
		return
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Println("Error: password cannot be empty")
		return
	}
	if err := lib.RegisterUser(username, password, library.Role(roleStr), memberID, fullName); err != nil {
		fmt.Printf("Error registering user: %v\n", err)
		return
	}
	fmt.Printf("Registered user %s with role %s.\n", username, roleStr)
}

func handleResetPassword(sc *bufio.Scanner, lib *library.Library) {
	username, ok := prompt(sc, "Username: ")
	if !ok {
		return
	}
	password, err := readPassword(fmt.Sprintf("New password for %s: ", username))
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Println("Error: password cannot be empty")
		return
	}
	if err := lib.ResetPassword(username, password); err != nil {
		fmt.Printf("Error resetting password: %v\n", err)
		return
	}
	fmt.Printf("Password reset for %s.\n", username)
}

func handleAudit(sc *bufio.Scanner, lib *library.Library) {
	roleStr, ok := prompt(sc, "Role partition (admin/librarian/member) [admin]: ")
	if !ok {
		return
	}
	if roleStr == "" {
		roleStr = "admin"
	}
	events, err := lib.AuditByRole(library.Role(roleStr), 20)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printAuditEvents(events)
}

func handleExport(lib *library.Library) {
	name := library.ExportFilename(time.Now())
	f, err := os.Create(name)
	if err != nil {
		fmt.Printf("Error creating export file: %v\n", err)
		return
	}
	defer f.Close()
	if err := lib.ExportItems(f); err != nil {
		fmt.Printf("Error exporting catalog: %v\n", err)
		return
	}
	fmt.Printf("Catalog exported to %s\n", name)
}

func handleHealth(lib *library.Library) {
	findings, err := lib.HealthCheck()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(findings) == 0 {
		fmt.Println("System healthy: no findings.")
		return
	}
	for _, f := range findings {
		fmt.Printf("%-20s %s\n", f.Kind, f.Detail)
	}
}

func printAuditEvents(events []library.AuditEvent) {
	if len(events) == 0 {
		fmt.Println("No audit events recorded.")
		return
	}
	for _, ev := range events {
		fmt.Printf("[%s] %-10s %-12s %-16s %s\n",
			ev.Time.Format("2006-01-02 15:04:05"), ev.Username, ev.Role, ev.Action, ev.Detail)
	}
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}

// isDenied reports whether err is an authorization failure; used by shell
// handlers that want a friendlier message.
func isDenied(err error) bool {
	return errors.Is(err, library.ErrDenied) || errors.Is(err, library.ErrNotAuthenticated)
}
