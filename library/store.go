package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the full serialized state: catalog and roster in their
// stored order, the identity store, the audit partitions, and the time the
// snapshot was written.
type Snapshot struct {
	Items      []*Item
	Members    []*Member
	Identities []*Identity
	Audit      map[string][]AuditEvent
	LastSave   time.Time
}

// Store persists snapshots to a single SQLite file. One save is one
// transaction that rewrites every table from the in-memory state; the core
// is the single logical writer.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (or creates) the snapshot database at path and applies
// schema migrations.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
            position INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            total_copies INTEGER NOT NULL,
            created_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            position INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            borrowed TEXT NOT NULL DEFAULT '[]',
            registered_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS identities (
            position INTEGER NOT NULL,
            username TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL,
            member_id TEXT NOT NULL DEFAULT '',
            full_name TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS audit_events (
            position INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            partition TEXT NOT NULL,
            ts DATETIME NOT NULL,
            username TEXT NOT NULL,
            role TEXT NOT NULL,
            full_name TEXT NOT NULL DEFAULT '',
            action TEXT NOT NULL,
            detail TEXT NOT NULL DEFAULT ''
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		var args []any
		if strings.Contains(stmt, "?") {
			args = append(args, schemaVersion)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return tx.Commit()
}

// Save overwrites the stored snapshot with snap in one transaction.
func (s *Store) Save(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"items", "members", "identities", "audit_events"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, item := range snap.Items {
		_, err := tx.Exec(
			`INSERT INTO items(position,id,title,author,genre,total_copies,created_at) VALUES(?,?,?,?,?,?,?)`,
			i, item.ID, item.Title, item.Author, item.Genre, item.TotalCopies, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save item %s: %w", item.ID, err)
		}
	}

	for i, m := range snap.Members {
		borrowed, err := jsonAPI.MarshalToString(m.Borrowed)
		if err != nil {
			return fmt.Errorf("encode borrowed set for %s: %w", m.ID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO members(position,id,name,email,phone,borrowed,registered_at) VALUES(?,?,?,?,?,?,?)`,
			i, m.ID, m.Name, m.Email, m.Phone, borrowed, m.RegisteredAt,
		)
		if err != nil {
			return fmt.Errorf("save member %s: %w", m.ID, err)
		}
	}

	for i, id := range snap.Identities {
		_, err := tx.Exec(
			`INSERT INTO identities(position,username,password_hash,role,member_id,full_name) VALUES(?,?,?,?,?,?)`,
			i, id.Username, id.PasswordHash, string(id.Role), id.MemberID, id.FullName,
		)
		if err != nil {
			return fmt.Errorf("save identity %s: %w", id.Username, err)
		}
	}

	pos := 0
	for _, partition := range Partitions {
		for _, ev := range snap.Audit[partition] {
			_, err := tx.Exec(
				`INSERT INTO audit_events(position,id,partition,ts,username,role,full_name,action,detail) VALUES(?,?,?,?,?,?,?,?,?)`,
				pos, ev.ID, partition, ev.Time, ev.Username, string(ev.Role), ev.FullName, string(ev.Action), ev.Detail,
			)
			if err != nil {
				return fmt.Errorf("save audit event %s: %w", ev.ID, err)
			}
			pos++
		}
	}

	stamp := snap.LastSave
	if stamp.IsZero() {
		stamp = time.Now()
	}
	if _, err := tx.Exec(
		`INSERT INTO meta(key,value) VALUES('last_save',?) ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		stamp.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("stamp save: %w", err)
	}

	return tx.Commit()
}

// Load reads the stored snapshot in its entirety.
func (s *Store) Load() (*Snapshot, error) {
	snap := &Snapshot{Audit: make(map[string][]AuditEvent)}
	for _, p := range Partitions {
		snap.Audit[p] = []AuditEvent{}
	}

	rows, err := s.db.Query(`SELECT id,title,author,genre,total_copies,created_at FROM items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Author, &it.Genre, &it.TotalCopies, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		snap.Items = append(snap.Items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := s.db.Query(`SELECT id,name,email,phone,borrowed,registered_at FROM members ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m Member
		var borrowed string
		if err := mrows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &borrowed, &m.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if err := jsonAPI.UnmarshalFromString(borrowed, &m.Borrowed); err != nil {
			return nil, fmt.Errorf("decode borrowed set for %s: %w", m.ID, err)
		}
		snap.Members = append(snap.Members, &m)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	irows, err := s.db.Query(`SELECT username,password_hash,role,member_id,full_name FROM identities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer irows.Close()
	for irows.Next() {
		var id Identity
		var role string
		if err := irows.Scan(&id.Username, &id.PasswordHash, &role, &id.MemberID, &id.FullName); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		id.Role = Role(role)
		snap.Identities = append(snap.Identities, &id)
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}

	arows, err := s.db.Query(`SELECT id,partition,ts,username,role,full_name,action,detail FROM audit_events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var ev AuditEvent
		var partition, role, action string
		if err := arows.Scan(&ev.ID, &partition, &ev.Time, &ev.Username, &role, &ev.FullName, &action, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Role = Role(role)
		ev.Action = Action(action)
		if _, ok := snap.Audit[partition]; !ok {
			partition = PartitionAdmins
		}
		snap.Audit[partition] = append(snap.Audit[partition], ev)
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}

	var stamp string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key='last_save'`).Scan(&stamp); err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, stamp); perr == nil {
			snap.LastSave = t
		}
	}

	return snap, nil
}

// Backup writes a timestamped copy of the snapshot file next to it and
// returns the copy's path. The WAL is checkpointed first so the copy is
// self-contained.
func (s *Store) Backup(now time.Time) (string, error) {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE);`); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	name := fmt.Sprintf("backup_library_%s.db", now.Format("20060102_150405"))
	dest := filepath.Join(filepath.Dir(s.path), name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return dest, nil
}
