package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed Store.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

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

	// position keeps listing order stable across saves; ids may be non-numeric.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patrons (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL DEFAULT '',
            admin BOOLEAN NOT NULL DEFAULT 0,
            fine_balance REAL NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS items (
            position INTEGER NOT NULL,
            id TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT 'standard',
            borrowed BOOLEAN NOT NULL DEFAULT 0,
            borrower_id TEXT NOT NULL DEFAULT '',
            borrow_date TEXT NOT NULL DEFAULT '',
            due_date TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS idx_items_borrower ON items(borrower_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// LoadItems returns every stored item in listing order.
func (d *Database) LoadItems() ([]*Item, error) {
	rows, err := d.db.Query(`SELECT id,title,author,category,borrowed,borrower_id,borrow_date,due_date FROM items ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		var r itemRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Author, &r.Category, &r.Borrowed, &r.BorrowerID, &r.BorrowDate, &r.DueDate); err != nil {
			return nil, err
		}
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SaveItems replaces the stored collection in one transaction.
func (d *Database) SaveItems(items []*Item) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO items(position,id,title,author,category,borrowed,borrower_id,borrow_date,due_date) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		r := recordFromItem(it)
		if _, err := stmt.Exec(i, r.ID, r.Title, r.Author, r.Category, r.Borrowed, r.BorrowerID, r.BorrowDate, r.DueDate); err != nil {
			return fmt.Errorf("save item %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Patrons
// ---------------------------------------------------------------------------

func (d *Database) LoadPatrons() ([]*Patron, error) {
	rows, err := d.db.Query(`SELECT id,name,email,password_hash,admin,fine_balance FROM patrons ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patrons := []*Patron{}
	for rows.Next() {
		var r patronRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.PasswordHash, &r.Admin, &r.FineBalance); err != nil {
			return nil, err
		}
		patrons = append(patrons, r.patron())
	}
	return patrons, rows.Err()
}

func (d *Database) SavePatrons(patrons []*Patron) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM patrons`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO patrons(id,name,email,password_hash,admin,fine_balance) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range patrons {
		r := recordFromPatron(p)
		if _, err := stmt.Exec(r.ID, r.Name, r.Email, r.PasswordHash, r.Admin, r.FineBalance); err != nil {
			return fmt.Errorf("save patron %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}
