// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The store is a single file (or ":memory:" in tests) opened through
// database/sql with the pure-Go modernc.org/sqlite driver, so no C
// toolchain is needed to build the server.
//
// CONNECTION SETTINGS:
// SQLite pragmas are per connection, and sql.DB is a pool that opens
// connections lazily. Running "PRAGMA foreign_keys=ON" once after Open would
// only configure whichever connection happened to serve it. The pragmas are
// therefore passed in the DSN, which the driver replays on every new
// connection:
//   - foreign_keys(1)      child rows must reference an existing profile,
//                          and ON DELETE CASCADE removes them with it
//   - busy_timeout(5000)   a writer waits for a competing writer instead of
//                          failing immediately with SQLITE_BUSY
//   - journal_mode(WAL)    readers keep seeing the last committed snapshot
//                          while a write transaction is in progress
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/profile-store/internal/apperror"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection pool and implements both
// repository.ProfileRepository and repository.QueryRepository.
type DB struct {
	conn *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/profiles.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database, lost on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	// Pin the pool to one connection so all callers share the same one.
	if dbPath == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// Cascade delete relies on foreign key enforcement. Refuse to start
	// rather than silently leave orphaned children behind.
	var fkEnabled int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: reading foreign_keys pragma: %w", err)
	}
	if fkEnabled != 1 {
		conn.Close()
		return nil, errors.New("sqlite: foreign key enforcement is not enabled")
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func buildDSN(dbPath string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	if dbPath != MemoryPath {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	params.Set("_time_format", "sqlite")
	return dbPath + "?" + params.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			education  TEXT,
			github     TEXT,
			linkedin   TEXT,
			portfolio  TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	// Databases written by earlier releases have no timestamp columns.
	// SQLite rejects a non-constant default in ALTER TABLE, hence the epoch.
	for _, col := range []string{"created_at", "updated_at"} {
		if err := db.addColumnIfNotExists("profiles", col,
			"DATETIME NOT NULL DEFAULT '1970-01-01 00:00:00'"); err != nil {
			return fmt.Errorf("adding %s to profiles: %w", col, err)
		}
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS skills (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_skills_profile_id ON skills(profile_id);
		CREATE INDEX IF NOT EXISTS idx_skills_name ON skills(name);

		CREATE TABLE IF NOT EXISTS projects (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			description TEXT,
			link        TEXT,
			profile_id  INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_projects_profile_id ON projects(profile_id);

		CREATE TABLE IF NOT EXISTS work (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			company    TEXT NOT NULL,
			role       TEXT,
			duration   TEXT,
			profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_work_profile_id ON work(profile_id);
	`)
	if err != nil {
		return fmt.Errorf("creating child tables: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, so it is safe to run on every start.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// withTx runs fn inside a transaction and commits if fn returns nil.
// Any error, or a panic inside fn, rolls the transaction back, so a
// multi-row write is either fully applied or not applied at all.
//
// Reads that must observe one consistent snapshot (a profile row plus its
// children) also go through withTx: in WAL mode a transaction keeps reading
// the snapshot it started with even if a writer commits meanwhile.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning ErrTxDone.
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// constraintCode returns the extended SQLite result code when err is a
// constraint violation (UNIQUE, FOREIGN KEY, NOT NULL, ...).
func constraintCode(err error) (int, bool) {
	var sqliteErr *sqlitedrv.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	code := sqliteErr.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return 0, false
	}
	return code, true
}

// mapProfileWriteError turns driver constraint failures on a profile write
// into apperror values and wraps everything else with op.
func mapProfileWriteError(err error, email, op string) error {
	code, ok := constraintCode(err)
	if !ok {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || strings.Contains(err.Error(), "profiles.email") {
		return apperror.Conflict("profile", "email", email)
	}
	return apperror.ConstraintViolation("profile", err.Error())
}
