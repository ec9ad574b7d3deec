package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// DB wraps a SQL database connection plus the driver-specific quirks
// (placeholder style, quoting of the reserved "order" column).
type DB struct {
	conn   *sql.DB
	driver string
}

// Open opens (or creates) the blocks database. For sqlite, dsn is a
// file path; for postgres and mysql it is the driver's DSN.
func Open(driver, dsn string) (*DB, error) {
	var conn *sql.DB
	var err error

	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		conn, err = sql.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite only supports one writer — limit to a single
		// connection to prevent SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	case DriverPostgres:
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	case DriverMySQL:
		conn, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory sqlite database. Used by tests.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	conn.SetMaxOpenConns(1)
	db := &DB{conn: conn, driver: DriverSQLite}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	var ddl string
	switch db.driver {
	case DriverMySQL:
		ddl = "CREATE TABLE IF NOT EXISTS blocks (" +
			"id VARCHAR(64) PRIMARY KEY, " +
			"type VARCHAR(16) NOT NULL, " +
			"content TEXT NOT NULL, " +
			"`order` INT NOT NULL, " +
			"style VARCHAR(16), " +
			"width INT, " +
			"height INT)"
	default:
		ddl = `CREATE TABLE IF NOT EXISTS blocks (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			"order" INTEGER NOT NULL,
			style TEXT,
			width INTEGER,
			height INTEGER
		)`
	}
	if _, err := db.conn.Exec(ddl); err != nil {
		return fmt.Errorf("create blocks table: %w", err)
	}
	return nil
}

// orderCol returns the quoted name of the reserved "order" column.
func (db *DB) orderCol() string {
	if db.driver == DriverMySQL {
		return "`order`"
	}
	return `"order"`
}

// rebind rewrites ? placeholders to the driver's style. Queries are
// written with ? throughout; postgres needs $1..$n.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
