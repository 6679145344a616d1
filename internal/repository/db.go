package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a tenant-scoped lookup matches no row.
var ErrNotFound = errors.New("not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the connection pool with the driver name so queries written with
// "?" placeholders can be rebound for postgres.
type DB struct {
	*sql.DB
	Driver string
}

// Rebind rewrites "?" placeholders into the driver's native form.
func (db *DB) Rebind(query string) string {
	if db.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// InitDB opens the database and ensures all required tables exist.
// For sqlite pass ":memory:" for an in-memory database.
func InitDB(driver, dsn string) (*DB, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db := &DB{DB: sqlDB, Driver: driver}

	if driver == DriverSQLite {
		if strings.Contains(dsn, ":memory:") {
			// Each sqlite connection to :memory: is its own database.
			sqlDB.SetMaxOpenConns(1)
		}

		if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("set wal mode: %w", err)
		}

		if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := createTables(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			group_id TEXT,
			company_name TEXT NOT NULL,
			contact_email TEXT,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_tenant_group ON clients(tenant_id, group_id)`,

		`CREATE TABLE IF NOT EXISTS fee_calculations (
			id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			status TEXT NOT NULL,
			base_amount NUMERIC NOT NULL DEFAULT 0,
			discount_percentage NUMERIC,
			discount_amount NUMERIC,
			previous_year_discount NUMERIC,
			total_amount NUMERIC NOT NULL DEFAULT 0,
			payment_method_selected TEXT,
			payment_method_selected_at TEXT,
			created_at TEXT,
			reminder_count INTEGER NOT NULL DEFAULT 0,
			last_reminder_sent_at TEXT,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fee_calculations_tenant_status ON fee_calculations(tenant_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_fee_calculations_client_year ON fee_calculations(client_id, year)`,

		`CREATE TABLE IF NOT EXISTS reminder_rules (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority INTEGER NOT NULL DEFAULT 0,
			trigger_conditions TEXT NOT NULL,
			actions TEXT NOT NULL,
			is_active BOOLEAN NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminder_rules_tenant_active ON reminder_rules(tenant_id, is_active)`,

		`CREATE TABLE IF NOT EXISTS payment_reminders (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			fee_id TEXT NOT NULL,
			rule_id TEXT,
			reminder_type TEXT NOT NULL,
			channel TEXT NOT NULL,
			template_used TEXT NOT NULL,
			sent_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_reminders_fee ON payment_reminders(tenant_id, fee_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
