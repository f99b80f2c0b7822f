package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Initialize opens the sqlite store under ~/.cobros/db (or COBROS_DB when
// set), creating the schema and applying pending migrations.
func Initialize() (*sql.DB, error) {
	dbPath := os.Getenv("COBROS_DB")
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".cobros", "db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		contact_name TEXT,
		email TEXT,
		phone TEXT,
		city TEXT,
		country TEXT,
		annual_hours REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		hourly_rate REAL NOT NULL DEFAULT 0,
		status TEXT DEFAULT 'active',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id INTEGER NOT NULL,
		contract_number TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		total_hours REAL NOT NULL DEFAULT 0,
		hourly_rate REAL NOT NULL DEFAULT 0,
		currency TEXT DEFAULT 'COP',
		start_date DATE NOT NULL,
		end_date DATE,
		status TEXT DEFAULT 'active',
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		project_id INTEGER NOT NULL,
		contract_id INTEGER,
		date DATE NOT NULL,
		hours REAL NOT NULL,
		description TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		FOREIGN KEY (contract_id) REFERENCES contracts(id)
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		client_id INTEGER NOT NULL,
		contract_id INTEGER,
		project_id INTEGER,
		amount REAL NOT NULL,
		payment_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_type TEXT NOT NULL DEFAULT 'fixed',
		billing_month TEXT,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE,
		FOREIGN KEY (contract_id) REFERENCES contracts(id),
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE TABLE IF NOT EXISTS business_info (
		id INTEGER PRIMARY KEY,
		business_name TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		address TEXT,
		city TEXT,
		country TEXT,
		tax_id TEXT,
		website TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_projects_client ON projects(client_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts(client_id);
	CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
	CREATE INDEX IF NOT EXISTS idx_time_entries_date ON time_entries(date);
	CREATE INDEX IF NOT EXISTS idx_time_entries_project ON time_entries(project_id);
	CREATE INDEX IF NOT EXISTS idx_payments_client ON payments(client_id);
	CREATE INDEX IF NOT EXISTS idx_payments_date ON payments(payment_date);
	CREATE INDEX IF NOT EXISTS idx_payments_type ON payments(payment_type);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := []migration{
		{
			name: "add_annual_hours_to_clients",
			apply: func(db *sql.DB) error {
				return addColumnIfNotExists(db, "clients", "annual_hours", "REAL")
			},
		},
		{
			name: "add_billing_month_to_payments",
			apply: func(db *sql.DB) error {
				return addColumnIfNotExists(db, "payments", "billing_month", "TEXT")
			},
		},
		{
			name: "add_project_id_to_payments",
			apply: func(db *sql.DB) error {
				return addColumnIfNotExists(db, "payments", "project_id", "INTEGER")
			},
		},
		{
			name: "add_total_hours_to_contracts",
			apply: func(db *sql.DB) error {
				return addColumnIfNotExists(db, "contracts", "total_hours", "REAL NOT NULL DEFAULT 0")
			},
		},
	}

	for _, migration := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE name = ?", migration.name).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.name, err)
		}

		if count > 0 {
			continue
		}

		if err := migration.apply(db); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.name, err)
		}

		if _, err := db.Exec("INSERT INTO migrations (name) VALUES (?)", migration.name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.name, err)
		}

		fmt.Printf("Applied migration: %s\n", migration.name)
	}

	return nil
}

type migration struct {
	name  string
	apply func(*sql.DB) error
}

func addColumnIfNotExists(db *sql.DB, tableName, columnName, columnType string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return fmt.Errorf("failed to get table info for %s: %w", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, primaryKey int
		var defaultValue *string
		err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &primaryKey)
		if err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}

		if name == columnName {
			return nil
		}
	}

	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, columnName, columnType)
	if _, err := db.Exec(alter); err != nil {
		return fmt.Errorf("failed to add column %s to %s: %w", columnName, tableName, err)
	}

	fmt.Printf("Added column %s.%s\n", tableName, columnName)
	return nil
}
