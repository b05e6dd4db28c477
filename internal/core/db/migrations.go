package db

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	embeddedmigrations "github.com/solatis/fieldcomp/migrations"
)

// MigrationStatus reports one embedded migration and whether it has been applied.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

// migration is one parsed schema file.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp applies every pending migration for the database's driver.
// Applied migrations must still match their embedded checksum.
// Returns the IDs applied by this call.
func MigrateUp(db *sqlx.DB) ([]string, error) {
	migrations, err := prepare(db)
	if err != nil {
		return nil, err
	}

	if err := validateChecksums(db, migrations); err != nil {
		return nil, fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	var ran []string
	for _, m := range migrations {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		if err := runMigration(db, m); err != nil {
			return ran, err
		}
		ran = append(ran, m.ID)
	}
	return ran, nil
}

// MigrateStatus returns every embedded migration in order with its applied state.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := prepare(db)
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

// prepare creates the tracking table and parses the driver's migrations.
func prepare(db *sqlx.DB) ([]migration, error) {
	fsys, dir, err := migrationSource(db.DriverName())
	if err != nil {
		return nil, err
	}
	if err := createMigrationsTable(db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}
	return migrations, nil
}

func migrationSource(driver string) (embed.FS, string, error) {
	switch driver {
	case driverSqlite:
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case driverPostgres:
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// parseMigrationFiles reads dir's .sql files sorted by filename.
func parseMigrationFiles(fsys embed.FS, dir string) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}

		content, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		migrations = append(migrations, migration{
			ID:       filepath.Base(path),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

// createMigrationsTable ensures the tracking table exists.
// applied_at is declared TIMESTAMP on both drivers so it scans into time.Time.
func createMigrationsTable(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			execution_ms INTEGER NOT NULL
		)
	`)
	return err
}

// appliedMigrations returns the tracking rows keyed by migration ID.
func appliedMigrations(db *sqlx.DB) (map[string]MigrationStatus, error) {
	rows, err := db.Queryx("SELECT migration_id, checksum, applied_at, execution_ms FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]MigrationStatus)
	for rows.Next() {
		var (
			status    MigrationStatus
			appliedAt time.Time
		)
		if err := rows.Scan(&status.ID, &status.Checksum, &appliedAt, &status.ExecutionMs); err != nil {
			return nil, err
		}
		status.Applied = true
		status.AppliedAt = &appliedAt
		applied[status.ID] = status
	}
	return applied, rows.Err()
}

// validateChecksums rejects applied migrations that are missing or changed.
func validateChecksums(db *sqlx.DB, migrations []migration) error {
	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	embedded := make(map[string]string, len(migrations))
	for _, m := range migrations {
		embedded[m.ID] = m.Checksum
	}

	for id, status := range applied {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if status.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, status.Checksum)
		}
	}
	return nil
}

// runMigration applies m and records it in one transaction.
func runMigration(db *sqlx.DB, m migration) error {
	start := time.Now()

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}

	// lib/pq rejects multiple statements per Exec
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	_, err = tx.Exec(
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC(), time.Since(start).Milliseconds(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// splitStatements drops full-line comments and splits on semicolons.
// Statements must not contain semicolons inside string literals.
func splitStatements(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
