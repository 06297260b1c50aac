package database

import (
	"database/sql"
	"fmt"
	"log"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// isLegacyDB reports whether a claims table exists in a database whose
// user_version was never stamped.
func isLegacyDB(conn *sql.DB) (bool, error) {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='claims'",
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking for legacy tables: %w", err)
	}
	return count > 0, nil
}

// migrate applies every migration newer than the stored user_version and
// returns how many were applied.
func migrate(conn *sql.DB) (int, error) {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return 0, err
	}

	if current == 0 {
		legacy, err := isLegacyDB(conn)
		if err != nil {
			return 0, err
		}
		if legacy {
			// The unversioned claims table matches migration 1.
			log.Printf("Found unversioned claims table, stamping schema version 1")
			if err := setSchemaVersion(conn, 1); err != nil {
				return 0, err
			}
			current = 1
		}
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func applyMigration(conn *sql.DB, m Migration) error {
	log.Printf("Applying migration %d: %s", m.Version, m.Description)

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}

	// modernc/sqlite does not honour user_version inside a transaction.
	// Migrations are idempotent, so a crash here only re-runs the last step.
	return setSchemaVersion(conn, m.Version)
}

func setSchemaVersion(conn *sql.DB, version int) error {
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("setting schema version %d: %w", version, err)
	}
	return nil
}
