package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// keyedTable is a table whose ids are referenced after the row is gone, so an
// id must never be handed out twice.
type keyedTable struct {
	name    string
	ddl     string // %s is the table name
	columns string
	// floor returns the highest id ever referenced anywhere.
	floor string
}

var keyedTables = []keyedTable{
	{
		name: "user",
		ddl: `CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            email TEXT UNIQUE NOT NULL COLLATE NOCASE,
            display_name TEXT,
            role TEXT NOT NULL CHECK (role IN ('pending', 'member', 'admin')),
            password_hash TEXT NOT NULL,
            totp_secret TEXT NOT NULL,
            created_at TEXT NOT NULL,
            updated_at TEXT
        )`,
		columns: "id, email, display_name, role, password_hash, totp_secret, created_at, updated_at",
		floor: `SELECT MAX(
            COALESCE((SELECT MAX(id) FROM user), 0),
            COALESCE((SELECT MAX(user_id) FROM auth_session), 0),
            COALESCE((SELECT MAX(user_id) FROM passkey), 0),
            COALESCE((SELECT MAX(user_id) FROM audit_log), 0),
            COALESCE((SELECT MAX(performed_by) FROM audit_log), 0),
            COALESCE((SELECT MAX(requested_by) FROM deletion_request), 0))`,
	},
	{
		name: "passkey",
		ddl: `CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            credential_id TEXT NOT NULL UNIQUE,
            credential_json TEXT NOT NULL,
            created_at TEXT NOT NULL,
            last_used_at TEXT
        )`,
		columns: "id, user_id, name, credential_id, credential_json, created_at, last_used_at",
		floor:   `SELECT COALESCE(MAX(id), 0) FROM passkey`,
	},
	{
		name: "entity",
		ddl: `CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            type TEXT NOT NULL,
            name TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		columns: "id, type, name, updated_at",
		floor: `SELECT MAX(
            COALESCE((SELECT MAX(id) FROM entity), 0),
            COALESCE((SELECT MAX(entity_id) FROM deletion_request), 0))`,
	},
	{
		name: "deletion_request",
		ddl: `CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            entity_type TEXT NOT NULL,
            entity_id INTEGER NOT NULL,
            entity_name TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
            requested_by INTEGER NOT NULL,
            reason TEXT,
            created_at INTEGER NOT NULL,
            resolved_by INTEGER,
            resolved_at TEXT
        )`,
		columns: "id, entity_type, entity_id, entity_name, status, requested_by, reason, created_at, resolved_by, resolved_at",
		floor:   `SELECT COALESCE(MAX(id), 0) FROM deletion_request`,
	},
}

// InitDB ensures the SQLite schema exists and applies lightweight migrations.
func InitDB(db *sql.DB) error {
	var stmts []string
	for _, t := range keyedTables {
		stmts = append(stmts, fmt.Sprintf(t.ddl, t.name))
	}
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS auth_session (
            id TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL,
            created_at TEXT NOT NULL,
            expires_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS checklist (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS checklist_item (
            id INTEGER PRIMARY KEY,
            checklist_id INTEGER NOT NULL,
            label TEXT NOT NULL,
            position INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS audit_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            action_type TEXT NOT NULL,
            details TEXT NOT NULL DEFAULT '',
            performed_by INTEGER,
            created_at INTEGER NOT NULL
        )`,
	)
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Resolution columns arrived after the first release.
	columns := map[string]string{
		"resolved_by": "INTEGER",
		"resolved_at": "TEXT",
	}
	for col, typ := range columns {
		if err := ensureColumn(db, "deletion_request", col, typ); err != nil {
			return err
		}
	}

	// Early databases created these tables without AUTOINCREMENT.
	for _, t := range keyedTables {
		if err := ensureAutoIncrement(db, t); err != nil {
			return fmt.Errorf("migrate %s ids: %w", t.name, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_auth_session_user ON auth_session(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_passkey_user ON passkey(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entity_type ON entity(type)`,
		`CREATE INDEX IF NOT EXISTS idx_checklist_item_checklist ON checklist_item(checklist_id)`,
		`CREATE INDEX IF NOT EXISTS idx_deletion_request_status ON deletion_request(status)`,
		`CREATE INDEX IF NOT EXISTS idx_deletion_request_entity_type ON deletion_request(entity_type)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action_type)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// ensureAutoIncrement rebuilds t when it was created without AUTOINCREMENT and
// starts its sequence above every id that was ever referenced.
func ensureAutoIncrement(db *sql.DB, t keyedTable) error {
	var ddl string
	if err := db.QueryRow("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", t.name).Scan(&ddl); err != nil {
		return err
	}
	if strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT") {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var floor int64
	if err := tx.QueryRow(t.floor).Scan(&floor); err != nil {
		return err
	}
	rebuilt := t.name + "_rebuild"
	stmts := []string{
		fmt.Sprintf(t.ddl, rebuilt),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", rebuilt, t.columns, t.columns, t.name),
		fmt.Sprintf("DROP TABLE %s", t.name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", rebuilt, t.name),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("DELETE FROM sqlite_sequence WHERE name IN (?, ?)", t.name, rebuilt); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", t.name, floor); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureColumn(db *sql.DB, table, column, columnType string) error {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnType))
	return err
}

func nullInt(value sql.NullInt64) interface{} {
	if value.Valid {
		return value.Int64
	}
	return nil
}
