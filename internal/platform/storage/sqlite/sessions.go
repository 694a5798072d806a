package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"keeper/internal/domain"
)

// CreateSession stores a server-side session.
func CreateSession(ctx context.Context, db DBTX, session domain.Session) error {
	created := session.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.ExecContext(
		ctx,
		"INSERT INTO auth_session (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.ID,
		session.UserID,
		created.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetSession returns a session by id.
func GetSession(ctx context.Context, db DBTX, id string) (domain.Session, error) {
	row := db.QueryRowContext(ctx, "SELECT id, user_id, created_at, expires_at FROM auth_session WHERE id = ?", id)
	return scanSession(row)
}

// ListAllSessions returns every stored session.
func ListAllSessions(ctx context.Context, db DBTX) ([]domain.Session, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, user_id, created_at, expires_at FROM auth_session ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// DeleteSession removes a session; a missing session returns sql.ErrNoRows.
func DeleteSession(ctx context.Context, db DBTX, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM auth_session WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanSession(row interface{ Scan(...interface{}) error }) (domain.Session, error) {
	var session domain.Session
	var created, expires string
	if err := row.Scan(&session.ID, &session.UserID, &created, &expires); err != nil {
		return domain.Session{}, err
	}
	session.CreatedAt, _ = time.Parse(time.RFC3339, created)
	session.ExpiresAt, _ = time.Parse(time.RFC3339, expires)
	return session, nil
}
