package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"keeper/internal/domain"
)

const userColumns = "id, email, COALESCE(display_name,''), role, password_hash, totp_secret, created_at, COALESCE(updated_at,'')"

func scanUser(row interface{ Scan(...interface{}) error }) (domain.User, error) {
	var u domain.User
	var role, createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &role, &u.PasswordHash, &u.TOTPSecret, &createdAt, &updatedAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		u.UpdatedAt = parsed
	}
	return u, nil
}

func GetUserByID(ctx context.Context, db DBTX, id int) (domain.User, error) {
	return scanUser(db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM user WHERE id = ?", id))
}

func GetUserByEmail(ctx context.Context, db DBTX, email string) (domain.User, error) {
	return scanUser(db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM user WHERE email = ?", strings.TrimSpace(email)))
}

func ListUsers(ctx context.Context, db DBTX) ([]domain.User, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+userColumns+" FROM user ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func HasAdmin(ctx context.Context, db DBTX) (bool, error) {
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user WHERE role = ?", string(domain.RoleAdmin))
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUser inserts a user after validating the role against the closed role set.
func CreateUser(ctx context.Context, db DBTX, u domain.User) (int64, error) {
	role, err := domain.ParseRole(string(u.Role))
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(u.Email) == "" {
		return 0, errors.New("email is required")
	}
	if strings.TrimSpace(u.PasswordHash) == "" || strings.TrimSpace(u.TOTPSecret) == "" {
		return 0, errors.New("password hash and TOTP secret are required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.ExecContext(
		ctx,
		`INSERT INTO user (email, display_name, role, password_hash, totp_secret, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(u.Email), u.DisplayName, string(role), u.PasswordHash, u.TOTPSecret, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func UpdateUserRole(ctx context.Context, db DBTX, userID int, role domain.Role) error {
	parsed, err := domain.ParseRole(string(role))
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "UPDATE user SET role = ?, updated_at = ? WHERE id = ?", string(parsed), time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteUser removes the user row only. Sessions and passkeys that point at
// it are left for the orphan reconciler.
func DeleteUser(ctx context.Context, db DBTX, userID int) error {
	_, err := db.ExecContext(ctx, "DELETE FROM user WHERE id = ?", userID)
	return err
}
