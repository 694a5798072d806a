package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"time"

	"keeper/internal/domain"

	"github.com/go-webauthn/webauthn/webauthn"
)

const passkeyColumns = "id, user_id, name, credential_id, credential_json, created_at, last_used_at"

func ListPasskeys(ctx context.Context, db DBTX, userID int) ([]domain.Passkey, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+passkeyColumns+" FROM passkey WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	return scanPasskeys(rows)
}

// ListAllPasskeys returns every stored credential regardless of owner.
func ListAllPasskeys(ctx context.Context, db DBTX) ([]domain.Passkey, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+passkeyColumns+" FROM passkey ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanPasskeys(rows)
}

func scanPasskeys(rows *sql.Rows) ([]domain.Passkey, error) {
	defer rows.Close()

	var passkeys []domain.Passkey
	for rows.Next() {
		var pk domain.Passkey
		var created string
		var last sql.NullString
		if err := rows.Scan(&pk.ID, &pk.UserID, &pk.Name, &pk.CredentialID, &pk.CredentialJSON, &created, &last); err != nil {
			return nil, err
		}
		pk.CreatedAt, _ = time.Parse(time.RFC3339, created)
		if last.Valid {
			if parsed, err := time.Parse(time.RFC3339, last.String); err == nil {
				pk.LastUsedAt = sql.NullTime{Time: parsed, Valid: true}
			}
		}
		passkeys = append(passkeys, pk)
	}
	return passkeys, rows.Err()
}

func InsertPasskey(ctx context.Context, db DBTX, userID int, name string, credential webauthn.Credential) error {
	payload, err := json.Marshal(credential)
	if err != nil {
		return err
	}
	credentialID := base64.RawURLEncoding.EncodeToString(credential.ID)
	_, err = db.ExecContext(
		ctx,
		"INSERT INTO passkey (user_id, name, credential_id, credential_json, created_at) VALUES (?, ?, ?, ?, ?)",
		userID,
		name,
		credentialID,
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeletePasskeyByID removes a credential regardless of owner; a missing row returns sql.ErrNoRows.
func DeletePasskeyByID(ctx context.Context, db DBTX, id int) error {
	res, err := db.ExecContext(ctx, "DELETE FROM passkey WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
