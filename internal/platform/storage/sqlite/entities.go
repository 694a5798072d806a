package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"keeper/internal/domain"
)

// GetEntity returns a record of the given kind.
func GetEntity(ctx context.Context, db DBTX, entityType domain.EntityType, id int) (domain.Entity, error) {
	row := db.QueryRowContext(ctx, "SELECT id, type, name, updated_at FROM entity WHERE id = ? AND type = ?", id, string(entityType))
	return scanEntity(row)
}

// ListEntities returns every record of the given kind ordered by id.
func ListEntities(ctx context.Context, db DBTX, entityType domain.EntityType) ([]domain.Entity, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, type, name, updated_at FROM entity WHERE type = ? ORDER BY id", string(entityType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

func CreateEntity(ctx context.Context, db DBTX, entityType domain.EntityType, name string) (int64, error) {
	if _, err := domain.ParseEntityType(string(entityType)); err != nil {
		return 0, err
	}
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("name is required")
	}
	res, err := db.ExecContext(ctx, "INSERT INTO entity (type, name, updated_at) VALUES (?, ?, ?)", string(entityType), strings.TrimSpace(name), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func RenameEntity(ctx context.Context, db DBTX, entityType domain.EntityType, id int, name string) error {
	res, err := db.ExecContext(ctx, "UPDATE entity SET name = ?, updated_at = ? WHERE id = ? AND type = ?", strings.TrimSpace(name), time.Now().UTC().Format(time.RFC3339), id, string(entityType))
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteEntity removes a record; a missing record returns sql.ErrNoRows.
func DeleteEntity(ctx context.Context, db DBTX, entityType domain.EntityType, id int) error {
	res, err := db.ExecContext(ctx, "DELETE FROM entity WHERE id = ? AND type = ?", id, string(entityType))
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanEntity(row interface{ Scan(...interface{}) error }) (domain.Entity, error) {
	var entity domain.Entity
	var typ, updated string
	if err := row.Scan(&entity.ID, &typ, &entity.Name, &updated); err != nil {
		return domain.Entity{}, err
	}
	entity.Type = domain.EntityType(typ)
	entity.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return entity, nil
}
