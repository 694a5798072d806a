package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"keeper/internal/domain"
)

func CreateChecklist(ctx context.Context, db DBTX, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("name is required")
	}
	res, err := db.ExecContext(ctx, "INSERT INTO checklist (name) VALUES (?)", strings.TrimSpace(name))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddChecklistItem appends an item at the end of the checklist.
func AddChecklistItem(ctx context.Context, db DBTX, checklistID int, label string) (int64, error) {
	res, err := db.ExecContext(
		ctx,
		"INSERT INTO checklist_item (checklist_id, label, position) SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM checklist_item WHERE checklist_id = ?",
		checklistID,
		strings.TrimSpace(label),
		checklistID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetChecklistItem(ctx context.Context, db DBTX, id int) (domain.ChecklistItem, error) {
	row := db.QueryRowContext(ctx, "SELECT id, checklist_id, label, position FROM checklist_item WHERE id = ?", id)
	var item domain.ChecklistItem
	if err := row.Scan(&item.ID, &item.ChecklistID, &item.Label, &item.Position); err != nil {
		return domain.ChecklistItem{}, err
	}
	return item, nil
}

func ListChecklistItems(ctx context.Context, db DBTX, checklistID int) ([]domain.ChecklistItem, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, checklist_id, label, position FROM checklist_item WHERE checklist_id = ? ORDER BY position, id", checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ChecklistItem
	for rows.Next() {
		var item domain.ChecklistItem
		if err := rows.Scan(&item.ID, &item.ChecklistID, &item.Label, &item.Position); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func CountChecklistItems(ctx context.Context, db DBTX, checklistID int) (int, error) {
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checklist_item WHERE checklist_id = ?", checklistID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func DeleteChecklistItem(ctx context.Context, db DBTX, id int) error {
	res, err := db.ExecContext(ctx, "DELETE FROM checklist_item WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
