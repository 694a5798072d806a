package sqlitestore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"keeper/internal/contracts/audit"
	"keeper/internal/domain"
)

const defaultAuditLimit = 50

// WriteAuditLog appends an entry. created_at is strictly increasing in
// insertion order even if the wall clock stalls or steps back.
func WriteAuditLog(ctx context.Context, db DBTX, entry domain.AuditLog) (int64, error) {
	res, err := db.ExecContext(
		ctx,
		`INSERT INTO audit_log (user_id, action_type, details, performed_by, created_at)
         SELECT ?, ?, ?, ?, MAX(?, COALESCE(MAX(created_at), 0) + 1) FROM audit_log`,
		entry.UserID,
		entry.ActionType,
		entry.Details,
		nullInt(entry.PerformedBy),
		time.Now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const auditViewSelect = `SELECT recent.id, recent.user_id, recent.action_type, recent.details, recent.performed_by, recent.created_at,
    subject.id, subject.email, subject.display_name, subject.role,
    performer.id, performer.email, performer.display_name, performer.role`

const auditViewJoins = `
    LEFT JOIN user AS subject ON subject.id = recent.user_id
    LEFT JOIN user AS performer ON performer.id = recent.performed_by`

// ListRecentAuditLogs takes the newest query.Limit entries first and only then
// applies the remaining conditions, so the result never exceeds Limit and may
// hold fewer matches than exist further back in history.
func ListRecentAuditLogs(ctx context.Context, db DBTX, query audit.Query) ([]domain.AuditLogView, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	conds := []string{}
	args := []interface{}{limit}
	if query.ActionType != "" {
		conds = append(conds, "recent.action_type = ?")
		args = append(args, query.ActionType)
	}
	if query.UserID > 0 {
		conds = append(conds, "recent.user_id = ?")
		args = append(args, query.UserID)
	}
	if !query.Since.IsZero() {
		conds = append(conds, "recent.created_at >= ?")
		args = append(args, query.Since.UnixNano())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	stmt := auditViewSelect + `
    FROM (SELECT * FROM audit_log ORDER BY id DESC LIMIT ?) AS recent` + auditViewJoins + where + `
    ORDER BY recent.id DESC`
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return scanAuditViews(rows)
}

// ListAllAuditLogs returns the full log oldest first, for exports.
func ListAllAuditLogs(ctx context.Context, db DBTX) ([]domain.AuditLogView, error) {
	rows, err := db.QueryContext(ctx, auditViewSelect+`
    FROM audit_log AS recent`+auditViewJoins+`
    ORDER BY recent.id`)
	if err != nil {
		return nil, err
	}
	return scanAuditViews(rows)
}

func CountAuditLogs(ctx context.Context, db DBTX) (int, error) {
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAllAuditLogs erases every entry and returns how many were removed.
func DeleteAllAuditLogs(ctx context.Context, db DBTX) (int, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM audit_log")
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type joinedUser struct {
	id          sql.NullInt64
	email       sql.NullString
	displayName sql.NullString
	role        sql.NullString
}

func (j joinedUser) user() *domain.User {
	if !j.id.Valid {
		return nil
	}
	return &domain.User{
		ID:          int(j.id.Int64),
		Email:       j.email.String,
		DisplayName: j.displayName.String,
		Role:        domain.Role(j.role.String),
	}
}

func scanAuditViews(rows *sql.Rows) ([]domain.AuditLogView, error) {
	defer rows.Close()

	var logs []domain.AuditLogView
	for rows.Next() {
		var view domain.AuditLogView
		var created int64
		var subject, performer joinedUser
		if err := rows.Scan(
			&view.ID, &view.UserID, &view.ActionType, &view.Details, &view.PerformedBy, &created,
			&subject.id, &subject.email, &subject.displayName, &subject.role,
			&performer.id, &performer.email, &performer.displayName, &performer.role,
		); err != nil {
			return nil, err
		}
		view.CreatedAt = time.Unix(0, created)
		view.User = subject.user()
		view.Performer = performer.user()
		logs = append(logs, view)
	}
	return logs, rows.Err()
}
