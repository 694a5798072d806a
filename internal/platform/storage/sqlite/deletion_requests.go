package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"keeper/internal/domain"
)

const deletionRequestColumns = "id, entity_type, entity_id, entity_name, status, requested_by, COALESCE(reason,''), resolved_by, resolved_at, created_at"

// InsertDeletionRequest stores a new pending request. created_at is assigned
// in the same statement so it never goes backwards across inserts.
func InsertDeletionRequest(ctx context.Context, db DBTX, req domain.DeletionRequest) (int64, error) {
	res, err := db.ExecContext(
		ctx,
		`INSERT INTO deletion_request (entity_type, entity_id, entity_name, status, requested_by, reason, created_at)
         SELECT ?, ?, ?, ?, ?, ?, MAX(?, COALESCE(MAX(created_at), 0) + 1) FROM deletion_request`,
		string(req.EntityType),
		req.EntityID,
		req.EntityName,
		string(domain.DeletionPending),
		req.RequestedBy,
		req.Reason,
		time.Now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetDeletionRequest(ctx context.Context, db DBTX, id int) (domain.DeletionRequest, error) {
	row := db.QueryRowContext(ctx, "SELECT "+deletionRequestColumns+" FROM deletion_request WHERE id = ?", id)
	return scanDeletionRequest(row)
}

// ResolveDeletionRequest patches status only while the row is still pending,
// so two racing resolutions cannot both succeed.
func ResolveDeletionRequest(ctx context.Context, db DBTX, id int, status domain.DeletionStatus, resolvedBy int) (bool, error) {
	res, err := db.ExecContext(
		ctx,
		"UPDATE deletion_request SET status = ?, resolved_by = ?, resolved_at = ? WHERE id = ? AND status = ?",
		string(status),
		resolvedBy,
		time.Now().UTC().Format(time.RFC3339),
		id,
		string(domain.DeletionPending),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func ListDeletionRequestsByStatus(ctx context.Context, db DBTX, status domain.DeletionStatus) ([]domain.DeletionRequest, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+deletionRequestColumns+" FROM deletion_request WHERE status = ? ORDER BY created_at DESC, id DESC", string(status))
	if err != nil {
		return nil, err
	}
	return scanDeletionRequests(rows)
}

func ListDeletionRequestsByEntityType(ctx context.Context, db DBTX, entityType domain.EntityType) ([]domain.DeletionRequest, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+deletionRequestColumns+" FROM deletion_request WHERE entity_type = ? ORDER BY created_at DESC, id DESC", string(entityType))
	if err != nil {
		return nil, err
	}
	return scanDeletionRequests(rows)
}

func scanDeletionRequests(rows *sql.Rows) ([]domain.DeletionRequest, error) {
	defer rows.Close()

	var out []domain.DeletionRequest
	for rows.Next() {
		req, err := scanDeletionRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanDeletionRequest(row interface{ Scan(...interface{}) error }) (domain.DeletionRequest, error) {
	var req domain.DeletionRequest
	var entityType, status string
	var resolvedAt sql.NullString
	var created int64
	if err := row.Scan(&req.ID, &entityType, &req.EntityID, &req.EntityName, &status, &req.RequestedBy, &req.Reason, &req.ResolvedBy, &resolvedAt, &created); err != nil {
		return domain.DeletionRequest{}, err
	}
	req.EntityType = domain.EntityType(entityType)
	req.Status = domain.DeletionStatus(status)
	req.ResolvedAt = parseNullTime(resolvedAt)
	req.CreatedAt = time.Unix(0, created)
	return req, nil
}

// parseNullTime converts a nullable RFC3339 string into sql.NullTime.
func parseNullTime(value sql.NullString) sql.NullTime {
	if !value.Valid || value.String == "" {
		return sql.NullTime{}
	}
	parsed, err := time.Parse(time.RFC3339, value.String)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: parsed, Valid: true}
}
