package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

const auditColumns = `id, entity_id, entity_type, action, performed_by, changes, ip_address, timestamp`

// CreateAuditLog appends an entry to the audit trail
func (s *Storage) CreateAuditLog(ctx context.Context, e *models.AuditLog) error {
	query := `INSERT INTO audit_logs (` + auditColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query,
		e.ID, e.EntityID, e.EntityType, e.Action, e.PerformedBy, e.Changes, e.IPAddress, utc(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetAuditLog retrieves an audit entry by ID
func (s *Storage) GetAuditLog(ctx context.Context, id string) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = ?`

	e, err := scanAuditLog(s.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAuditLogNotFound
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}

	return e, nil
}

// ListAuditLogs возвращает записи, новые первыми, с фильтром по действию и сущности
func (s *Storage) ListAuditLogs(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs`

	var (
		conditions []string
		args       []any
	)

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)
	for rows.Next() {
		e, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	e := &models.AuditLog{}

	err := row.Scan(
		&e.ID,
		&e.EntityID,
		&e.EntityType,
		&e.Action,
		&e.PerformedBy,
		&e.Changes,
		&e.IPAddress,
		&e.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	return e, nil
}
