package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/lib/pq"
)

type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append inserts one record. Re-appending an event that is already recorded
// is a no-op.
func (s *AuditStore) Append(ctx context.Context, record domain.AuditRecord) error {
	const query = `
INSERT INTO audit_log (
	id,
	event_id,
	kind,
	actor_id,
	actor_role,
	transaction_id,
	status,
	amount,
	account_ids,
	detail,
	occurred_at,
	recorded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var status sql.NullString
	if record.Status != nil {
		status = sql.NullString{String: string(*record.Status), Valid: true}
	}

	if _, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.EventID,
		string(record.Kind),
		record.ActorID,
		string(record.ActorRole),
		nullString(record.TransactionID),
		status,
		record.Amount,
		pq.Array(childrenOrEmpty(record.AccountIDs)),
		record.Detail,
		record.OccurredAt,
		record.RecordedAt,
	); err != nil {
		if isUniqueViolation(err) {
			logger.Warn("audit record already stored", logger.Fields{"eventId": record.EventID})
			return nil
		}
		return fmt.Errorf("append audit record: %w", err)
	}

	return nil
}

func (s *AuditStore) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	const query = `
SELECT id, event_id, kind, actor_id, actor_role, transaction_id, status, amount, account_ids, detail, occurred_at, recorded_at
FROM audit_log
ORDER BY seq DESC
LIMIT $1`

	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, lim)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AuditRecord, 0)
	for rows.Next() {
		var (
			record        domain.AuditRecord
			kind          string
			role          string
			transactionID sql.NullString
			status        sql.NullString
			accountIDs    []string
		)
		if err := rows.Scan(
			&record.ID,
			&record.EventID,
			&kind,
			&record.ActorID,
			&role,
			&transactionID,
			&status,
			&record.Amount,
			pq.Array(&accountIDs),
			&record.Detail,
			&record.OccurredAt,
			&record.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.Kind = domain.EventKind(kind)
		record.ActorRole = domain.Role(role)
		record.TransactionID = stringPtr(transactionID)
		if status.Valid {
			st := domain.TransactionStatus(status.String)
			record.Status = &st
		}
		if len(accountIDs) > 0 {
			record.AccountIDs = accountIDs
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}

	return out, nil
}
