package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/lib/pq"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, transaction_type, amount, source_account_id, target_account_id, description, status,
	requested_by, requested_role, decided_by, decided_at, failure_reason, created_at, updated_at`

// Save inserts or updates tx. A row already in a terminal status is never
// overwritten.
func (r *TransactionRepository) Save(ctx context.Context, tx domain.Transaction) error {
	const query = `
INSERT INTO transactions (
	id,
	transaction_type,
	amount,
	source_account_id,
	target_account_id,
	description,
	status,
	requested_by,
	requested_role,
	decided_by,
	decided_at,
	failure_reason,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	decided_by = EXCLUDED.decided_by,
	decided_at = EXCLUDED.decided_at,
	failure_reason = EXCLUDED.failure_reason,
	updated_at = EXCLUDED.updated_at
WHERE transactions.status NOT IN ('COMPLETED', 'REJECTED', 'FAILED')`

	result, err := r.db.ExecContext(
		ctx,
		query,
		tx.ID,
		string(tx.Type),
		tx.Amount,
		nullString(tx.SourceAccountID),
		nullString(tx.TargetAccountID),
		tx.Description,
		string(tx.Status),
		tx.RequestedBy,
		string(tx.RequestedRole),
		nullString(tx.DecidedBy),
		nullTime(tx.DecidedAt),
		nullString(tx.FailureReason),
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		logger.Error("transaction repository save failed", err, logger.Fields{
			"transactionId": tx.ID,
			"status":        string(tx.Status),
		})
		return fmt.Errorf("save transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save transaction rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("save transaction %s: %w", tx.ID, repo_interfaces.ErrTerminalTransaction)
	}

	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	const query = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrRecordNotFound
		}
		logger.Error("transaction repository get failed", err, logger.Fields{"transactionId": id})
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return tx, nil
}

func (r *TransactionRepository) ListPending(ctx context.Context, tiers ...domain.TransactionStatus) ([]domain.Transaction, error) {
	const query = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE status = ANY($1)
ORDER BY created_at ASC, id ASC`

	statuses := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		statuses = append(statuses, string(tier))
	}

	return r.list(ctx, "list pending transactions", query, pq.Array(statuses))
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	const query = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE source_account_id = $1 OR target_account_id = $1
ORDER BY created_at ASC, id ASC`

	return r.list(ctx, "list transactions by account", query, accountID)
}

func (r *TransactionRepository) list(ctx context.Context, op string, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("transaction repository query failed", err, logger.Fields{"operation": op})
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s iterate: %w", op, err)
	}

	return out, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx            domain.Transaction
		txType        string
		status        string
		role          string
		source        sql.NullString
		target        sql.NullString
		decidedBy     sql.NullString
		decidedAt     sql.NullTime
		failureReason sql.NullString
	)

	if err := row.Scan(
		&tx.ID,
		&txType,
		&tx.Amount,
		&source,
		&target,
		&tx.Description,
		&status,
		&tx.RequestedBy,
		&role,
		&decidedBy,
		&decidedAt,
		&failureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.Status = domain.TransactionStatus(status)
	tx.RequestedRole = domain.Role(role)
	tx.SourceAccountID = stringPtr(source)
	tx.TargetAccountID = stringPtr(target)
	tx.DecidedBy = stringPtr(decidedBy)
	tx.DecidedAt = timePtr(decidedAt)
	tx.FailureReason = stringPtr(failureReason)

	return tx, nil
}
