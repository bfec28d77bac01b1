// Package sqlite provides an embedded, file-backed audit trail for
// deployments that keep accounts in memory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	event_id TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	actor_role TEXT NOT NULL,
	transaction_id TEXT NULL,
	status TEXT NULL,
	amount TEXT NULL,
	account_ids TEXT NOT NULL DEFAULT '[]',
	detail TEXT NOT NULL DEFAULT '',
	occurred_at INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE TRIGGER IF NOT EXISTS audit_log_no_update
BEFORE UPDATE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'audit_log is append-only');
END;

CREATE TRIGGER IF NOT EXISTS audit_log_no_delete
BEFORE DELETE ON audit_log
BEGIN
	SELECT RAISE(ABORT, 'audit_log is append-only');
END;`

// AuditStore persists audit records in SQLite.
type AuditStore struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the audit database at path and creates its schema.
func Open(path string) (*AuditStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &AuditStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *AuditStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append inserts one record. An event that is already recorded is ignored.
func (s *AuditStore) Append(ctx context.Context, record domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	accountIDs, err := json.Marshal(nonNil(record.AccountIDs))
	if err != nil {
		return fmt.Errorf("encode account ids: %w", err)
	}

	var status sql.NullString
	if record.Status != nil {
		status = sql.NullString{String: string(*record.Status), Valid: true}
	}
	var transactionID sql.NullString
	if record.TransactionID != nil {
		transactionID = sql.NullString{String: *record.TransactionID, Valid: true}
	}
	var amount sql.NullString
	if record.Amount.Valid {
		amount = sql.NullString{String: record.Amount.Decimal.String(), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO audit_log (
		   id, event_id, kind, actor_id, actor_role, transaction_id, status,
		   amount, account_ids, detail, occurred_at, recorded_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.EventID,
		string(record.Kind),
		record.ActorID,
		string(record.ActorRole),
		transactionID,
		status,
		amount,
		string(accountIDs),
		record.Detail,
		toMillis(record.OccurredAt),
		toMillis(record.RecordedAt),
	)
	if err != nil {
		if isConstraintUnique(err) {
			return nil
		}
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *AuditStore) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, event_id, kind, actor_id, actor_role, transaction_id, status,
		        amount, account_ids, detail, occurred_at, recorded_at
		 FROM audit_log
		 ORDER BY seq DESC
		 LIMIT ?`,
		limit,
	)
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
			amount        sql.NullString
			accountIDs    string
			occurredAt    int64
			recordedAt    int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.EventID,
			&kind,
			&record.ActorID,
			&role,
			&transactionID,
			&status,
			&amount,
			&accountIDs,
			&record.Detail,
			&occurredAt,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		record.Kind = domain.EventKind(kind)
		record.ActorRole = domain.Role(role)
		record.OccurredAt = fromMillis(occurredAt)
		record.RecordedAt = fromMillis(recordedAt)
		if transactionID.Valid {
			id := transactionID.String
			record.TransactionID = &id
		}
		if status.Valid {
			st := domain.TransactionStatus(status.String)
			record.Status = &st
		}
		if amount.Valid {
			parsed, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("decode audit amount: %w", err)
			}
			record.Amount = decimal.NewNullDecimal(parsed)
		}
		if err := json.Unmarshal([]byte(accountIDs), &record.AccountIDs); err != nil {
			return nil, fmt.Errorf("decode audit account ids: %w", err)
		}
		if len(record.AccountIDs) == 0 {
			record.AccountIDs = nil
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

func isConstraintUnique(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
