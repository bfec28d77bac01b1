package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/lib/pq"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, owner_id, account_type, balance, state, children, features, pin_hash, created_at, updated_at`

func (r *AccountRepository) Get(ctx context.Context, id string) (domain.Account, error) {
	const query = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		logger.Error("account repository get failed", err, logger.Fields{"accountId": id})
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

// Save upserts all accounts inside one database transaction.
func (r *AccountRepository) Save(ctx context.Context, accounts ...domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	const query = `
INSERT INTO accounts (
	id,
	owner_id,
	account_type,
	balance,
	state,
	children,
	features,
	pin_hash,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	owner_id = EXCLUDED.owner_id,
	balance = EXCLUDED.balance,
	state = EXCLUDED.state,
	children = EXCLUDED.children,
	features = EXCLUDED.features,
	pin_hash = EXCLUDED.pin_hash,
	updated_at = EXCLUDED.updated_at`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save accounts: %w", err)
	}

	for _, account := range accounts {
		features, err := json.Marshal(featuresOrEmpty(account.Features))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode features for account %s: %w", account.ID, err)
		}

		updatedAt := account.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}

		if _, err := tx.ExecContext(
			ctx,
			query,
			account.ID,
			account.OwnerID,
			string(account.Type),
			account.Balance,
			string(account.StateName()),
			pq.Array(childrenOrEmpty(account.Children)),
			features,
			account.PinHash,
			account.CreatedAt,
			updatedAt,
		); err != nil {
			_ = tx.Rollback()
			logger.Error("account repository save failed", err, logger.Fields{"accountId": account.ID})
			return fmt.Errorf("save account %s: %w", account.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save accounts: %w", err)
	}
	return nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	const query = `
SELECT ` + accountColumns + `
FROM accounts
WHERE owner_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		logger.Error("account repository list by owner failed", err, logger.Fields{"ownerId": ownerID})
		return nil, fmt.Errorf("list accounts by owner: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) FindParent(ctx context.Context, childID string) (domain.Account, error) {
	const query = `
SELECT ` + accountColumns + `
FROM accounts
WHERE $1 = ANY(children)
ORDER BY created_at ASC, id ASC
LIMIT 1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, childID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		logger.Error("account repository find parent failed", err, logger.Fields{"childId": childID})
		return domain.Account{}, fmt.Errorf("find parent account: %w", err)
	}

	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		account     domain.Account
		accountType string
		state       string
		children    []string
		features    []byte
	)

	if err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&accountType,
		&account.Balance,
		&state,
		pq.Array(&children),
		&features,
		&account.PinHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.Account{}, err
	}

	resolved, err := domain.StateFor(domain.StateTag(state))
	if err != nil {
		return domain.Account{}, fmt.Errorf("account %s: %w", account.ID, err)
	}
	account.Type = domain.AccountType(accountType)
	account.State = resolved
	if len(children) > 0 {
		account.Children = children
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &account.Features); err != nil {
			return domain.Account{}, fmt.Errorf("decode features for account %s: %w", account.ID, err)
		}
		if len(account.Features) == 0 {
			account.Features = nil
		}
	}

	return account, nil
}

func childrenOrEmpty(children []string) []string {
	if children == nil {
		return []string{}
	}
	return children
}

func featuresOrEmpty(features []domain.Feature) []domain.Feature {
	if features == nil {
		return []domain.Feature{}
	}
	return features
}
