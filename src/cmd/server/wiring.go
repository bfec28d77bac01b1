package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/postgres"
	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/sqlite"
	"github.com/api-sage/core-banking-engine/src/internal/config"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
)

type storage struct {
	accounts     repo_interfaces.AccountRepository
	transactions repo_interfaces.TransactionRepository
	audit        repo_interfaces.AuditStore
	closers      []func() error
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Error("close storage", err, nil)
		}
	}
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	s := &storage{}

	var db *sql.DB
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)

		if err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			s.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		s.accounts = postgres.NewAccountRepository(db)
		s.transactions = postgres.NewTransactionRepository(db)
	default:
		s.accounts = memory.NewAccountRepository()
		s.transactions = memory.NewTransactionRepository()
	}

	switch cfg.AuditDriver {
	case config.AuditSQLite:
		store, err := sqlite.Open(cfg.AuditSQLitePath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		s.audit = store
	case config.StoragePostgres:
		s.audit = postgres.NewAuditStore(db)
	default:
		s.audit = memory.NewAuditStore()
	}

	logger.Info("storage ready", logger.Fields{
		"storageDriver": cfg.StorageDriver,
		"auditDriver":   cfg.AuditDriver,
	})
	return s, nil
}
