// Package app assembles storage and services from configuration. Both the
// HTTP server and kbctl start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"supportkb/internal/config"
	"supportkb/internal/domain/repositories"
	wikiRepo "supportkb/internal/domain/repositories/wiki"
	"supportkb/internal/repository/memory"
	"supportkb/internal/repository/postgres"
	postgresWiki "supportkb/internal/repository/postgres/wiki"
)

// Storage is the ContentStore: one repository per record kind plus the
// transaction manager that spans them
type Storage struct {
	Documents     wikiRepo.DocumentRepository
	Revisions     wikiRepo.RevisionRepository
	Drafts        wikiRepo.DraftRepository
	AnchorRecords wikiRepo.AnchorRecordRepository
	TxManager     repositories.TransactionManager

	// Pool is nil for the memory backend
	Pool   *pgxpool.Pool
	Tables *postgres.TableNames
}

// Close releases the database pool, if any
func (s *Storage) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStorage opens the configured backend. The postgres backend connects
// but does not create tables; call EnsureSchema for that.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.StorageBackend {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on exit")
		repos := memory.NewStore().Repositories()
		return &Storage{
			Documents:     repos.Documents,
			Revisions:     repos.Revisions,
			Drafts:        repos.Drafts,
			AnchorRecords: repos.AnchorRecords,
			TxManager:     repos.TxManager,
		}, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		return &Storage{
			Documents:     postgresWiki.NewDocumentRepository(repoConfig),
			Revisions:     postgresWiki.NewRevisionRepository(repoConfig),
			Drafts:        postgresWiki.NewDraftRepository(repoConfig),
			AnchorRecords: postgresWiki.NewAnchorRecordRepository(repoConfig),
			TxManager:     postgres.NewTransactionManager(pool, logger),
			Pool:          pool,
			Tables:        repoConfig.Tables,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// EnsureSchema creates missing tables; a no-op for the memory backend
func (s *Storage) EnsureSchema(ctx context.Context, logger *slog.Logger) error {
	if s.Pool == nil {
		return nil
	}
	return postgres.EnsureSchema(ctx, s.Pool, s.Tables, logger)
}

// DropSchema drops every table; a no-op for the memory backend
func (s *Storage) DropSchema(ctx context.Context, logger *slog.Logger) error {
	if s.Pool == nil {
		return nil
	}
	return postgres.DropSchema(ctx, s.Pool, s.Tables, logger)
}
