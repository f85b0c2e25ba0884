package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"

	"supportkb/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAnchorRecordRepository implements the AnchorRecordRepository interface
type PostgresAnchorRecordRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewAnchorRecordRepository creates a new anchor record repository
func NewAnchorRecordRepository(config *postgres.RepositoryConfig) wikiRepo.AnchorRecordRepository {
	return &PostgresAnchorRecordRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get returns the record for a revision
func (r *PostgresAnchorRecordRepository) Get(ctx context.Context, revisionID int64) (*models.RevisionAnchorRecord, error) {
	query := fmt.Sprintf(`
		SELECT revision_id, anchor_map, explanation, created_at
		FROM %s
		WHERE revision_id = $1
	`, r.tables.AnchorRecords)

	var (
		record  models.RevisionAnchorRecord
		rawJSON []byte
	)
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, revisionID).Scan(
		&record.RevisionID,
		&rawJSON,
		&record.Explanation,
		&record.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no anchor record for revision %d", revisionID)}
		}
		return nil, fmt.Errorf("get anchor record: %w", err)
	}

	if err := json.Unmarshal(rawJSON, &record.Map); err != nil {
		return nil, fmt.Errorf("decode anchor map of revision %d: %w", revisionID, err)
	}
	if record.Map == nil {
		record.Map = map[string]string{}
	}

	return &record, nil
}

// CreateIfAbsent inserts the record unless one already exists for the revision
func (r *PostgresAnchorRecordRepository) CreateIfAbsent(ctx context.Context, record *models.RevisionAnchorRecord) (bool, error) {
	anchorMap := record.Map
	if anchorMap == nil {
		anchorMap = map[string]string{}
	}
	rawJSON, err := json.Marshal(anchorMap)
	if err != nil {
		return false, fmt.Errorf("encode anchor map: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (revision_id, anchor_map, explanation, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (revision_id) DO NOTHING
	`, r.tables.AnchorRecords)

	now := time.Now()
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, record.RevisionID, rawJSON, record.Explanation, now)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return false, &domain.NotFoundError{Message: fmt.Sprintf("revision %d not found", record.RevisionID)}
		}
		return false, fmt.Errorf("create anchor record: %w", err)
	}

	created := result.RowsAffected() == 1
	if created {
		record.CreatedAt = now
	}
	return created, nil
}
