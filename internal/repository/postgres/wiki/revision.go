package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"

	"supportkb/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const revisionColumns = `id, document_id, content, summary, keywords, comment, significance, creator_id,
	reviewer_id, created_at, reviewed_at, is_approved, is_ready_for_localization,
	readied_for_localization_at, readied_for_localization_by, based_on_id`

// PostgresRevisionRepository implements the RevisionRepository interface
type PostgresRevisionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(config *postgres.RepositoryConfig) wikiRepo.RevisionRepository {
	return &PostgresRevisionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanRevision(row pgx.Row) (*models.Revision, error) {
	var rev models.Revision
	err := row.Scan(
		&rev.ID,
		&rev.DocumentID,
		&rev.Content,
		&rev.Summary,
		&rev.Keywords,
		&rev.Comment,
		&rev.Significance,
		&rev.CreatorID,
		&rev.ReviewerID,
		&rev.CreatedAt,
		&rev.ReviewedAt,
		&rev.IsApproved,
		&rev.IsReadyForLocalization,
		&rev.ReadiedForLocalizationAt,
		&rev.ReadiedForLocalizationBy,
		&rev.BasedOnID,
	)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Create creates a new revision
func (r *PostgresRevisionRepository) Create(ctx context.Context, rev *models.Revision) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, content, summary, keywords, comment, significance, creator_id,
			reviewer_id, reviewed_at, is_approved, based_on_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		rev.DocumentID,
		rev.Content,
		rev.Summary,
		rev.Keywords,
		rev.Comment,
		rev.Significance,
		rev.CreatorID,
		rev.ReviewerID,
		rev.ReviewedAt,
		rev.IsApproved,
		rev.BasedOnID,
	).Scan(&rev.ID, &rev.CreatedAt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("document %d or based_on revision not found", rev.DocumentID)}
		}
		return fmt.Errorf("create revision: %w", err)
	}

	return nil
}

func (r *PostgresRevisionRepository) getOne(ctx context.Context, what string, query string, args ...interface{}) (*models.Revision, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rev, err := scanRevision(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: what}
		}
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return rev, nil
}

// GetByID retrieves a revision by ID
func (r *PostgresRevisionRepository) GetByID(ctx context.Context, id int64) (*models.Revision, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, revisionColumns, r.tables.Revisions)
	return r.getOne(ctx, fmt.Sprintf("revision %d not found", id), query, id)
}

// ListByDocument lists a document's revisions, newest first
func (r *PostgresRevisionRepository) ListByDocument(ctx context.Context, docID int64) ([]models.Revision, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE document_id = $1
		ORDER BY id DESC
	`, revisionColumns, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revisions []models.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, *rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}

	return revisions, nil
}

// Review records an approval or rejection
func (r *PostgresRevisionRepository) Review(ctx context.Context, id int64, update wikiRepo.ReviewUpdate) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_approved = $1, reviewer_id = $2, reviewed_at = $3,
			significance = COALESCE($4, significance), comment = $5,
			is_ready_for_localization = (is_ready_for_localization AND $1)
		WHERE id = $6
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		update.Approved,
		update.ReviewerID,
		update.ReviewedAt,
		update.Significance,
		update.Comment,
		id,
	)
	if err != nil {
		return fmt.Errorf("review revision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("revision %d not found", id)}
	}
	return nil
}

// MarkReadyForLocalization sets the readiness flag, timestamp and approver
func (r *PostgresRevisionRepository) MarkReadyForLocalization(ctx context.Context, id int64, by string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_ready_for_localization = TRUE, readied_for_localization_at = $1, readied_for_localization_by = $2
		WHERE id = $3
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, by, id)
	if err != nil {
		return fmt.Errorf("mark ready for localization: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("revision %d not found", id)}
	}
	return nil
}

// Delete removes a revision
func (r *PostgresRevisionRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete revision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("revision %d not found", id)}
	}
	return nil
}

// ClearBasedOn detaches translations from a revision about to be deleted
func (r *PostgresRevisionRepository) ClearBasedOn(ctx context.Context, revisionID int64) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET based_on_id = NULL WHERE based_on_id = $1`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, revisionID)
	if err != nil {
		return 0, fmt.Errorf("clear based_on: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresRevisionRepository) latestWhere(ctx context.Context, docID int64, predicate, what string) (*models.Revision, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE document_id = $1 AND %s
		ORDER BY id DESC
		LIMIT 1
	`, revisionColumns, r.tables.Revisions, predicate)
	return r.getOne(ctx, fmt.Sprintf("document %s has no %s revision", strconv.FormatInt(docID, 10), what), query, docID)
}

// LatestApproved returns the highest-id approved revision
func (r *PostgresRevisionRepository) LatestApproved(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "is_approved", "approved")
}

// LatestReadyForLocalization returns the highest-id approved, ready revision
func (r *PostgresRevisionRepository) LatestReadyForLocalization(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "is_approved AND is_ready_for_localization", "localizable")
}

// LatestUnrejected returns the highest-id revision not explicitly rejected
func (r *PostgresRevisionRepository) LatestUnrejected(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "(is_approved OR reviewed_at IS NULL)", "unrejected")
}

// Latest returns the highest-id revision of any kind
func (r *PostgresRevisionRepository) Latest(ctx context.Context, docID int64) (*models.Revision, error) {
	return r.latestWhere(ctx, docID, "TRUE", "stored")
}

// ListCreatorsInRange returns distinct creators of non-rejected revisions in (afterID, uptoID]
func (r *PostgresRevisionRepository) ListCreatorsInRange(ctx context.Context, docID int64, afterID *int64, uptoID int64) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT creator_id FROM %s
		WHERE document_id = $1
			AND ($2::bigint IS NULL OR id > $2)
			AND id <= $3
			AND (is_approved OR reviewed_at IS NULL)
		ORDER BY creator_id
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, docID, afterID, uptoID)
	if err != nil {
		return nil, fmt.Errorf("list revision creators: %w", err)
	}

	creators, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan revision creators: %w", err)
	}
	return creators, nil
}

// HasReadyForLocalizationAfter backs the outdated-translation check
func (r *PostgresRevisionRepository) HasReadyForLocalizationAfter(ctx context.Context, docID, afterID int64, minSignificance models.Significance) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE document_id = $1
				AND is_approved AND is_ready_for_localization
				AND id > $2
				AND COALESCE(significance, 0) >= $3
		)
	`, r.tables.Revisions)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, docID, afterID, minSignificance).Scan(&exists); err != nil {
		return false, fmt.Errorf("check newer localizable revisions: %w", err)
	}
	return exists, nil
}
