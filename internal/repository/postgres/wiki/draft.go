package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiRepo "supportkb/internal/domain/repositories/wiki"

	"supportkb/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDraftRepository implements the DraftRepository interface
type PostgresDraftRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(config *postgres.RepositoryConfig) wikiRepo.DraftRepository {
	return &PostgresDraftRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Upsert creates or replaces the creator's draft. The stored id and
// created_at of an existing draft are kept and written back into draft.
func (r *PostgresDraftRepository) Upsert(ctx context.Context, draft *models.DraftRevision) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, creator_id, document_id, locale, based_on_id, title, slug, summary, keywords, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (creator_id, document_id, locale) DO UPDATE
		SET based_on_id = EXCLUDED.based_on_id,
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			summary = EXCLUDED.summary,
			keywords = EXCLUDED.keywords,
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, r.tables.Drafts)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		draft.ID,
		draft.CreatorID,
		draft.DocumentID,
		draft.Locale,
		draft.BasedOnID,
		draft.Title,
		draft.Slug,
		draft.Summary,
		draft.Keywords,
		draft.Content,
		time.Now(),
	).Scan(&draft.ID, &draft.CreatedAt, &draft.UpdatedAt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("document %d not found", draft.DocumentID)}
		}
		return fmt.Errorf("upsert draft: %w", err)
	}

	return nil
}

// Get returns the creator's draft for the document and locale
func (r *PostgresDraftRepository) Get(ctx context.Context, creatorID string, docID int64, locale string) (*models.DraftRevision, error) {
	query := fmt.Sprintf(`
		SELECT id, creator_id, document_id, locale, based_on_id, title, slug, summary, keywords, content, created_at, updated_at
		FROM %s
		WHERE creator_id = $1 AND document_id = $2 AND locale = $3
	`, r.tables.Drafts)

	var d models.DraftRevision
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, creatorID, docID, locale).Scan(
		&d.ID,
		&d.CreatorID,
		&d.DocumentID,
		&d.Locale,
		&d.BasedOnID,
		&d.Title,
		&d.Slug,
		&d.Summary,
		&d.Keywords,
		&d.Content,
		&d.CreatedAt,
		&d.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no draft of document %d in %s", docID, locale)}
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}

	return &d, nil
}

// Delete removes the draft if present
func (r *PostgresDraftRepository) Delete(ctx context.Context, creatorID string, docID int64, locale string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE creator_id = $1 AND document_id = $2 AND locale = $3
	`, r.tables.Drafts)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, creatorID, docID, locale); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
