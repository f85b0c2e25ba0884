package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	"supportkb/internal/domain/repositories"
	wikiRepo "supportkb/internal/domain/repositories/wiki"

	"supportkb/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, title, slug, locale, category, is_archived, is_localizable, parent_id,
	current_revision_id, latest_localizable_revision_id, html, created_at, updated_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) wikiRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Slug,
		&doc.Locale,
		&doc.Category,
		&doc.IsArchived,
		&doc.IsLocalizable,
		&doc.ParentID,
		&doc.CurrentRevisionID,
		&doc.LatestLocalizableRevisionID,
		&doc.HTML,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, slug, locale, category, is_archived, is_localizable, parent_id, html, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	now := time.Now()
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Title,
		doc.Slug,
		doc.Locale,
		doc.Category,
		doc.IsArchived,
		doc.IsLocalizable,
		doc.ParentID,
		doc.HTML,
		now,
		now,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.conflict(ctx, doc, postgres.DuplicateField(err))
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// conflict builds a ConflictError pointing at the document holding the contested value
func (r *PostgresDocumentRepository) conflict(ctx context.Context, doc *models.Document, field string) error {
	var (
		existing *models.Document
		err      error
		message  string
	)
	switch field {
	case "title":
		message = fmt.Sprintf("a document titled '%s' already exists in locale %s", doc.Title, doc.Locale)
		existing, err = r.GetByTitle(ctx, doc.Locale, doc.Title)
	case "slug":
		message = fmt.Sprintf("a document with slug '%s' already exists in locale %s", doc.Slug, doc.Locale)
		existing, err = r.GetBySlug(ctx, doc.Locale, doc.Slug)
	case "locale":
		message = fmt.Sprintf("document already has a translation in locale %s", doc.Locale)
		if doc.ParentID != nil {
			existing, err = r.GetTranslation(ctx, *doc.ParentID, doc.Locale)
		}
	default:
		message = "document already exists"
	}

	conflict := &domain.ConflictError{
		Message:      message,
		ResourceType: "document",
		Field:        field,
	}
	// Inside a failed transaction the lookup errors out; the bare conflict is enough then.
	if err == nil && existing != nil {
		conflict.ResourceID = strconv.FormatInt(existing.ID, 10)
	}
	return conflict
}

func (r *PostgresDocumentRepository) getOne(ctx context.Context, what string, query string, args ...interface{}) (*models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", what)}
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)
	return r.getOne(ctx, strconv.FormatInt(id, 10), query, id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends
func (r *PostgresDocumentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	if repositories.GetTx(ctx) == nil {
		return nil, fmt.Errorf("lock document %d: no transaction in context", id)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, documentColumns, r.tables.Documents)
	return r.getOne(ctx, strconv.FormatInt(id, 10), query, id)
}

// GetByTitle retrieves a document by exact title within a locale
func (r *PostgresDocumentRepository) GetByTitle(ctx context.Context, locale, title string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE locale = $1 AND title = $2`, documentColumns, r.tables.Documents)
	return r.getOne(ctx, fmt.Sprintf("'%s' (%s)", title, locale), query, locale, title)
}

// GetBySlug retrieves a document by slug within a locale
func (r *PostgresDocumentRepository) GetBySlug(ctx context.Context, locale, slug string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE locale = $1 AND slug = $2`, documentColumns, r.tables.Documents)
	return r.getOne(ctx, fmt.Sprintf("%s/%s", locale, slug), query, locale, slug)
}

// GetTranslation returns the translation of parentID into locale
func (r *PostgresDocumentRepository) GetTranslation(ctx context.Context, parentID int64, locale string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id = $1 AND locale = $2`, documentColumns, r.tables.Documents)
	return r.getOne(ctx, fmt.Sprintf("translation of %d into %s", parentID, locale), query, parentID, locale)
}

// ListTranslations lists every translation of an origin document
func (r *PostgresDocumentRepository) ListTranslations(ctx context.Context, parentID int64) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = $1
		ORDER BY locale ASC
	`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// CountTranslations counts translations of an origin document
func (r *PostgresDocumentRepository) CountTranslations(ctx context.Context, parentID int64) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_id = $1`, r.tables.Documents)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, parentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return count, nil
}

// Update writes the editable metadata of a document
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, slug = $2, category = $3, is_archived = $4, is_localizable = $5, updated_at = $6
		WHERE id = $7
		RETURNING updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.Title,
		doc.Slug,
		doc.Category,
		doc.IsArchived,
		doc.IsLocalizable,
		time.Now(),
		doc.ID,
	).Scan(&doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("document %d not found", doc.ID)}
		}
		if postgres.IsPgDuplicateError(err) {
			return r.conflict(ctx, doc, postgres.DuplicateField(err))
		}
		return fmt.Errorf("update document: %w", err)
	}

	return nil
}

// AdvanceCurrentRevision is a compare-and-set on revision id ordering
func (r *PostgresDocumentRepository) AdvanceCurrentRevision(ctx context.Context, docID, revisionID int64, html string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_revision_id = $1, html = $2, updated_at = $3
		WHERE id = $4 AND (current_revision_id IS NULL OR current_revision_id < $1)
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, revisionID, html, time.Now(), docID)
	if err != nil {
		return false, fmt.Errorf("advance current revision: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// AdvanceLatestLocalizable is a compare-and-set on revision id ordering
func (r *PostgresDocumentRepository) AdvanceLatestLocalizable(ctx context.Context, docID, revisionID int64) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET latest_localizable_revision_id = $1, updated_at = $2
		WHERE id = $3 AND (latest_localizable_revision_id IS NULL OR latest_localizable_revision_id < $1)
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, revisionID, time.Now(), docID)
	if err != nil {
		return false, fmt.Errorf("advance latest localizable revision: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// SetRevisionPointers overwrites both revision pointers
func (r *PostgresDocumentRepository) SetRevisionPointers(ctx context.Context, docID int64, current, latestLocalizable *int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_revision_id = $1, latest_localizable_revision_id = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, current, latestLocalizable, time.Now(), docID)
	if err != nil {
		return fmt.Errorf("set revision pointers: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %d not found", docID)}
	}
	return nil
}

// SetHTMLIfCurrent stores html only while revisionID is still current
func (r *PostgresDocumentRepository) SetHTMLIfCurrent(ctx context.Context, docID int64, revisionID *int64, html string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET html = $1, updated_at = $2
		WHERE id = $3 AND current_revision_id IS NOT DISTINCT FROM $4
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, html, time.Now(), docID, revisionID)
	if err != nil {
		return false, fmt.Errorf("set document html: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// PropagateInherited copies category and archived flag to every translation
func (r *PostgresDocumentRepository) PropagateInherited(ctx context.Context, parentID int64, category models.Category, archived bool) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET category = $1, is_archived = $2, updated_at = $3
		WHERE parent_id = $4 AND (category <> $1 OR is_archived <> $2)
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, category, archived, time.Now(), parentID)
	if err != nil {
		return 0, fmt.Errorf("propagate to translations: %w", err)
	}
	return result.RowsAffected(), nil
}

// AddContributors records contributors, ignoring ones already present
func (r *PostgresDocumentRepository) AddContributors(ctx context.Context, docID int64, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, user_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (document_id, user_id) DO NOTHING
	`, r.tables.Contributors)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, docID, userIDs); err != nil {
		return fmt.Errorf("add contributors: %w", err)
	}
	return nil
}

// ListContributors lists contributor user IDs ordered by id
func (r *PostgresDocumentRepository) ListContributors(ctx context.Context, docID int64) ([]string, error) {
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE document_id = $1 ORDER BY user_id`, r.tables.Contributors)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan contributors: %w", err)
	}
	return users, nil
}

// Delete removes a document; revisions, drafts, contributors and anchor records cascade
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return domain.NewValidationError(fmt.Sprintf("document %d still has translations", id))
		}
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %d not found", id)}
	}

	r.logger.Debug("document deleted", "document_id", id)
	return nil
}
