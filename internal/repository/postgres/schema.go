package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates tables and indexes if they don't exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	p := tables.Prefix

	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			locale TEXT NOT NULL,
			category INTEGER NOT NULL,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			is_localizable BOOLEAN NOT NULL DEFAULT TRUE,
			parent_id BIGINT REFERENCES %[1]s(id) ON DELETE RESTRICT,
			current_revision_id BIGINT,
			latest_localizable_revision_id BIGINT,
			html TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT %[2]sdocuments_locale_title_key UNIQUE (locale, title),
			CONSTRAINT %[2]sdocuments_locale_slug_key UNIQUE (locale, slug),
			CONSTRAINT %[2]sdocuments_parent_locale_key UNIQUE (parent_id, locale),
			CONSTRAINT %[2]sdocuments_translation_not_localizable
				CHECK (parent_id IS NULL OR is_localizable = FALSE)
		)`, tables.Documents, p),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			document_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			comment TEXT NOT NULL DEFAULT '',
			significance INTEGER,
			creator_id TEXT NOT NULL,
			reviewer_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reviewed_at TIMESTAMPTZ,
			is_approved BOOLEAN NOT NULL DEFAULT FALSE,
			is_ready_for_localization BOOLEAN NOT NULL DEFAULT FALSE,
			readied_for_localization_at TIMESTAMPTZ,
			readied_for_localization_by TEXT,
			based_on_id BIGINT REFERENCES %s(id) ON DELETE SET NULL,
			CONSTRAINT %srevisions_ready_requires_approval
				CHECK (is_ready_for_localization = FALSE OR is_approved = TRUE)
		)`, tables.Revisions, tables.Documents, tables.Revisions, p),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			document_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			PRIMARY KEY (document_id, user_id)
		)`, tables.Contributors, tables.Documents),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			creator_id TEXT NOT NULL,
			document_id BIGINT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			locale TEXT NOT NULL,
			based_on_id BIGINT REFERENCES %s(id) ON DELETE SET NULL,
			title TEXT NOT NULL DEFAULT '',
			slug TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT %sdrafts_owner_key UNIQUE (creator_id, document_id, locale)
		)`, tables.Drafts, tables.Documents, tables.Revisions, p),

		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			revision_id BIGINT PRIMARY KEY REFERENCES %s(id) ON DELETE CASCADE,
			anchor_map JSONB NOT NULL DEFAULT '{}'::jsonb,
			explanation TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.AnchorRecords, tables.Revisions),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%srevisions_document ON %s(document_id, id DESC)`, p, tables.Revisions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%srevisions_based_on ON %s(based_on_id) WHERE based_on_id IS NOT NULL`, p, tables.Revisions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sdocuments_parent ON %s(parent_id) WHERE parent_id IS NOT NULL`, p, tables.Documents),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	logger.Info("schema ready", "prefix", p)
	return nil
}

// DropSchema drops all tables in reverse dependency order
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	all := tables.All()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+all[i]+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", all[i], err)
		}
		logger.Info("dropped table", "table", all[i])
	}
	return nil
}
