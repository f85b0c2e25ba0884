package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/locales"
	"supportkb/internal/repository/memory"
	"supportkb/internal/service/markup"
	"supportkb/internal/service/wiki"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules, err := locales.New("en-US", locales.Locale{Code: "en-US", Name: "English", Enabled: true})
	require.NoError(t, err)

	repos := memory.NewStore().Repositories()
	graph := wiki.NewVersionGraph(repos.Documents, repos.Revisions, repos.Drafts, repos.TxManager, markup.NewRenderer(logger), rules, logger)
	seeder := NewSeeder(graph, rules, logger)
	docs := SampleDocuments()

	result, err := seeder.Seed(ctx, docs, "author", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, len(docs), result.Created)
	assert.Zero(t, result.Skipped)

	article, err := graph.GetDocumentBySlug(ctx, "en-US", "clear-cookies-and-site-data")
	require.NoError(t, err)
	require.NotNil(t, article.CurrentRevisionID)
	require.NotNil(t, article.LatestLocalizableRevisionID)
	assert.Contains(t, article.HTML, `id="w_clear-all-cookies"`)

	tmpl, err := graph.GetDocumentBySlug(ctx, "en-US", "template-note")
	require.NoError(t, err)
	assert.NotNil(t, tmpl.CurrentRevisionID)
	assert.Nil(t, tmpl.LatestLocalizableRevisionID)

	again, err := seeder.Seed(ctx, docs, "author", "reviewer")
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, len(docs), again.Skipped)
}
