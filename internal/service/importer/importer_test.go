package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
	"supportkb/internal/repository/memory"
	"supportkb/internal/service/importer/converter"
	wikiService "supportkb/internal/service/wiki"
)

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, markup, _ string) (string, error) {
	return fmt.Sprintf("<p>%s</p>", markup), nil
}

func newTestImporter(t *testing.T) (wikiSvc.Importer, wikiSvc.VersionGraph) {
	t.Helper()
	rules, err := locales.New("en-US", locales.Locale{Code: "en-US", Enabled: true})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewStore().Repositories()
	graph := wikiService.NewVersionGraph(repos.Documents, repos.Revisions, repos.Drafts, repos.TxManager, fakeRenderer{}, rules, logger)
	return NewImporter(graph, converter.NewRegistry(), rules, logger), graph
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func upload(name string, content []byte) wikiSvc.UploadedFile {
	return wikiSvc.UploadedFile{Filename: name, Content: bytes.NewReader(content)}
}

func TestImport_SingleFiles(t *testing.T) {
	ctx := context.Background()
	imp, graph := newTestImporter(t)

	res, err := imp.Import(ctx, &wikiSvc.ImportRequest{
		CreatorID: "admin",
		Files: []wikiSvc.UploadedFile{
			upload("Clear_cookies.md", []byte("# Clear cookies\n- open settings")),
			upload("Sync bookmarks.html", []byte("<h2>Sync</h2><p>Sign in.</p>")),
			upload("manual.pdf", []byte("%PDF")),
			upload("Empty.txt", []byte("   ")),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, wikiSvc.ImportSummary{Created: 2, Failed: 2, TotalFiles: 4}, res.Summary)
	require.Len(t, res.Documents, 2)

	doc, err := graph.GetDocumentBySlug(ctx, "en-US", "clear-cookies")
	require.NoError(t, err)
	assert.Equal(t, "Clear cookies", doc.Title)
	assert.Equal(t, models.CategoryHowTo, doc.Category)
	assert.Nil(t, doc.CurrentRevisionID, "imported revisions wait for review")

	rev, err := graph.GetRevision(ctx, res.Documents[0].RevisionID)
	require.NoError(t, err)
	assert.Equal(t, "= Clear cookies =\n* open settings\n", rev.Content)
}

func TestImport_ZipSkipsExistingTitles(t *testing.T) {
	ctx := context.Background()
	imp, _ := newTestImporter(t)

	archive := zipOf(t, map[string]string{
		"guides/Clear cookies.wiki":    "= Clear cookies =\nx",
		"guides/Template:Note.wiki":    "'''Note:''' {{{1}}}",
		"guides/.DS_Store":             "junk",
		"__MACOSX/guides/._Clear.wiki": "junk",
		"images/logo.png":              "png",
	})

	first, err := imp.Import(ctx, &wikiSvc.ImportRequest{
		CreatorID: "admin",
		Category:  models.CategoryTroubleshooting,
		Files:     []wikiSvc.UploadedFile{upload("kb.zip", archive)},
	})
	require.NoError(t, err)
	assert.Equal(t, wikiSvc.ImportSummary{Created: 2, Skipped: 1, TotalFiles: 3}, first.Summary)

	second, err := imp.Import(ctx, &wikiSvc.ImportRequest{
		CreatorID: "admin",
		Files:     []wikiSvc.UploadedFile{upload("kb.zip", archive)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.Created)
	assert.Equal(t, 3, second.Summary.Skipped)
	for _, d := range second.Documents {
		assert.Equal(t, "skipped", d.Action)
	}
}

func TestImport_Validation(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.Import(context.Background(), &wikiSvc.ImportRequest{CreatorID: "admin"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = imp.Import(context.Background(), &wikiSvc.ImportRequest{
		Files: []wikiSvc.UploadedFile{upload("a.md", []byte("x"))},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	res, err := imp.Import(context.Background(), &wikiSvc.ImportRequest{
		CreatorID: "admin",
		Files:     []wikiSvc.UploadedFile{upload("broken.zip", []byte("not a zip"))},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.True(t, strings.HasPrefix(res.Errors[0].Error, "failed to open zip file"))
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Clear cookies", TitleFromFilename("guides/Clear_cookies.md"))
	assert.Equal(t, "Sync bookmarks", TitleFromFilename(`dir\Sync  bookmarks.html`))
	assert.Equal(t, "", TitleFromFilename(".md"))
}

func TestImport_Frontmatter(t *testing.T) {
	ctx := context.Background()
	imp, graph := newTestImporter(t)

	res, err := imp.Import(ctx, &wikiSvc.ImportRequest{
		CreatorID: "admin",
		Files: []wikiSvc.UploadedFile{
			upload("cookies.wiki", []byte("---\ntitle: Delete cookies\nslug: delete-cookies\ncategory: troubleshooting\nsummary: Remove site data\nkeywords: cookies, privacy\n---\n= Steps =\nx")),
			upload("bad-category.wiki", []byte("---\ncategory: recipes\n---\nx")),
			upload("unclosed.wiki", []byte("---\ntitle: Open\nx")),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, wikiSvc.ImportSummary{Created: 1, Failed: 2, TotalFiles: 3}, res.Summary)

	doc, err := graph.GetDocumentBySlug(ctx, "en-US", "delete-cookies")
	require.NoError(t, err)
	assert.Equal(t, "Delete cookies", doc.Title)
	assert.Equal(t, models.CategoryTroubleshooting, doc.Category)

	rev, err := graph.GetRevision(ctx, res.Documents[0].RevisionID)
	require.NoError(t, err)
	assert.Equal(t, "Remove site data", rev.Summary)
	assert.Equal(t, "cookies, privacy", rev.Keywords)
	assert.Equal(t, "= Steps =\nx", rev.Content)
}

func TestParseFrontmatter(t *testing.T) {
	meta, body, err := ParseFrontmatter([]byte("no frontmatter\n---\n"))
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, "no frontmatter\n---\n", string(body))

	meta, body, err = ParseFrontmatter([]byte("---\r\ntitle: Sync\r\n---\r\nbody"))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Sync", strings.TrimSpace(meta.Title))
	assert.Equal(t, "body", string(body))

	_, err = CategoryByName(" How-To ")
	assert.NoError(t, err)
}
