package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
	"supportkb/internal/repository/memory"
)

// fakeRenderer wraps markup in a paragraph and records every call
type fakeRenderer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, markup, locale string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, markup)
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("<p lang=%q>%s</p>", locale, markup), nil
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

var errRenderFailed = errors.New("renderer unavailable")

type fixture struct {
	repos    memory.Repositories
	renderer *fakeRenderer
	rules    *locales.Rules
	graph    wikiSvc.VersionGraph
	state    wikiSvc.LocalizationState
	drafts   wikiSvc.DraftService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRules(t *testing.T) *locales.Rules {
	t.Helper()
	rules, err := locales.New("en-US",
		locales.Locale{Code: "en-US", Name: "English", Enabled: true},
		locales.Locale{Code: "fr", Name: "Français", Enabled: true},
		locales.Locale{Code: "de", Name: "Deutsch", Enabled: true},
		locales.Locale{Code: "zh-CN", Name: "中文", Enabled: false},
	)
	require.NoError(t, err)
	return rules
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewStore().Repositories()
	renderer := &fakeRenderer{}
	rules := testRules(t)
	logger := testLogger()

	return &fixture{
		repos:    repos,
		renderer: renderer,
		rules:    rules,
		graph:    NewVersionGraph(repos.Documents, repos.Revisions, repos.Drafts, repos.TxManager, renderer, rules, logger),
		state:    NewLocalizationState(repos.Documents, repos.Revisions, rules, logger),
		drafts:   NewDraftService(repos.Documents, repos.Drafts, rules, logger),
	}
}

func sig(s models.Significance) *models.Significance {
	return &s
}

// originDoc creates an origin-locale how-to document with one unreviewed revision
func (f *fixture) originDoc(t *testing.T, title, slug string) (*models.Document, *models.Revision) {
	t.Helper()
	res, err := f.graph.CreateDocument(context.Background(), &wikiSvc.CreateDocumentRequest{
		Title:     title,
		Slug:      slug,
		Locale:    "en-US",
		Category:  models.CategoryHowTo,
		Content:   "= " + title + " =\nbody",
		CreatorID: "author",
	})
	require.NoError(t, err)
	return res.Document, res.Revision
}

func (f *fixture) revise(t *testing.T, docID int64, creator, content string, basedOn *int64) *models.Revision {
	t.Helper()
	res, err := f.graph.CreateRevision(context.Background(), &wikiSvc.CreateRevisionRequest{
		DocumentID: docID,
		Content:    content,
		CreatorID:  creator,
		BasedOnID:  basedOn,
	})
	require.NoError(t, err)
	return res.Revision
}

func (f *fixture) approve(t *testing.T, revID int64, significance models.Significance, ready bool) *models.Document {
	t.Helper()
	doc, err := f.graph.Approve(context.Background(), &wikiSvc.ApproveRequest{
		RevisionID:           revID,
		ReviewerID:           "reviewer",
		Significance:         sig(significance),
		ReadyForLocalization: ready,
	})
	require.NoError(t, err)
	return doc
}

// translation creates a French translation of parent based on basedOn and approves it
func (f *fixture) translation(t *testing.T, parent *models.Document, basedOn *int64) (*models.Document, *models.Revision) {
	t.Helper()
	res, err := f.graph.CreateDocument(context.Background(), &wikiSvc.CreateDocumentRequest{
		Title:     parent.Title + " (fr)",
		Slug:      parent.Slug + "-fr",
		Locale:    "fr",
		ParentID:  &parent.ID,
		Content:   "contenu",
		BasedOnID: basedOn,
		CreatorID: "translator",
	})
	require.NoError(t, err)
	doc := f.approve(t, res.Revision.ID, models.SignificanceMedium, false)
	return doc, res.Revision
}
