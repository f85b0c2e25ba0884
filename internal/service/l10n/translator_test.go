package l10n

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
	"supportkb/internal/repository/memory"
	wikiService "supportkb/internal/service/wiki"
)

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, markup, locale string) (string, error) {
	return fmt.Sprintf("<p lang=%q>%s</p>", locale, markup), nil
}

// fakeTranslation prefixes text with the target locale
type fakeTranslation struct {
	mu         sync.Mutex
	requests   []wikiSvc.TranslateRequest
	failLocale string
}

func (f *fakeTranslation) Translate(_ context.Context, req *wikiSvc.TranslateRequest) (*wikiSvc.TranslateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, *req)
	if req.TargetLocale == f.failLocale {
		return nil, errors.New("provider down")
	}
	return &wikiSvc.TranslateResult{Translation: "[" + req.TargetLocale + "] " + req.SourceText, Explanation: "ok"}, nil
}

func (f *fakeTranslation) GetHeadingMap(context.Context, string, string, string, string) (*wikiSvc.HeadingMap, error) {
	return &wikiSvc.HeadingMap{Map: map[string]string{}}, nil
}

// contentRequests returns the requests that carried sourceText, in order
func (f *fakeTranslation) contentRequests(sourceText string) []wikiSvc.TranslateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wikiSvc.TranslateRequest
	for _, r := range f.requests {
		if r.SourceText == sourceText {
			out = append(out, r)
		}
	}
	return out
}

type resolveCall struct {
	sourceLocale, sourceText, targetLocale, targetText string
}

type recordingResolver struct {
	mu    sync.Mutex
	calls []resolveCall
}

func (r *recordingResolver) ResolveAnchors(_ context.Context, sourceLocale, sourceText, targetLocale, targetText string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, resolveCall{sourceLocale, sourceText, targetLocale, targetText})
	return targetText
}

type fixture struct {
	graph       wikiSvc.VersionGraph
	translation *fakeTranslation
	resolver    *recordingResolver
	translator  wikiSvc.Translator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules, err := locales.New("en-US",
		locales.Locale{Code: "en-US", Enabled: true},
		locales.Locale{Code: "fr", Enabled: true, MachineTranslation: locales.MachineTranslation{Enabled: true}},
		locales.Locale{Code: "es", Enabled: true, MachineTranslation: locales.MachineTranslation{Enabled: true, AutoApprove: true}},
		locales.Locale{Code: "ja", Enabled: true},
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.NewStore().Repositories()
	graph := wikiService.NewVersionGraph(repos.Documents, repos.Revisions, repos.Drafts, repos.TxManager, fakeRenderer{}, rules, logger)
	state := wikiService.NewLocalizationState(repos.Documents, repos.Revisions, rules, logger)
	translation := &fakeTranslation{}
	resolver := &recordingResolver{}

	return &fixture{
		graph:       graph,
		translation: translation,
		resolver:    resolver,
		translator:  NewTranslator(graph, state, translation, resolver, rules, "machine-translator", logger),
	}
}

// readyDoc creates an origin document whose only revision is approved and ready for localization
func (f *fixture) readyDoc(t *testing.T) (*models.Document, *models.Revision) {
	t.Helper()
	ctx := context.Background()
	res, err := f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:     "Clear cookies",
		Slug:      "clear-cookies",
		Locale:    "en-US",
		Category:  models.CategoryHowTo,
		Content:   "= Clear cookies =\nOpen the menu.",
		Summary:   "How to clear cookies",
		Keywords:  "cookies",
		CreatorID: "author",
	})
	require.NoError(t, err)
	return f.approveReady(t, res.Revision.ID), res.Revision
}

func (f *fixture) approveReady(t *testing.T, revisionID int64) *models.Document {
	t.Helper()
	significance := models.SignificanceMajor
	doc, err := f.graph.Approve(context.Background(), &wikiSvc.ApproveRequest{
		RevisionID:           revisionID,
		ReviewerID:           "reviewer",
		Significance:         &significance,
		ReadyForLocalization: true,
	})
	require.NoError(t, err)
	return doc
}

func TestTranslateDocument_CreatesTranslation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, source := f.readyDoc(t)

	res, err := f.translator.TranslateDocument(ctx, &wikiSvc.TranslateDocumentRequest{
		DocumentID:   origin.ID,
		TargetLocale: "fr",
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.AutoApproved)
	assert.Equal(t, "fr", res.Locale)

	doc, err := f.graph.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "[fr] Clear cookies", doc.Title)
	assert.Equal(t, "clear-cookies", doc.Slug)
	assert.Equal(t, origin.ID, *doc.ParentID)
	assert.Nil(t, doc.CurrentRevisionID, "fr translations wait for review")

	rev, err := f.graph.GetRevision(ctx, res.RevisionID)
	require.NoError(t, err)
	assert.Equal(t, "[fr] "+source.Content, rev.Content)
	assert.Equal(t, "[fr] How to clear cookies", rev.Summary)
	assert.Equal(t, "cookies", rev.Keywords)
	assert.Equal(t, source.ID, *rev.BasedOnID)
	assert.Equal(t, "machine-translator", rev.CreatorID)

	require.Len(t, f.resolver.calls, 1)
	assert.Equal(t, resolveCall{"en-US", source.Content, "fr", "[fr] " + source.Content}, f.resolver.calls[0])
}

func TestTranslateDocument_AutoApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, _ := f.readyDoc(t)

	res, err := f.translator.TranslateDocument(ctx, &wikiSvc.TranslateDocumentRequest{
		DocumentID:   origin.ID,
		TargetLocale: "es",
		CreatorID:    "editor",
	})
	require.NoError(t, err)
	assert.True(t, res.AutoApproved)

	doc, err := f.graph.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc.CurrentRevisionID)
	assert.Equal(t, res.RevisionID, *doc.CurrentRevisionID)

	rev, err := f.graph.GetRevision(ctx, res.RevisionID)
	require.NoError(t, err)
	assert.Equal(t, "editor", *rev.ReviewerID)
	assert.Equal(t, models.SignificanceMajor, *rev.Significance)
}

func TestTranslateDocument_UsesPriorTranslation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, first := f.readyDoc(t)

	_, err := f.translator.TranslateDocument(ctx, &wikiSvc.TranslateDocumentRequest{DocumentID: origin.ID, TargetLocale: "es"})
	require.NoError(t, err)

	next, err := f.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
		DocumentID: origin.ID,
		Content:    "= Clear cookies =\nOpen the settings menu.",
		CreatorID:  "author",
	})
	require.NoError(t, err)
	f.approveReady(t, next.Revision.ID)

	res, err := f.translator.TranslateDocument(ctx, &wikiSvc.TranslateDocumentRequest{DocumentID: origin.ID, TargetLocale: "es"})
	require.NoError(t, err)
	assert.False(t, res.Created)

	requests := f.translation.contentRequests(next.Revision.Content)
	require.Len(t, requests, 1)
	assert.Equal(t, &wikiSvc.TranslationPair{
		Source:      first.Content,
		Translation: "[es] " + first.Content,
	}, requests[0].Prior)

	rev, err := f.graph.GetRevision(ctx, res.RevisionID)
	require.NoError(t, err)
	assert.Equal(t, next.Revision.ID, *rev.BasedOnID)
}

func TestTranslateDocument_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, _ := f.readyDoc(t)

	unready, err := f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title: "Draft", Slug: "draft", Locale: "en-US", Category: models.CategoryHowTo, Content: "x", CreatorID: "author",
	})
	require.NoError(t, err)

	es, err := f.translator.TranslateDocument(ctx, &wikiSvc.TranslateDocumentRequest{DocumentID: origin.ID, TargetLocale: "es"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     *wikiSvc.TranslateDocumentRequest
		wantErr error
	}{
		{name: "no ready revision", req: &wikiSvc.TranslateDocumentRequest{DocumentID: unready.Document.ID, TargetLocale: "fr"}, wantErr: domain.ErrInvalidState},
		{name: "locale without machine translation", req: &wikiSvc.TranslateDocumentRequest{DocumentID: origin.ID, TargetLocale: "ja"}, wantErr: domain.ErrValidation},
		{name: "unknown locale", req: &wikiSvc.TranslateDocumentRequest{DocumentID: origin.ID, TargetLocale: "xx"}, wantErr: domain.ErrValidation},
		{name: "translation document", req: &wikiSvc.TranslateDocumentRequest{DocumentID: es.DocumentID, TargetLocale: "fr"}, wantErr: domain.ErrValidation},
		{name: "missing document", req: &wikiSvc.TranslateDocumentRequest{DocumentID: 9999, TargetLocale: "fr"}, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.translator.TranslateDocument(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTranslateDocument_ProviderFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, _ := f.readyDoc(t)
	f.translation.failLocale = "fr"

	_, err := f.translator.TranslateDocument(ctx, &wikiSvc.TranslateDocumentRequest{DocumentID: origin.ID, TargetLocale: "fr"})
	require.Error(t, err)

	_, err = f.graph.GetTranslation(ctx, origin.ID, "fr")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTranslateAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, _ := f.readyDoc(t)

	first, err := f.translator.TranslateAll(ctx, origin.ID, "")
	require.NoError(t, err)
	require.Len(t, first.Translated, 2)
	assert.Equal(t, "fr", first.Translated[0].Locale)
	assert.Equal(t, "es", first.Translated[1].Locale)
	assert.Empty(t, first.Skipped)
	assert.Empty(t, first.Failed)

	// fr is awaiting review and es is current
	second, err := f.translator.TranslateAll(ctx, origin.ID, "")
	require.NoError(t, err)
	assert.Empty(t, second.Translated)
	assert.Equal(t, []string{"fr", "es"}, second.Skipped)

	next, err := f.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
		DocumentID: origin.ID, Content: "= Clear cookies =\nNew steps.", CreatorID: "author",
	})
	require.NoError(t, err)
	f.approveReady(t, next.Revision.ID)
	f.translation.failLocale = "fr"

	third, err := f.translator.TranslateAll(ctx, origin.ID, "")
	require.NoError(t, err)
	require.Len(t, third.Translated, 1)
	assert.Equal(t, "es", third.Translated[0].Locale)
	assert.False(t, third.Translated[0].Created)
	assert.Equal(t, map[string]string{"fr": "translate content: provider down"}, third.Failed)
}
