package wiki

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
)

func TestCreateDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, _ := f.originDoc(t, "Clear the cache", "clear-the-cache")

	tests := []struct {
		name    string
		req     wikiSvc.CreateDocumentRequest
		wantErr error
	}{
		{
			name:    "missing title",
			req:     wikiSvc.CreateDocumentRequest{Slug: "a", Locale: "en-US", Category: models.CategoryHowTo, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "slash in slug",
			req:     wikiSvc.CreateDocumentRequest{Title: "A", Slug: "a/b", Locale: "en-US", Category: models.CategoryHowTo, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown category",
			req:     wikiSvc.CreateDocumentRequest{Title: "A", Slug: "a", Locale: "en-US", Category: 99, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "disabled locale",
			req:     wikiSvc.CreateDocumentRequest{Title: "A", Slug: "a", Locale: "zh-CN", ParentID: &origin.ID, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "origin document with parent",
			req:     wikiSvc.CreateDocumentRequest{Title: "A", Slug: "a", Locale: "en-US", Category: models.CategoryHowTo, ParentID: &origin.ID, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "translation without parent",
			req:     wikiSvc.CreateDocumentRequest{Title: "A", Slug: "a", Locale: "fr", Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "template title outside templates",
			req:     wikiSvc.CreateDocumentRequest{Title: "Template:Note", Slug: "note", Locale: "en-US", Category: models.CategoryHowTo, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "templates category without prefix",
			req:     wikiSvc.CreateDocumentRequest{Title: "Note", Slug: "note", Locale: "en-US", Category: models.CategoryTemplates, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "duplicate slug",
			req:     wikiSvc.CreateDocumentRequest{Title: "Other", Slug: "clear-the-cache", Locale: "en-US", Category: models.CategoryHowTo, Content: "x", CreatorID: "u"},
			wantErr: domain.ErrConflict,
		},
		{
			name: "template",
			req:  wikiSvc.CreateDocumentRequest{Title: "Template:Note", Slug: "template-note", Locale: "en-US", Category: models.CategoryTemplates, Content: "x", CreatorID: "u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			res, err := f.graph.CreateDocument(ctx, &req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, res.Document.ID)
			assert.Equal(t, res.Document.ID, res.Revision.DocumentID)
		})
	}
}

func TestCreateDocument_TranslationInheritsFromParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, rev := f.originDoc(t, "Sync bookmarks", "sync-bookmarks")
	f.approve(t, rev.ID, models.SignificanceMajor, true)

	res, err := f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:     "Synchroniser les marque-pages",
		Slug:      "synchroniser",
		Locale:    "fr",
		Category:  models.CategoryAdministration, // ignored for translations
		ParentID:  &origin.ID,
		Content:   "contenu",
		CreatorID: "translator",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CategoryHowTo, res.Document.Category)
	assert.False(t, res.Document.IsLocalizable)
	assert.True(t, res.BasedOnGuessed)
	require.NotNil(t, res.Revision.BasedOnID)
	assert.Equal(t, rev.ID, *res.Revision.BasedOnID)

	// One translation per parent and locale
	_, err = f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:     "Autre",
		Slug:      "autre",
		Locale:    "fr",
		ParentID:  &origin.ID,
		Content:   "contenu",
		CreatorID: "translator",
	})
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

	yes := true
	_, err = f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:         "Synchronisieren",
		Slug:          "synchronisieren",
		Locale:        "de",
		ParentID:      &origin.ID,
		IsLocalizable: &yes,
		Content:       "Inhalt",
		CreatorID:     "translator",
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
}

func TestCreateDocument_ParentMustBeLocalizable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	no := false
	res, err := f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:         "Internal notes",
		Slug:          "internal-notes",
		Locale:        "en-US",
		Category:      models.CategoryAdministration,
		IsLocalizable: &no,
		Content:       "x",
		CreatorID:     "u",
	})
	require.NoError(t, err)

	_, err = f.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:     "Notes internes",
		Slug:      "notes-internes",
		Locale:    "fr",
		ParentID:  &res.Document.ID,
		Content:   "x",
		CreatorID: "u",
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
}

func TestCreateRevision_BasedOn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, rev := f.originDoc(t, "Reset password", "reset-password")
	f.approve(t, rev.ID, models.SignificanceMajor, true)
	_, otherRev := f.originDoc(t, "Other", "other")
	f.approve(t, otherRev.ID, models.SignificanceMajor, true)
	fr, _ := f.translation(t, origin, &rev.ID)

	t.Run("origin documents cannot have based_on", func(t *testing.T) {
		_, err := f.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
			DocumentID: origin.ID, Content: "x", CreatorID: "u", BasedOnID: &rev.ID,
		})
		assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
	})

	t.Run("based_on must belong to the parent", func(t *testing.T) {
		_, err := f.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
			DocumentID: fr.ID, Content: "x", CreatorID: "u", BasedOnID: &otherRev.ID,
		})
		assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
	})

	t.Run("missing based_on revision", func(t *testing.T) {
		missing := int64(9999)
		_, err := f.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
			DocumentID: fr.ID, Content: "x", CreatorID: "u", BasedOnID: &missing,
		})
		assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
	})

	t.Run("guessed from latest localizable revision", func(t *testing.T) {
		newer := f.revise(t, origin.ID, "author", "v2", nil)
		f.approve(t, newer.ID, models.SignificanceMedium, true)

		res, err := f.graph.CreateRevision(ctx, &wikiSvc.CreateRevisionRequest{
			DocumentID: fr.ID, Content: "v2 fr", CreatorID: "translator",
		})
		require.NoError(t, err)
		assert.True(t, res.BasedOnGuessed)
		assert.Equal(t, newer.ID, *res.Revision.BasedOnID)
	})

	t.Run("creating a revision never moves pointers", func(t *testing.T) {
		before, err := f.graph.GetDocument(ctx, origin.ID)
		require.NoError(t, err)
		f.revise(t, origin.ID, "someone", "unreviewed", nil)
		after, err := f.graph.GetDocument(ctx, origin.ID)
		require.NoError(t, err)
		assert.Equal(t, before.CurrentRevisionID, after.CurrentRevisionID)
		assert.Equal(t, before.LatestLocalizableRevisionID, after.LatestLocalizableRevisionID)
	})
}

func TestCreateRevision_DiscardsDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, _ := f.originDoc(t, "Export data", "export-data")

	_, err := f.drafts.SaveDraft(ctx, &wikiSvc.SaveDraftRequest{
		CreatorID: "author", DocumentID: origin.ID, Locale: "en-US", Content: "wip",
	})
	require.NoError(t, err)

	f.revise(t, origin.ID, "author", "published", nil)

	_, err = f.drafts.GetDraft(ctx, "author", origin.ID, "en-US")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestApprove_AdvancesPointers(t *testing.T) {
	f := newFixture(t)
	doc, rev1 := f.originDoc(t, "Install", "install")

	updated := f.approve(t, rev1.ID, models.SignificanceMajor, true)
	require.NotNil(t, updated.CurrentRevisionID)
	assert.Equal(t, rev1.ID, *updated.CurrentRevisionID)
	require.NotNil(t, updated.LatestLocalizableRevisionID)
	assert.Equal(t, rev1.ID, *updated.LatestLocalizableRevisionID)
	assert.Contains(t, updated.HTML, rev1.Content)

	rev2 := f.revise(t, doc.ID, "editor", "second", nil)
	updated = f.approve(t, rev2.ID, models.SignificanceTypo, false)
	assert.Equal(t, rev2.ID, *updated.CurrentRevisionID)
	assert.Equal(t, rev1.ID, *updated.LatestLocalizableRevisionID, "typo edits never become localizable")
	assert.Contains(t, updated.HTML, "second")

	contributors, err := f.graph.ListContributors(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"author", "editor"}, contributors)
}

func TestApprove_OlderRevisionNeverMovesPointersBack(t *testing.T) {
	f := newFixture(t)
	doc, rev1 := f.originDoc(t, "Install", "install")
	rev2 := f.revise(t, doc.ID, "editor", "second", nil)

	f.approve(t, rev2.ID, models.SignificanceMajor, true)
	updated := f.approve(t, rev1.ID, models.SignificanceMajor, true)

	assert.Equal(t, rev2.ID, *updated.CurrentRevisionID)
	assert.Equal(t, rev2.ID, *updated.LatestLocalizableRevisionID)
	assert.Contains(t, updated.HTML, "second")

	approved, err := f.graph.GetRevision(context.Background(), rev1.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	assert.True(t, approved.IsReadyForLocalization)
}

func TestApprove_ConcurrentApprovalsKeepNewest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, first := f.originDoc(t, "Install", "install")

	revs := []*models.Revision{first}
	for i := 0; i < 9; i++ {
		revs = append(revs, f.revise(t, doc.ID, fmt.Sprintf("editor-%d", i), fmt.Sprintf("v%d", i), nil))
	}

	var g errgroup.Group
	for _, rev := range revs {
		g.Go(func() error {
			_, err := f.graph.Approve(ctx, &wikiSvc.ApproveRequest{
				RevisionID:           rev.ID,
				ReviewerID:           "reviewer",
				Significance:         sig(models.SignificanceMedium),
				ReadyForLocalization: true,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	newest := revs[len(revs)-1]
	final, err := f.graph.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, *final.CurrentRevisionID)
	assert.Equal(t, newest.ID, *final.LatestLocalizableRevisionID)
	assert.Contains(t, final.HTML, newest.Content)

	contributors, err := f.graph.ListContributors(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, contributors, 10)
}

func TestApprove_ReadyForLocalizationRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, rev := f.originDoc(t, "Install", "install")
	f.approve(t, rev.ID, models.SignificanceMajor, true)
	_, frRev := f.translation(t, origin, &rev.ID)

	t.Run("typo significance", func(t *testing.T) {
		r := f.revise(t, origin.ID, "u", "typo fix", nil)
		_, err := f.graph.Approve(ctx, &wikiSvc.ApproveRequest{
			RevisionID: r.ID, ReviewerID: "reviewer", Significance: sig(models.SignificanceTypo), ReadyForLocalization: true,
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)

		unchanged, err := f.graph.GetRevision(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, unchanged.IsApproved, "nothing is written when readiness is refused")
	})

	t.Run("translations are never ready", func(t *testing.T) {
		_, err := f.graph.MarkReadyForLocalization(ctx, frRev.ID, "reviewer")
		assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)
	})

	t.Run("unapproved revision", func(t *testing.T) {
		r := f.revise(t, origin.ID, "u", "pending", nil)
		_, err := f.graph.MarkReadyForLocalization(ctx, r.ID, "reviewer")
		assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)
	})

	t.Run("approved later", func(t *testing.T) {
		r := f.revise(t, origin.ID, "u", "later", nil)
		f.approve(t, r.ID, models.SignificanceMedium, false)
		doc, err := f.graph.MarkReadyForLocalization(ctx, r.ID, "reviewer")
		require.NoError(t, err)
		assert.Equal(t, r.ID, *doc.LatestLocalizableRevisionID)
	})
}

func TestApprove_RenderFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, rev := f.originDoc(t, "Install", "install")
	f.renderer.err = errRenderFailed

	_, err := f.graph.Approve(ctx, &wikiSvc.ApproveRequest{RevisionID: rev.ID, ReviewerID: "reviewer"})
	require.ErrorIs(t, err, errRenderFailed)

	unchanged, err := f.graph.GetRevision(ctx, rev.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.IsApproved)
}

func TestReject_RepairsPointers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, rev1 := f.originDoc(t, "Install", "install")
	f.approve(t, rev1.ID, models.SignificanceMajor, true)
	rev2 := f.revise(t, doc.ID, "editor", "second", nil)
	f.approve(t, rev2.ID, models.SignificanceMajor, true)

	updated, err := f.graph.Reject(ctx, &wikiSvc.RejectRequest{RevisionID: rev2.ID, ReviewerID: "reviewer", Comment: "spam"})
	require.NoError(t, err)

	assert.Equal(t, rev1.ID, *updated.CurrentRevisionID)
	assert.Equal(t, rev1.ID, *updated.LatestLocalizableRevisionID)
	assert.Contains(t, updated.HTML, rev1.Content)

	rejected, err := f.graph.GetRevision(ctx, rev2.ID)
	require.NoError(t, err)
	assert.True(t, rejected.IsRejected())
	assert.False(t, rejected.IsReadyForLocalization)
}

func TestDeleteRevision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, rev1 := f.originDoc(t, "Install", "install")
	f.approve(t, rev1.ID, models.SignificanceMajor, true)
	rev2 := f.revise(t, origin.ID, "editor", "second", nil)
	f.approve(t, rev2.ID, models.SignificanceMajor, true)
	_, frRev := f.translation(t, origin, &rev2.ID)

	updated, err := f.graph.DeleteRevision(ctx, rev2.ID)
	require.NoError(t, err)
	assert.Equal(t, rev1.ID, *updated.CurrentRevisionID)
	assert.Equal(t, rev1.ID, *updated.LatestLocalizableRevisionID)
	assert.Contains(t, updated.HTML, rev1.Content)

	detached, err := f.graph.GetRevision(ctx, frRev.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.BasedOnID)

	_, err = f.graph.GetRevision(ctx, rev2.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Deleting the last approved revision clears the pointers and the HTML
	updated, err = f.graph.DeleteRevision(ctx, rev1.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.CurrentRevisionID)
	assert.Nil(t, updated.LatestLocalizableRevisionID)
	assert.Empty(t, updated.HTML)
}

func TestDeleteRevision_UnrelatedRevisionKeepsPointers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, rev1 := f.originDoc(t, "Install", "install")
	f.approve(t, rev1.ID, models.SignificanceMajor, true)
	pending := f.revise(t, doc.ID, "editor", "pending", nil)
	calls := f.renderer.callCount()

	updated, err := f.graph.DeleteRevision(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, rev1.ID, *updated.CurrentRevisionID)
	assert.Equal(t, calls, f.renderer.callCount(), "no re-render when current is untouched")
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin, rev := f.originDoc(t, "Install", "install")
	f.approve(t, rev.ID, models.SignificanceMajor, true)
	fr, _ := f.translation(t, origin, &rev.ID)

	err := f.graph.DeleteDocument(ctx, origin.ID)
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	require.NoError(t, f.graph.DeleteDocument(ctx, fr.ID))
	require.NoError(t, f.graph.DeleteDocument(ctx, origin.ID))

	_, err = f.graph.GetDocument(ctx, origin.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = f.graph.ListRevisions(ctx, origin.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
