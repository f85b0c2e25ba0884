// Package seed fills an empty knowledge base with sample origin documents.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
)

// Document is one sample article
type Document struct {
	Title    string
	Slug     string
	Category models.Category
	Summary  string
	Content  string
}

// Result counts what a seeding run did
type Result struct {
	Created int
	Skipped int
}

// Seeder creates sample documents through the version graph so every
// invariant (pointers, rendered HTML, contributors) holds for seeded data
type Seeder struct {
	graph  wikiSvc.VersionGraph
	rules  *locales.Rules
	logger *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(graph wikiSvc.VersionGraph, rules *locales.Rules, logger *slog.Logger) *Seeder {
	return &Seeder{
		graph:  graph,
		rules:  rules,
		logger: logger,
	}
}

// Seed creates each document in the origin locale, approves its first
// revision as a major change and readies it for localization. Documents whose
// title or slug already exists are skipped, so seeding is repeatable.
func (s *Seeder) Seed(ctx context.Context, docs []Document, authorID, reviewerID string) (*Result, error) {
	result := &Result{}
	major := models.SignificanceMajor

	for _, d := range docs {
		created, err := s.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
			Title:     d.Title,
			Slug:      d.Slug,
			Locale:    s.rules.Origin(),
			Category:  d.Category,
			Content:   d.Content,
			Summary:   d.Summary,
			CreatorID: authorID,
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.logger.Info("seed document exists", "title", d.Title)
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("create %q: %w", d.Title, err)
		}

		_, err = s.graph.Approve(ctx, &wikiSvc.ApproveRequest{
			RevisionID:           created.Revision.ID,
			ReviewerID:           reviewerID,
			Significance:         &major,
			ReadyForLocalization: !models.IsTemplateTitle(d.Title),
			Comment:              "Seeded",
		})
		if err != nil {
			return result, fmt.Errorf("approve %q: %w", d.Title, err)
		}

		s.logger.Info("seed document created",
			"document_id", created.Document.ID,
			"title", d.Title,
		)
		result.Created++
	}

	return result, nil
}

// SampleDocuments returns the bundled sample articles. The second links into
// the first's headings so anchor resolution has something to do.
func SampleDocuments() []Document {
	return []Document{
		{
			Title:    "Clear cookies and site data",
			Slug:     "clear-cookies-and-site-data",
			Category: models.CategoryTroubleshooting,
			Summary:  "Remove stored cookies to fix sign-in and loading problems.",
			Content: `= Clear cookies and site data =
Cookies store your sign-in state and site preferences.

== Clear all cookies ==
* Open '''Settings'''
* Select ''Privacy'' and then '''Clear data'''

== Clear cookies for one site ==
Open the site, click the padlock icon and choose '''Clear cookies'''.
`,
		},
		{
			Title:    "Websites don't load",
			Slug:     "websites-dont-load",
			Category: models.CategoryTroubleshooting,
			Summary:  "Steps to try when pages stay blank or show errors.",
			Content: `= Websites don't load =
Start with the quick fixes below.

== Check your connection ==
Make sure other devices on the same network can reach the web.

== Remove stale cookies ==
Damaged cookies can stop a site from loading. See [[Clear cookies and site data#w_clear-cookies-for-one-site|clearing one site's cookies]] or [[#w_check-your-connection]] again.
`,
		},
		{
			Title:    "Update the browser",
			Slug:     "update-the-browser",
			Category: models.CategoryHowTo,
			Summary:  "Install the latest version for fixes and security updates.",
			Content: `= Update the browser =
Updates arrive automatically, but you can check by hand.

== Check for updates ==
* Open the menu
* Choose '''Help''' and then '''About'''
`,
		},
		{
			Title:    "Template:Note",
			Slug:     "template-note",
			Category: models.CategoryTemplates,
			Content:  "''Note:'' {{{1}}}\n",
		},
	}
}
