// Package importer creates origin-locale documents from uploaded files.
package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"supportkb/internal/config"
	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/locales"
	"supportkb/internal/service/importer/converter"
	"supportkb/internal/service/markup"
)

const (
	actionCreated = "created"
	actionSkipped = "skipped"
)

// importer implements the Importer interface
type importer struct {
	graph      wikiSvc.VersionGraph
	converters *converter.Registry
	rules      *locales.Rules
	logger     *slog.Logger
}

// NewImporter creates the file importer
func NewImporter(
	graph wikiSvc.VersionGraph,
	converters *converter.Registry,
	rules *locales.Rules,
	logger *slog.Logger,
) wikiSvc.Importer {
	return &importer{
		graph:      graph,
		converters: converters,
		rules:      rules,
		logger:     logger,
	}
}

// Import processes every file; per-file failures are reported in the result
// and never abort the batch.
func (s *importer) Import(ctx context.Context, req *wikiSvc.ImportRequest) (*wikiSvc.ImportResult, error) {
	if req.CreatorID == "" {
		return nil, domain.NewValidationError("creator is required")
	}
	if len(req.Files) == 0 {
		return nil, domain.NewValidationError("no files provided")
	}
	category := req.Category
	if category == 0 {
		category = models.CategoryHowTo
	}

	result := &wikiSvc.ImportResult{
		Errors:    []wikiSvc.ImportError{},
		Documents: []wikiSvc.ImportDocument{},
	}

	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := readLimited(file.Content)
		if err != nil {
			result.Summary.TotalFiles++
			s.addError(result, file.Filename, err.Error())
			continue
		}

		if strings.EqualFold(path.Ext(file.Filename), ".zip") {
			s.processZip(ctx, file.Filename, data, category, req.CreatorID, result)
			continue
		}
		s.processEntry(ctx, file.Filename, data, category, req.CreatorID, result)
	}

	s.logger.Info("import complete",
		"created", result.Summary.Created,
		"skipped", result.Summary.Skipped,
		"failed", result.Summary.Failed,
		"total_files", result.Summary.TotalFiles,
	)
	return result, nil
}

func (s *importer) processZip(ctx context.Context, filename string, data []byte, category models.Category, creatorID string, result *wikiSvc.ImportResult) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.Summary.TotalFiles++
		s.addError(result, filename, fmt.Sprintf("failed to open zip file: %v", err))
		return
	}

	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() || hiddenEntry(entry.Name) {
			continue
		}
		if s.converters.GetConverter(path.Ext(entry.Name)) == nil {
			s.logger.Debug("skipping unsupported file type", "file", entry.Name)
			result.Summary.TotalFiles++
			result.Summary.Skipped++
			continue
		}

		content, err := readZipEntry(entry)
		if err != nil {
			result.Summary.TotalFiles++
			s.addError(result, entry.Name, err.Error())
			continue
		}
		s.processEntry(ctx, entry.Name, content, category, creatorID, result)
	}
}

// processEntry converts one file and creates its document
func (s *importer) processEntry(ctx context.Context, filename string, content []byte, category models.Category, creatorID string, result *wikiSvc.ImportResult) {
	result.Summary.TotalFiles++

	meta, body, err := ParseFrontmatter(content)
	if err != nil {
		s.addError(result, filename, err.Error())
		return
	}
	if meta == nil {
		meta = &Metadata{}
	}

	markupText, err := s.converters.Convert(ctx, filename, body)
	if err != nil {
		s.addError(result, filename, err.Error())
		return
	}
	if strings.TrimSpace(markupText) == "" {
		s.addError(result, filename, "file is empty")
		return
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = TitleFromFilename(filename)
	}
	slug := strings.TrimSpace(meta.Slug)
	if slug == "" {
		slug = markup.DocumentSlug(title)
	}
	if title == "" || slug == "" {
		s.addError(result, filename, "cannot derive a title from the file name")
		return
	}
	if meta.Category != "" {
		if category, err = CategoryByName(meta.Category); err != nil {
			s.addError(result, filename, err.Error())
			return
		}
	}
	if models.IsTemplateTitle(title) {
		category = models.CategoryTemplates
	}

	created, err := s.graph.CreateDocument(ctx, &wikiSvc.CreateDocumentRequest{
		Title:     title,
		Slug:      slug,
		Locale:    s.rules.Origin(),
		Category:  category,
		Content:   markupText,
		Summary:   meta.Summary,
		Keywords:  meta.Keywords,
		CreatorID: creatorID,
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			result.Summary.Skipped++
			result.Documents = append(result.Documents, wikiSvc.ImportDocument{
				File:   filename,
				Title:  title,
				Slug:   slug,
				Action: actionSkipped,
			})
			s.logger.Debug("document skipped (exists)", "file", filename, "field", conflict.Field)
			return
		}
		s.addError(result, filename, fmt.Sprintf("failed to create document: %v", err))
		return
	}

	result.Summary.Created++
	result.Documents = append(result.Documents, wikiSvc.ImportDocument{
		File:       filename,
		DocumentID: created.Document.ID,
		RevisionID: created.Revision.ID,
		Title:      created.Document.Title,
		Slug:       created.Document.Slug,
		Action:     actionCreated,
	})
}

func (s *importer) addError(result *wikiSvc.ImportResult, file, message string) {
	result.Summary.Failed++
	result.Errors = append(result.Errors, wikiSvc.ImportError{File: file, Error: message})
	s.logger.Warn("file import failed", "file", file, "error", message)
}

// TitleFromFilename turns "guides/Clear_cookies.md" into "Clear cookies"
func TitleFromFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.Join(strings.Fields(base), " ")
}

func hiddenEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}

func readZipEntry(entry *zip.File) ([]byte, error) {
	if entry.UncompressedSize64 > config.MaxImportFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", config.MaxImportFileSize)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()
	return readLimited(rc)
}

// readLimited reads at most MaxImportFileSize bytes, failing on anything larger
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, config.MaxImportFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > config.MaxImportFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", config.MaxImportFileSize)
	}
	return data, nil
}
