package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"supportkb/internal/config"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/httputil"
)

// maxUploadBytes bounds the whole multipart body: a few files of the per-file limit
const maxUploadBytes = 4 * config.MaxImportFileSize

// ImportHandler handles bulk import HTTP requests
type ImportHandler struct {
	importer wikiSvc.Importer
	logger   *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer wikiSvc.Importer, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		logger:   logger,
	}
}

// ImportResponse represents the response for import operations
type ImportResponse struct {
	Success   bool                     `json:"success"`
	Summary   wikiSvc.ImportSummary    `json:"summary"`
	Errors    []wikiSvc.ImportError    `json:"errors"`
	Documents []wikiSvc.ImportDocument `json:"documents"`
}

// Import creates origin documents from uploaded files or zip archives.
// Documents whose title or slug already exists are skipped.
// POST /api/import
//
// Form fields:
//   - files: one or more files (.md, .html, .wiki, .txt, .zip)
//   - category: optional numeric category (default how-to)
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(config.MaxImportFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "No files provided")
		return
	}

	var category models.Category
	if raw := r.FormValue("category"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !models.Category(n).Valid() {
			httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid category %q", raw))
			return
		}
		category = models.Category(n)
	}

	// defer file.Close() is safe here because all files are processed
	// before this function returns.
	uploaded := make([]wikiSvc.UploadedFile, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			h.logger.Error("failed to open uploaded file",
				"file", fileHeader.Filename,
				"error", err,
			)
			httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open file %s", fileHeader.Filename))
			return
		}
		defer func() { _ = file.Close() }()

		uploaded = append(uploaded, wikiSvc.UploadedFile{
			Filename: fileHeader.Filename,
			Content:  file,
		})
	}

	h.logger.Info("starting import",
		"user_id", userID,
		"file_count", len(uploaded),
		"category", category,
	)

	result, err := h.importer.Import(r.Context(), &wikiSvc.ImportRequest{
		Files:     uploaded,
		Category:  category,
		CreatorID: userID,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ImportResponse{
		Success:   result.Summary.Failed == 0,
		Summary:   result.Summary,
		Errors:    result.Errors,
		Documents: result.Documents,
	})
}
