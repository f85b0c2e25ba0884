package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/httputil"
)

// DocumentHandler handles document and revision-list HTTP requests
type DocumentHandler struct {
	graph  wikiSvc.VersionGraph
	state  wikiSvc.LocalizationState
	logger *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(graph wikiSvc.VersionGraph, state wikiSvc.LocalizationState, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		graph:  graph,
		state:  state,
		logger: logger,
	}
}

// CreateDocument creates a document with its first revision
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req wikiSvc.CreateDocumentRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.CreatorID = userID

	result, err := h.graph.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// GetDocument retrieves a document by ID
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.graph.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// GetDocumentBySlug retrieves a document by its locale and slug
// GET /api/locales/{locale}/documents/{slug}
func (h *DocumentHandler) GetDocumentBySlug(w http.ResponseWriter, r *http.Request) {
	doc, err := h.graph.GetDocumentBySlug(r.Context(), r.PathValue("locale"), r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument edits document metadata. Renaming an approved document
// leaves a redirect stub at the old title and slug.
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var changes wikiSvc.DocumentChanges
	if !parseBody(w, r, &changes) {
		return
	}
	changes.EditorID = userID

	doc, err := h.graph.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.graph.CommitEdit(r.Context(), wikiSvc.BeginEdit(doc), &changes)
	if err != nil {
		handleError(w, err)
		return
	}

	if result.Redirect != nil {
		h.logger.Info("document moved",
			"document_id", result.Document.ID,
			"redirect_id", result.Redirect.ID,
			"user_id", userID,
		)
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// DeleteDocument deletes a document without translations
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.graph.DeleteDocument(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// ListRevisions lists a document's revisions, newest first
// GET /api/documents/{id}/revisions
func (h *DocumentHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	revisions, err := h.graph.ListRevisions(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, revisions)
}

// CreateRevision proposes new content for a document
// POST /api/documents/{id}/revisions
func (h *DocumentHandler) CreateRevision(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req wikiSvc.CreateRevisionRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.DocumentID = id
	req.CreatorID = userID

	result, err := h.graph.CreateRevision(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// ListContributors lists the authors of approved revisions
// GET /api/documents/{id}/contributors
func (h *DocumentHandler) ListContributors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	contributors, err := h.graph.ListContributors(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string][]string{"contributors": contributors})
}

// LocalizationStatus reports the translation state of an origin document per locale
// GET /api/documents/{id}/localization
func (h *DocumentHandler) LocalizationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.graph.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	statuses, err := h.state.TranslationStatus(r.Context(), doc)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": doc.ID,
		"locales":     statuses,
	})
}

// outdatedResponse reports how far a translation lags its parent
type outdatedResponse struct {
	DocumentID      int64 `json:"document_id"`
	Outdated        bool  `json:"outdated"`
	MajorlyOutdated bool  `json:"majorly_outdated"`
}

// Outdated reports whether a translation lags its parent
// GET /api/documents/{id}/outdated
func (h *DocumentHandler) Outdated(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.graph.GetDocument(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	outdated, err := h.state.IsOutdatedMedium(r.Context(), doc)
	if err != nil {
		handleError(w, err)
		return
	}
	major, err := h.state.IsMajorlyOutdated(r.Context(), doc)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, outdatedResponse{
		DocumentID:      doc.ID,
		Outdated:        outdated,
		MajorlyOutdated: major,
	})
}
