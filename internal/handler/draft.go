package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/httputil"
)

// DraftHandler handles the caller's own drafts. Drafts are always scoped to
// the authenticated user; there is no way to read someone else's.
type DraftHandler struct {
	drafts wikiSvc.DraftService
	logger *slog.Logger
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(drafts wikiSvc.DraftService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{
		drafts: drafts,
		logger: logger,
	}
}

// GetDraft returns the caller's draft
// GET /api/documents/{id}/drafts/{locale}
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	draft, err := h.drafts.GetDraft(r.Context(), userID, id, r.PathValue("locale"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, draft)
}

// SaveDraft creates or replaces the caller's draft
// PUT /api/documents/{id}/drafts/{locale}
func (h *DraftHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req wikiSvc.SaveDraftRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.CreatorID = userID
	req.DocumentID = id
	req.Locale = r.PathValue("locale")

	draft, err := h.drafts.SaveDraft(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, draft)
}

// DiscardDraft deletes the caller's draft
// DELETE /api/documents/{id}/drafts/{locale}
func (h *DraftHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.drafts.DiscardDraft(r.Context(), userID, id, r.PathValue("locale")); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
