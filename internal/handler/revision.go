package handler

import (
	"log/slog"
	"net/http"

	"supportkb/internal/domain"
	models "supportkb/internal/domain/models/wiki"
	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/httputil"
)

// RevisionHandler handles review HTTP requests
type RevisionHandler struct {
	graph  wikiSvc.VersionGraph
	logger *slog.Logger
}

// NewRevisionHandler creates a new revision handler
func NewRevisionHandler(graph wikiSvc.VersionGraph, logger *slog.Logger) *RevisionHandler {
	return &RevisionHandler{
		graph:  graph,
		logger: logger,
	}
}

// approveBody takes significance by name ("typo", "medium", "major")
type approveBody struct {
	Significance         *string `json:"significance,omitempty"`
	ReadyForLocalization bool    `json:"ready_for_localization"`
	Comment              string  `json:"comment"`
}

// GetRevision retrieves a revision by ID
// GET /api/revisions/{id}
func (h *RevisionHandler) GetRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rev, err := h.graph.GetRevision(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rev)
}

// Approve approves a revision and returns the updated document
// POST /api/revisions/{id}/approve
func (h *RevisionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body approveBody
	if !parseBody(w, r, &body) {
		return
	}

	req := &wikiSvc.ApproveRequest{
		RevisionID:           id,
		ReviewerID:           userID,
		ReadyForLocalization: body.ReadyForLocalization,
		Comment:              body.Comment,
	}
	if body.Significance != nil {
		significance, err := models.ParseSignificance(*body.Significance)
		if err != nil {
			handleError(w, domain.NewValidationError(err.Error()))
			return
		}
		req.Significance = &significance
	}

	doc, err := h.graph.Approve(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("revision approved",
		"revision_id", id,
		"document_id", doc.ID,
		"reviewer_id", userID,
	)
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Reject rejects a revision and returns the updated document
// POST /api/revisions/{id}/reject
func (h *RevisionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req wikiSvc.RejectRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.RevisionID = id
	req.ReviewerID = userID

	doc, err := h.graph.Reject(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// MarkReadyForLocalization flags an approved origin revision for translation
// POST /api/revisions/{id}/ready-for-localization
func (h *RevisionHandler) MarkReadyForLocalization(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.graph.MarkReadyForLocalization(r.Context(), id, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteRevision deletes a revision and returns the repaired document
// DELETE /api/revisions/{id}
func (h *RevisionHandler) DeleteRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.graph.DeleteRevision(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}
