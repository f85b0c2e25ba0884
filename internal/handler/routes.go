package handler

import "net/http"

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Documents    *DocumentHandler
	Revisions    *RevisionHandler
	Drafts       *DraftHandler
	Translations *TranslationHandler
	Import       *ImportHandler
}

// RegisterRoutes wires the API onto mux (Go 1.22+ enhanced patterns)
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	// Health check
	mux.HandleFunc("GET /health", HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Documents.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.Documents.DeleteDocument)
	mux.HandleFunc("GET /api/locales/{locale}/documents/{slug}", h.Documents.GetDocumentBySlug)
	mux.HandleFunc("GET /api/documents/{id}/revisions", h.Documents.ListRevisions)
	mux.HandleFunc("POST /api/documents/{id}/revisions", h.Documents.CreateRevision)
	mux.HandleFunc("GET /api/documents/{id}/contributors", h.Documents.ListContributors)
	mux.HandleFunc("GET /api/documents/{id}/localization", h.Documents.LocalizationStatus)
	mux.HandleFunc("GET /api/documents/{id}/outdated", h.Documents.Outdated)

	// Machine translation routes
	mux.HandleFunc("POST /api/documents/{id}/translations", h.Translations.TranslateAll)
	mux.HandleFunc("POST /api/documents/{id}/translations/{locale}", h.Translations.TranslateDocument)

	// Draft routes (always the caller's own draft)
	mux.HandleFunc("GET /api/documents/{id}/drafts/{locale}", h.Drafts.GetDraft)
	mux.HandleFunc("PUT /api/documents/{id}/drafts/{locale}", h.Drafts.SaveDraft)
	mux.HandleFunc("DELETE /api/documents/{id}/drafts/{locale}", h.Drafts.DiscardDraft)

	// Review routes
	mux.HandleFunc("GET /api/revisions/{id}", h.Revisions.GetRevision)
	mux.HandleFunc("DELETE /api/revisions/{id}", h.Revisions.DeleteRevision)
	mux.HandleFunc("POST /api/revisions/{id}/approve", h.Revisions.Approve)
	mux.HandleFunc("POST /api/revisions/{id}/reject", h.Revisions.Reject)
	mux.HandleFunc("POST /api/revisions/{id}/ready-for-localization", h.Revisions.MarkReadyForLocalization)

	// Import routes
	mux.HandleFunc("POST /api/import", h.Import.Import)
}
