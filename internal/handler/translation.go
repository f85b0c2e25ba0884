package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "supportkb/internal/domain/services/wiki"
	"supportkb/internal/httputil"
)

// TranslationHandler starts machine translations
type TranslationHandler struct {
	translator wikiSvc.Translator
	logger     *slog.Logger
}

// NewTranslationHandler creates a new translation handler
func NewTranslationHandler(translator wikiSvc.Translator, logger *slog.Logger) *TranslationHandler {
	return &TranslationHandler{
		translator: translator,
		logger:     logger,
	}
}

// TranslateDocument machine-translates an origin document into one locale.
// The request blocks until the provider answers.
// POST /api/documents/{id}/translations/{locale}
func (h *TranslationHandler) TranslateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.translator.TranslateDocument(r.Context(), &wikiSvc.TranslateDocumentRequest{
		DocumentID:   id,
		TargetLocale: r.PathValue("locale"),
		CreatorID:    userID,
	})
	if err != nil {
		h.logger.Warn("machine translation request failed",
			"document_id", id,
			"locale", r.PathValue("locale"),
			"error", err,
		)
		handleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.RespondJSON(w, status, result)
}

// TranslateAll machine-translates an origin document into every locale that
// is missing or outdated. Per-locale failures are reported in the body.
// POST /api/documents/{id}/translations
func (h *TranslationHandler) TranslateAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.translator.TranslateAll(r.Context(), id, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
