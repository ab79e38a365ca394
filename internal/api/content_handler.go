package api

import (
	"log/slog"
	"net/http"

	"github.com/mbarlow/lectern-api/internal/api/shared"
	"github.com/mbarlow/lectern-api/internal/domain"
)

// ContentHandler serves the legacy synchronous generation endpoint. The
// caller's connection stays open for the whole pipeline run; new clients
// should use the async task endpoints instead.
type ContentHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewContentHandler creates a ContentHandler.
func NewContentHandler(tasks TaskService, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "content_handler")),
	}
}

// Generate runs the paragraph-generation pipeline inline and returns the
// finished content. Bypasses task admission and creates no task record.
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	content, err := h.tasks.RunSync(r.Context(), domain.TaskKindGenerateParagraphs, req.Handles())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Content generation failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SyncGenerateResponse{Content: content})
}
