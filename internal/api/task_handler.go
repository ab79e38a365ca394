package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mbarlow/lectern-api/internal/api/shared"
	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/task"
)

// TaskService is the slice of the task manager the handlers need.
type TaskService interface {
	CreateTask(ctx context.Context, userID string, kind domain.TaskKind, inputs domain.InputHandles) (*domain.TaskRecord, error)
	GetStatus(ctx context.Context, userID, taskID string) (*domain.TaskRecord, error)
	GetResult(ctx context.Context, userID, taskID string) (*task.Result, error)
	ListUserTasks(ctx context.Context, userID string, includeCompleted bool) (*task.TaskList, error)
	CancelTask(ctx context.Context, userID, taskID string) (*domain.TaskRecord, error)
	RunSync(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*domain.EducationalContent, error)
}

// TaskHandler serves the background-task endpoints.
type TaskHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler. If logger is nil a default logger
// is used.
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateGenerateTask starts a paragraph-generation task.
func (h *TaskHandler) CreateGenerateTask(w http.ResponseWriter, r *http.Request) {
	h.createTask(w, r, domain.TaskKindGenerateParagraphs)
}

// CreatePDFAlignTask starts a PDF visual extraction and alignment task.
func (h *TaskHandler) CreatePDFAlignTask(w http.ResponseWriter, r *http.Request) {
	h.createTask(w, r, domain.TaskKindAlignPDFVisuals)
}

// CreatePDFCopyrightTask starts a PDF alignment task with copyright
// screening of suggested images.
func (h *TaskHandler) CreatePDFCopyrightTask(w http.ResponseWriter, r *http.Request) {
	h.createTask(w, r, domain.TaskKindAlignPDFCopyright)
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request, kind domain.TaskKind) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}
	if kind != domain.TaskKindGenerateParagraphs && req.PDFHandle == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "A PDF handle is required for this task kind")
		return
	}

	rec, err := h.tasks.CreateTask(r.Context(), userID, kind, req.Handles())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, newTaskCreatedResponse(rec))
}

// GetTaskStatus returns the tracking snapshot for the caller's task.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
		return
	}

	rec, err := h.tasks.GetStatus(r.Context(), userID, chi.URLParam(r, "taskID"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskStatusResponse(rec))
}

// GetTaskResult returns the terminal outcome of the caller's task.
func (h *TaskHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
		return
	}

	taskID := chi.URLParam(r, "taskID")
	res, err := h.tasks.GetResult(r.Context(), userID, taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResultResponse(taskID, res))
}

// ListTasks returns the caller's active tasks and, unless
// include_completed=false, their recent history.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
		return
	}

	includeCompleted := true
	if raw := r.URL.Query().Get("include_completed"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid include_completed value")
			return
		}
		includeCompleted = parsed
	}

	list, err := h.tasks.ListUserTasks(r.Context(), userID, includeCompleted)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newTaskListResponse(userID, list))
}

// CancelTask requests cancellation of the caller's task. Cancelling an
// already-finished task succeeds and reports the task's actual status.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
		return
	}

	taskID := chi.URLParam(r, "taskID")
	rec, err := h.tasks.CancelTask(r.Context(), userID, taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"task_id": taskID,
		"status":  string(rec.Status),
	})
}
