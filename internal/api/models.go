package api

import (
	"encoding/json"
	"time"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/task"
)

// CreateTaskRequest carries the input artifact handles for a new task. The
// task kind comes from the endpoint, not the body.
type CreateTaskRequest struct {
	SubtitleHandle string `json:"subtitle_handle" validate:"required"`
	MediaHandle    string `json:"media_handle"    validate:"required"`
	PDFHandle      string `json:"pdf_handle,omitempty"`
}

// Handles converts the request into domain input handles.
func (r CreateTaskRequest) Handles() domain.InputHandles {
	return domain.InputHandles{
		Subtitle: r.SubtitleHandle,
		Media:    r.MediaHandle,
		PDF:      r.PDFHandle,
	}
}

// TaskCreatedResponse acknowledges an admitted task.
type TaskCreatedResponse struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskStatusResponse is one task's tracking snapshot.
type TaskStatusResponse struct {
	TaskID       string    `json:"task_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Stage        string    `json:"stage"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// TaskResultResponse is a terminal task's outcome.
type TaskResultResponse struct {
	TaskID       string          `json:"task_id"`
	Status       string          `json:"status"`
	Content      json.RawMessage `json:"content,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// TaskListResponse groups a user's tasks with summary counts.
type TaskListResponse struct {
	UserID         string               `json:"user_id"`
	ActiveTasks    []TaskStatusResponse `json:"active_tasks"`
	CompletedTasks []TaskStatusResponse `json:"completed_tasks"`
	TotalActive    int                  `json:"total_active"`
	TotalCompleted int                  `json:"total_completed"`
}

// SyncGenerateResponse is the legacy synchronous endpoint's body.
type SyncGenerateResponse struct {
	Content *domain.EducationalContent `json:"content"`
}

func newTaskCreatedResponse(rec *domain.TaskRecord) TaskCreatedResponse {
	return TaskCreatedResponse{
		TaskID:    rec.TaskID,
		Status:    string(rec.Status),
		Stage:     string(rec.Stage),
		Progress:  rec.Progress,
		CreatedAt: rec.CreatedAt,
	}
}

func newTaskStatusResponse(rec *domain.TaskRecord) TaskStatusResponse {
	return TaskStatusResponse{
		TaskID:       rec.TaskID,
		Kind:         string(rec.Kind),
		Status:       string(rec.Status),
		Stage:        string(rec.Stage),
		Progress:     rec.Progress,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		ErrorMessage: rec.ErrorMessage,
	}
}

func newTaskStatusResponses(recs []*domain.TaskRecord) []TaskStatusResponse {
	out := make([]TaskStatusResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newTaskStatusResponse(rec))
	}
	return out
}

func newTaskListResponse(userID string, list *task.TaskList) TaskListResponse {
	return TaskListResponse{
		UserID:         userID,
		ActiveTasks:    newTaskStatusResponses(list.Active),
		CompletedTasks: newTaskStatusResponses(list.Completed),
		TotalActive:    len(list.Active),
		TotalCompleted: len(list.Completed),
	}
}

func newTaskResultResponse(taskID string, res *task.Result) TaskResultResponse {
	return TaskResultResponse{
		TaskID:       taskID,
		Status:       string(res.Status),
		Content:      res.Content,
		ErrorMessage: res.ErrorMessage,
	}
}
