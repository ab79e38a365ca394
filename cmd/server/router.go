package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apiMiddleware "github.com/mbarlow/lectern-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware. Task endpoints require a caller identity; the legacy
// synchronous generation endpoint does not.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.IdentityMiddleware)

			r.Post("/content/generate-async", app.taskHandler.CreateGenerateTask)
			r.Post("/content/search-async", app.taskHandler.CreatePDFAlignTask)
			r.Post("/content/search-with-copyright-async", app.taskHandler.CreatePDFCopyrightTask)

			r.Get("/tasks", app.taskHandler.ListTasks)
			r.Get("/tasks/{taskID}/status", app.taskHandler.GetTaskStatus)
			r.Get("/tasks/{taskID}/result", app.taskHandler.GetTaskResult)
			r.Delete("/tasks/{taskID}", app.taskHandler.CancelTask)
		})

		// Legacy synchronous path, kept for callers that have not moved
		// to the task endpoints. Runs outside admission control.
		r.Post("/content/generate", app.contentHandler.Generate)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
