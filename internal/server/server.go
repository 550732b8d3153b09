// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fbastos/demandboard/internal/activity"
	"github.com/fbastos/demandboard/internal/handler"
	"github.com/fbastos/demandboard/internal/realtime"
	"github.com/fbastos/demandboard/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Store    *store.Store
	Activity activity.Store
	Hub      *realtime.Hub
}

// Router builds the chi router with all routes registered.
func Router(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	th := handler.NewTemplateHandler(cfg.Store)
	dh := handler.NewDemandHandler(cfg.Store, cfg.Activity)
	bh := handler.NewBoardHandler(cfg.Store)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/templates", func(r chi.Router) {
			r.Post("/", th.CreateTemplate)
			r.Get("/", th.ListTemplates)
			r.Get("/{id}", th.GetTemplate)
			r.Patch("/{id}", th.UpdateTemplate)
			r.Delete("/{id}", th.DeleteTemplate)
			r.Post("/{id}/form", th.FormView)
		})

		r.Route("/demands", func(r chi.Router) {
			r.Post("/", dh.CreateDemand)
			r.Get("/", dh.ListDemands)
			r.Get("/{id}", dh.GetDemand)
			r.Patch("/{id}", dh.UpdateDemand)
			r.Delete("/{id}", dh.DeleteDemand)
			r.Post("/{id}/status", dh.ChangeStatus)
			r.Post("/{id}/replicas", dh.ChangeReplicas)
			r.Post("/{id}/tasks/{taskID}/complete", dh.CompleteTask)
			r.Post("/{id}/tasks/{taskID}/reopen", dh.ReopenTask)
			r.Get("/{id}/activity", dh.Activity)
		})

		r.Get("/board", bh.Board)

		if cfg.Hub != nil {
			r.Get("/ws", cfg.Hub.ServeHTTP)
		}
	})

	return r
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: Router(cfg),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	return srv.ListenAndServe()
}
