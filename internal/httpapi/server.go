// Package httpapi exposes task listings and task editing over HTTP as JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/model"
	"github.com/agalitsyn/tareas/internal/tasks"
	"github.com/agalitsyn/tareas/version"
)

type Lister interface {
	List(ctx context.Context, flow listing.Flow, q listing.Query) listing.Page
}

type TaskService interface {
	Get(ctx context.Context, id int) (*model.Task, error)
	Create(ctx context.Context, in tasks.Input) (*model.Task, error)
	Edit(ctx context.Context, id int, in tasks.Input) (*model.Task, error)
	Delete(ctx context.Context, id int) error
}

// HealthCheck reports an unhealthy dependency.
type HealthCheck func(ctx context.Context) error

type Server struct {
	lister  Lister
	tasks   TaskService
	metrics http.Handler
	checks  map[string]HealthCheck
	log     lgr.L
}

func NewServer(lister Lister, svc TaskService, log lgr.L) *Server {
	return &Server{
		lister: lister,
		tasks:  svc,
		checks: map[string]HealthCheck{},
		log:    log,
	}
}

func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

func (s *Server) WithHealthCheck(name string, check HealthCheck) *Server {
	s.checks[name] = check
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/version", s.version)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/tareas", func(r chi.Router) {
		r.Get("/", s.listHandler(listing.Active))
		r.Get("/finalizadas", s.listHandler(listing.Finished))
		r.Post("/", s.createTask)
		r.Get("/{id}", s.getTask)
		r.Put("/{id}", s.editTask)
		r.Delete("/{id}", s.deleteTask)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Logf("[DEBUG] %s %s %d %s req=%s", r.Method, r.URL.RequestURI(), ww.Status(),
			time.Since(started), middleware.GetReqID(r.Context()))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			s.log.Logf("[WARN] health check %s failed: %v", name, err)
			status[name] = "down"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "up"
	}
	writeJSONStatus(w, code, status)
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"version": version.String(), "build": version.Get()})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSONStatus(w, code, map[string]string{"error": msg})
}
