package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/model"
	"github.com/agalitsyn/tareas/internal/tasks"
)

func (s *Server) listHandler(flow listing.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := s.lister.List(r.Context(), flow, listing.ParseQuery(r.URL.Query()))
		if link := pageLinks(r.URL.Path, page); link != "" {
			w.Header().Set("Link", link)
		}
		writeJSON(w, page)
	}
}

// pageLinks builds a Link header pointing at the neighbouring pages.
func pageLinks(path string, p listing.Page) string {
	var links []string
	add := func(rel string, n int) {
		q := listing.Query{Page: n, PageSize: p.PageSize, Term: p.SearchTerm}
		links = append(links, fmt.Sprintf(`<%s?%s>; rel="%s"`, path, q.Values().Encode(), rel))
	}
	if p.HasPrevPage {
		add("prev", p.CurrentPage-1)
	}
	if p.HasNextPage {
		add("next", p.CurrentPage+1)
	}
	return strings.Join(links, ", ")
}

var errBadBody = errors.New("invalid request body")

type taskRequest struct {
	Name    string `json:"nombreTarea"`
	DueDate string `json:"fechaVencimientoTarea"`
	OwnerID int64  `json:"idUsuario"`
}

func decodeTaskInput(r *http.Request) (tasks.Input, error) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return tasks.Input{}, fmt.Errorf("%w: %v", errBadBody, err)
	}
	in := tasks.Input{Name: req.Name, OwnerID: req.OwnerID}
	if req.DueDate != "" {
		due, err := model.ParseDate(req.DueDate)
		if err != nil {
			return tasks.Input{}, &tasks.ValidationError{Fields: map[string]string{
				tasks.FieldDueDate: "Formato de fecha inválido, use AAAA-MM-DD.",
			}}
		}
		in.DueDate = due
	}
	return in, nil
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	in, err := decodeTaskInput(r)
	if err != nil {
		s.handleTaskError(w, err)
		return
	}
	task, err := s.tasks.Create(r.Context(), in)
	if err != nil {
		s.handleTaskError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.handleTaskError(w, err)
		return
	}
	writeJSON(w, task)
}

func (s *Server) editTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	in, err := decodeTaskInput(r)
	if err != nil {
		s.handleTaskError(w, err)
		return
	}
	task, err := s.tasks.Edit(r.Context(), id, in)
	if err != nil {
		s.handleTaskError(w, err)
		return
	}
	writeJSON(w, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.tasks.Delete(r.Context(), id); err != nil {
		s.handleTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleTaskError(w http.ResponseWriter, err error) {
	var verr *tasks.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSONStatus(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, errBadBody):
		writeErr(w, http.StatusBadRequest, errBadBody.Error())
	case errors.Is(err, model.ErrTaskNotFound):
		writeErr(w, http.StatusNotFound, "task not found")
	case errors.Is(err, model.ErrDuplicateTask):
		writeErr(w, http.StatusConflict, "Ya existe una tarea exactamente igual con el mismo nombre, fecha, estado y usuario.")
	default:
		s.log.Logf("[ERROR] task request failed: %v", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
