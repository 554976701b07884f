package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/tareas/internal/httpapi"
	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/model"
	"github.com/agalitsyn/tareas/internal/storage/sqlite"
	"github.com/agalitsyn/tareas/internal/tasks"
)

type env struct {
	srv  *httptest.Server
	repo *sqlite.TaskStorage
}

func setup(t *testing.T) env {
	t.Helper()
	db, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewTaskStorage(db)
	lister := listing.NewLister(repo, lgr.NoOp, nil)
	svc := tasks.NewService(repo, nil, lgr.NoOp)
	srv := httptest.NewServer(httpapi.NewServer(lister, svc, lgr.NoOp).Routes())
	t.Cleanup(srv.Close)
	return env{srv: srv, repo: repo}
}

func (e env) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, e.srv.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	return v
}

func (e env) insert(t *testing.T, name, due string, status model.Status) int {
	t.Helper()
	d, err := model.ParseDate(due)
	if err != nil {
		t.Fatal(err)
	}
	task := model.NewTask(name, d, 1)
	task.Status = status
	if err := e.repo.CreateTask(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	return task.ID
}

func TestListActive(t *testing.T) {
	e := setup(t)
	for i := 1; i <= 7; i++ {
		e.insert(t, fmt.Sprintf("Tarea pendiente %d", i), fmt.Sprintf("2099-01-%02d", 10-i), model.StatusPending)
	}
	e.insert(t, "Tarea finalizada", "2099-01-01", model.StatusFinished)

	resp := e.do(t, http.MethodGet, "/tareas?pagina=2&cantidadRegistrosPorPagina=5", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decode[listing.Page](t, resp)

	if page.Total != 7 || page.TotalPages != 2 || page.CurrentPage != 2 {
		t.Errorf("page = %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].Name != "Tarea pendiente 2" || page.Items[1].Name != "Tarea pendiente 1" {
		t.Errorf("items = %+v", page.Items)
	}
	if !page.HasPrevPage || page.HasNextPage {
		t.Errorf("prev/next = %v/%v", page.HasPrevPage, page.HasNextPage)
	}
	if got, want := resp.Header.Get("Link"), `</tareas?cantidadRegistrosPorPagina=5&pagina=1>; rel="prev"`; got != want {
		t.Errorf("Link = %q, want %q", got, want)
	}
}

func TestListLinksKeepSearchTerm(t *testing.T) {
	e := setup(t)
	for i := 1; i <= 3; i++ {
		e.insert(t, fmt.Sprintf("Informe semanal %d", i), fmt.Sprintf("2099-03-%02d", i), model.StatusPending)
	}

	resp := e.do(t, http.MethodGet, "/tareas?q=informe&cantidadRegistrosPorPagina=1&pagina=2", "")
	want := `</tareas?cantidadRegistrosPorPagina=1&pagina=1&q=informe>; rel="prev", ` +
		`</tareas?cantidadRegistrosPorPagina=1&pagina=3&q=informe>; rel="next"`
	if got := resp.Header.Get("Link"); got != want {
		t.Errorf("Link = %q, want %q", got, want)
	}

	resp = e.do(t, http.MethodGet, "/tareas?q=nada", "")
	if got := resp.Header.Get("Link"); got != "" {
		t.Errorf("single page Link = %q, want none", got)
	}
}

func TestListFinishedWithSearch(t *testing.T) {
	e := setup(t)
	e.insert(t, "Informe de ventas", "2099-02-01", model.StatusFinished)
	e.insert(t, "Revisar el informe", "2099-02-02", model.StatusFinished)
	e.insert(t, "Informe pendiente", "2099-02-03", model.StatusPending)

	resp := e.do(t, http.MethodGet, "/tareas/finalizadas?q=INFÓRME", "")
	page := decode[listing.Page](t, resp)

	if page.Total != 2 {
		t.Fatalf("Total = %d, want 2", page.Total)
	}
	if page.Items[0].Name != "Informe de ventas" {
		t.Errorf("first = %q, want prefix match first", page.Items[0].Name)
	}
	if page.SearchTerm != "INFÓRME" {
		t.Errorf("SearchTerm = %q", page.SearchTerm)
	}
}

func TestCreateGetEditDelete(t *testing.T) {
	e := setup(t)

	resp := e.do(t, http.MethodPost, "/tareas",
		`{"nombreTarea":"Organizar la biblioteca","fechaVencimientoTarea":"2099-05-01","idUsuario":8}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decode[model.Task](t, resp)
	if created.ID == 0 || created.Status != model.StatusPending {
		t.Fatalf("created = %+v", created)
	}

	resp = e.do(t, http.MethodPost, "/tareas",
		`{"nombreTarea":"organizar la BIBLIOTECA","fechaVencimientoTarea":"2099-05-01","idUsuario":8}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", resp.StatusCode)
	}

	path := fmt.Sprintf("/tareas/%d", created.ID)
	resp = e.do(t, http.MethodGet, path, "")
	if got := decode[model.Task](t, resp); got.Name != "Organizar la biblioteca" {
		t.Errorf("get = %+v", got)
	}

	resp = e.do(t, http.MethodPut, path,
		`{"nombreTarea":"Organizar el archivo","fechaVencimientoTarea":"2099-06-01","idUsuario":9}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status = %d", resp.StatusCode)
	}
	if got := decode[model.Task](t, resp); got.Name != "Organizar el archivo" || got.OwnerID != 9 {
		t.Errorf("edited = %+v", got)
	}

	resp = e.do(t, http.MethodDelete, path, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = e.do(t, http.MethodGet, path, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestCreateValidation(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"short name", `{"nombreTarea":"corto","fechaVencimientoTarea":"2099-01-01","idUsuario":1}`, tasks.FieldName},
		{"bad date", `{"nombreTarea":"Nombre suficiente","fechaVencimientoTarea":"01/01/2099","idUsuario":1}`, tasks.FieldDueDate},
		{"no owner", `{"nombreTarea":"Nombre suficiente","fechaVencimientoTarea":"2099-01-01"}`, tasks.FieldOwnerID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.do(t, http.MethodPost, "/tareas", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			body := decode[struct {
				Fields map[string]string `json:"fields"`
			}](t, resp)
			if _, ok := body.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", body.Fields, tt.field)
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	e := setup(t)

	if resp := e.do(t, http.MethodPost, "/tareas", `{not json`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json status = %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodGet, "/tareas/abc", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodPut, "/tareas/77", `{"nombreTarea":"Nombre suficiente","fechaVencimientoTarea":"2099-01-01","idUsuario":1}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("edit missing status = %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	db, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	repo := sqlite.NewTaskStorage(db)

	srv := httpapi.NewServer(listing.NewLister(repo, lgr.NoOp, nil), tasks.NewService(repo, nil, lgr.NoOp), lgr.NoOp).
		WithHealthCheck("database", db.PingContext).
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }).
		WithMetrics(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["database"] != "up" || body["redis"] != "down" || body["status"] != "degraded" {
		t.Errorf("body = %v", body)
	}
}

type failingSource struct{}

func (failingSource) FetchByStatus(context.Context, model.StatusSet) ([]model.Task, error) {
	return nil, errors.New("database unavailable")
}

func TestListDegradesOnStoreFailure(t *testing.T) {
	srv := httpapi.NewServer(listing.NewLister(failingSource{}, lgr.NoOp, nil), nil, lgr.NoOp)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tareas?pagina=4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var page listing.Page
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.TotalPages != 1 || page.PageWindowStart != 1 || page.PageWindowEnd != 1 || len(page.Items) != 0 {
		t.Errorf("page = %+v", page)
	}
}
