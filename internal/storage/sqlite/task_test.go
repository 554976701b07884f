package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/tareas/internal/model"
)

func newTestStorage(t *testing.T) (*TaskStorage, *sql.DB) {
	t.Helper()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskStorage(db), db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTaskStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	task := model.NewTask("Preparar informe anual", date(2031, time.May, 4), 42)
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	got, err := s.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if got.Name != task.Name || !got.DueDate.Equal(task.DueDate) || got.Status != model.StatusPending || got.OwnerID != 42 {
		t.Errorf("GetTaskByID = %+v, want %+v", got, task)
	}

	got.Name = "Preparar informe semestral"
	got.DueDate = date(2031, time.June, 1)
	if err := s.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	updated, err := s.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if updated.Name != "Preparar informe semestral" || !updated.DueDate.Equal(date(2031, time.June, 1)) {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := s.RemoveTask(ctx, task.ID); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if _, err := s.GetTaskByID(ctx, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("GetTaskByID after remove err = %v, want ErrTaskNotFound", err)
	}
	if err := s.RemoveTask(ctx, task.ID); err != nil {
		t.Errorf("RemoveTask of missing id: %v", err)
	}
}

func TestTaskStorage_UpdateMissing(t *testing.T) {
	s, _ := newTestStorage(t)
	err := s.UpdateTask(context.Background(), &model.Task{ID: 999, Name: "nombre largo", DueDate: date(2031, 1, 1)})
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskStorage_FetchByStatus(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStorage(t)

	for _, tt := range []struct {
		name   string
		status string
	}{
		{"tarea pendiente uno", "Pendiente"},
		{"tarea pendiente dos", "PENDIENTE"},
		{"tarea en curso", "en curso"},
		{"tarea terminada", "Finalizado"},
	} {
		_, err := db.ExecContext(ctx,
			`INSERT INTO tareas (nombre, fecha_vencimiento, estado, id_usuario) VALUES (?, ?, ?, ?)`,
			tt.name, "2031-01-10", tt.status, 1)
		if err != nil {
			t.Fatal(err)
		}
	}

	active, err := s.FetchByStatus(ctx, model.NewStatusSet(model.StatusPending, model.StatusInProgress))
	if err != nil {
		t.Fatalf("FetchByStatus: %v", err)
	}
	if len(active) != 3 {
		t.Errorf("active = %d tasks, want 3", len(active))
	}

	finished, err := s.FetchByStatus(ctx, model.NewStatusSet(model.StatusFinished))
	if err != nil {
		t.Fatalf("FetchByStatus: %v", err)
	}
	if len(finished) != 1 || finished[0].Name != "tarea terminada" {
		t.Errorf("finished = %+v", finished)
	}
	if !finished[0].DueDate.Equal(date(2031, time.January, 10)) {
		t.Errorf("DueDate = %v", finished[0].DueDate)
	}

	none, err := s.FetchByStatus(ctx, model.NewStatusSet())
	if err != nil || len(none) != 0 {
		t.Errorf("empty set = %v, %v", none, err)
	}
}

func TestTaskStorage_ExistsDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	orig := model.NewTask("Revisar Facturación", date(2031, time.March, 3), 7)
	if err := s.CreateTask(ctx, orig); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		task *model.Task
		want bool
	}{
		{"same name different case", model.NewTask("  revisar facturación ", date(2031, time.March, 3), 7), true},
		{"other owner", model.NewTask("Revisar Facturación", date(2031, time.March, 3), 8), false},
		{"other date", model.NewTask("Revisar Facturación", date(2031, time.March, 4), 7), false},
		{"other name", model.NewTask("Revisar Facturas", date(2031, time.March, 3), 7), false},
		{"other status", &model.Task{Name: "Revisar Facturación", DueDate: date(2031, time.March, 3), Status: model.StatusFinished, OwnerID: 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ExistsDuplicate(ctx, tt.task)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExistsDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskStorage_CreateUniqueTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	first := model.NewTask("Pagar el alquiler", date(2031, time.May, 1), 3)
	if err := s.CreateUniqueTask(ctx, first); err != nil {
		t.Fatalf("CreateUniqueTask: %v", err)
	}
	if first.ID == 0 {
		t.Error("ID not assigned")
	}

	again := model.NewTask(" PAGAR EL ALQUILER", date(2031, time.May, 1), 3)
	if err := s.CreateUniqueTask(ctx, again); !errors.Is(err, model.ErrDuplicateTask) {
		t.Errorf("err = %v, want ErrDuplicateTask", err)
	}

	// the rolled back transaction must leave the connection usable
	other := model.NewTask("Pagar el alquiler", date(2031, time.May, 2), 3)
	if err := s.CreateUniqueTask(ctx, other); err != nil {
		t.Errorf("CreateUniqueTask after rollback: %v", err)
	}
	if count, _ := s.CountTasks(ctx); count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestTaskStorage_CreateUniqueTaskConcurrent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tareas.db"))
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewTaskStorage(db)

	const workers = 20
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		dups    atomic.Int32
		errs    = make(chan error, workers)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := model.NewTask("Renovar el seguro", date(2031, time.June, 1), 9)
			err := s.CreateUniqueTask(ctx, task)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, model.ErrDuplicateTask):
				dups.Add(1)
			default:
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	if created.Load() != 1 || dups.Load() != workers-1 {
		t.Errorf("created=%d duplicates=%d, want 1/%d", created.Load(), dups.Load(), workers-1)
	}
	if count, _ := s.CountTasks(ctx); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)
	now := date(2030, time.July, 15)

	if err := Seed(ctx, s, now, lgr.NoOp); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	count, err := s.CountTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != len(seedTasks) {
		t.Errorf("count = %d, want %d", count, len(seedTasks))
	}

	if err := Seed(ctx, s, now, lgr.NoOp); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	again, _ := s.CountTasks(ctx)
	if again != count {
		t.Errorf("second seed inserted rows: %d != %d", again, count)
	}
}
