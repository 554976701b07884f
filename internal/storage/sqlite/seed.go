package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/tareas/internal/model"
)

type seedTask struct {
	name   string
	days   int
	status model.Status
	owner  int64
}

var seedTasks = []seedTask{
	{"Comprar materiales de oficina", 1, model.StatusPending, 1},
	{"Preparar informe trimestral", 3, model.StatusInProgress, 1},
	{"Revisar contrato de alquiler", 5, model.StatusPending, 2},
	{"Planificar reunión de equipo", 2, model.StatusPending, 2},
	{"Actualizar inventario del almacén", 7, model.StatusInProgress, 3},
	{"Llamar al técnico de la caldera", 0, model.StatusPending, 3},
	{"Organizar archivo de facturas", 10, model.StatusPending, 1},
	{"Renovar pasaporte en la comisaría", 30, model.StatusPending, 4},
	{"Enviar presupuesto al cliente", -2, model.StatusFinished, 2},
	{"Corregir exámenes de matemáticas", -5, model.StatusFinished, 4},
	{"Pagar factura de electricidad", -1, model.StatusFinished, 1},
	{"Tarea de limpieza semanal", -7, model.StatusFinished, 3},
}

// Seed fills an empty tareas table with demo data. Due dates are relative to now.
func Seed(ctx context.Context, s *TaskStorage, now time.Time, log lgr.L) error {
	count, err := s.CountTasks(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Logf("[DEBUG] skip seeding, %d tasks present", count)
		return nil
	}

	today := model.TruncateDate(now)
	for _, st := range seedTasks {
		task := model.NewTask(st.name, today.AddDate(0, 0, st.days), st.owner)
		task.Status = st.status
		if err := s.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("could not seed task %q: %w", st.name, err)
		}
	}
	log.Logf("[INFO] seeded %d tasks", len(seedTasks))
	return nil
}
