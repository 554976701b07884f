package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agalitsyn/tareas/internal/model"
)

type TaskStorage struct {
	db *sql.DB
}

func NewTaskStorage(db *sql.DB) *TaskStorage {
	return &TaskStorage{db: db}
}

const taskColumns = `id, nombre, fecha_vencimiento, estado, id_usuario`

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *model.Task) error {
	return insertTask(ctx, s.db, task)
}

// CreateUniqueTask checks for a duplicate and inserts the task inside one
// BEGIN IMMEDIATE transaction, so concurrent creators are serialized by the
// database write lock. It returns model.ErrDuplicateTask when an identical task exists.
func (s *TaskStorage) CreateUniqueTask(ctx context.Context, task *model.Task) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("could not get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if _, rbErr := conn.ExecContext(context.Background(), `ROLLBACK`); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("could not rollback: %w", rbErr))
			}
		}
	}()

	dup, err := existsDuplicate(ctx, conn, task)
	if err != nil {
		return err
	}
	if dup {
		return model.ErrDuplicateTask
	}
	if err := insertTask(ctx, conn, task); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func insertTask(ctx context.Context, q querier, task *model.Task) error {
	query := `
		INSERT INTO tareas (nombre, fecha_vencimiento, estado, id_usuario, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	result, err := q.ExecContext(ctx, query,
		task.Name,
		task.DueDate.Format(model.DateLayout),
		string(task.Status),
		task.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not get last insert id: %w", err)
	}

	task.ID = int(id)
	return nil
}

func (s *TaskStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tareas
		SET nombre = ?, fecha_vencimiento = ?, estado = ?, id_usuario = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Name,
		task.DueDate.Format(model.DateLayout),
		string(task.Status),
		task.OwnerID,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStorage) RemoveTask(ctx context.Context, id int) error {
	query := `DELETE FROM tareas WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("could not remove task: %w", err)
	}
	return nil
}

// FetchByStatus returns tasks whose status matches any member of statuses, ignoring case.
// An empty set matches nothing.
func (s *TaskStorage) FetchByStatus(ctx context.Context, statuses model.StatusSet) ([]model.Task, error) {
	keys := statuses.Keys()
	if len(keys) == 0 {
		return []model.Task{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	query := `SELECT ` + taskColumns + ` FROM tareas WHERE LOWER(estado) IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not fetch tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate tasks: %w", err)
	}

	return tasks, nil
}

func (s *TaskStorage) GetTaskByID(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tareas WHERE id = ?`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ExistsDuplicate reports whether a task with the same owner, due date, status and
// case-insensitive trimmed name is already stored. Names are compared in Go because
// SQLite's LOWER only folds ASCII.
func (s *TaskStorage) ExistsDuplicate(ctx context.Context, task *model.Task) (bool, error) {
	return existsDuplicate(ctx, s.db, task)
}

func existsDuplicate(ctx context.Context, q querier, task *model.Task) (bool, error) {
	query := `
		SELECT nombre FROM tareas
		WHERE id_usuario = ? AND fecha_vencimiento = ? AND LOWER(estado) = ?
	`
	rows, err := q.QueryContext(ctx, query,
		task.OwnerID,
		task.DueDate.Format(model.DateLayout),
		task.Status.Key(),
	)
	if err != nil {
		return false, fmt.Errorf("could not check duplicate task: %w", err)
	}
	defer rows.Close()

	want := strings.ToLower(strings.TrimSpace(task.Name))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("could not scan task name: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(name)) == want {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("could not iterate task names: %w", err)
	}
	return false, nil
}

func (s *TaskStorage) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tareas`).Scan(&count); err != nil {
		return 0, fmt.Errorf("could not count tasks: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var task model.Task
	var dueDate, status string

	err := row.Scan(
		&task.ID,
		&task.Name,
		&dueDate,
		&status,
		&task.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("could not scan task: %w", err)
	}

	task.Status = model.Status(status)
	task.DueDate, err = model.ParseDate(dueDate)
	if err != nil {
		return nil, fmt.Errorf("could not parse due date of task %d: %w", task.ID, err)
	}
	return &task, nil
}
