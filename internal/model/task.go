package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a due date.
const DateLayout = "2006-01-02"

type Task struct {
	ID      int
	Name    string
	DueDate time.Time
	Status  Status
	OwnerID int64
}

func NewTask(name string, dueDate time.Time, ownerID int64) *Task {
	return &Task{
		Name:    name,
		DueDate: TruncateDate(dueDate),
		Status:  StatusPending,
		OwnerID: ownerID,
	}
}

type taskJSON struct {
	ID      int    `json:"id"`
	Name    string `json:"nombreTarea"`
	DueDate string `json:"fechaVencimientoTarea"`
	Status  Status `json:"estadoTarea"`
	OwnerID int64  `json:"idUsuario"`
}

// MarshalJSON writes the due date as a plain calendar date.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{
		ID:      t.ID,
		Name:    t.Name,
		DueDate: t.DueDate.Format(DateLayout),
		Status:  t.Status,
		OwnerID: t.OwnerID,
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var v taskJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	due, err := ParseDate(v.DueDate)
	if err != nil {
		return err
	}
	*t = Task{ID: v.ID, Name: v.Name, DueDate: due, Status: v.Status, OwnerID: v.OwnerID}
	return nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// TruncateDate returns the calendar date of t at midnight UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Status string

const (
	StatusPending    Status = "Pendiente"
	StatusInProgress Status = "En curso"
	StatusFinished   Status = "Finalizado"
)

// Key is the case-insensitive comparison form of the status.
func (s Status) Key() string {
	return strings.ToLower(strings.TrimSpace(string(s)))
}

func (s Status) Equal(other Status) bool {
	return s.Key() == other.Key()
}

// StatusSet is a set of statuses compared case-insensitively.
type StatusSet map[string]struct{}

func NewStatusSet(statuses ...Status) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s.Key()] = struct{}{}
	}
	return set
}

func (s StatusSet) Contains(status Status) bool {
	_, ok := s[status.Key()]
	return ok
}

// Keys returns the lower-cased members in lexical order.
func (s StatusSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s StatusSet) String() string {
	return strings.Join(s.Keys(), ",")
}

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("task already exists")
)

type TaskRepository interface {
	FetchByStatus(ctx context.Context, statuses StatusSet) ([]Task, error)
	GetTaskByID(ctx context.Context, id int) (*Task, error)
	// CreateUniqueTask stores task unless an identical one exists, in which case it
	// returns ErrDuplicateTask. The check and the insert are atomic.
	CreateUniqueTask(ctx context.Context, task *Task) error
	UpdateTask(ctx context.Context, task *Task) error
	RemoveTask(ctx context.Context, id int) error
}
