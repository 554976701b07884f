// Package tasks creates, edits and deletes task records.
package tasks

import (
	"context"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/tareas/internal/model"
)

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Input struct {
	Name    string
	DueDate time.Time
	OwnerID int64
}

type Service struct {
	repo  model.TaskRepository
	cache Invalidator
	log   lgr.L
	now   func() time.Time
}

// NewService creates the service. cache may be nil.
func NewService(repo model.TaskRepository, cache Invalidator, log lgr.L) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int) (*model.Task, error) {
	return s.repo.GetTaskByID(ctx, id)
}

// Create stores a new pending task. Identical tasks of the same owner are rejected
// with model.ErrDuplicateTask.
func (s *Service) Create(ctx context.Context, in Input) (*model.Task, error) {
	verr := &ValidationError{}
	name := validateName(in.Name, verr)
	due := model.TruncateDate(in.DueDate)
	validateDueDate(due, s.today(), MaxDueDate, verr)
	validateOwnerID(in.OwnerID, verr)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	task := model.NewTask(name, due, in.OwnerID)

	if err := s.repo.CreateUniqueTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Logf("[DEBUG] created task id=%d owner=%d", task.ID, task.OwnerID)
	s.invalidate(ctx)
	return task, nil
}

// Edit changes name, due date and owner. Status is kept and duplicates are not checked.
func (s *Service) Edit(ctx context.Context, id int, in Input) (*model.Task, error) {
	task, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	name := validateName(in.Name, verr)
	due := model.TruncateDate(in.DueDate)
	validateDueDate(due, s.today(), time.Time{}, verr)
	validateOwnerID(in.OwnerID, verr)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	task.Name = name
	task.DueDate = due
	task.OwnerID = in.OwnerID
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Logf("[DEBUG] updated task id=%d", task.ID)
	s.invalidate(ctx)
	return task, nil
}

// Delete removes the task. Deleting a missing task is not an error.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.RemoveTask(ctx, id); err != nil {
		return err
	}
	s.log.Logf("[DEBUG] removed task id=%d", id)
	s.invalidate(ctx)
	return nil
}

func (s *Service) today() time.Time {
	return model.TruncateDate(s.now())
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Logf("[WARN] could not invalidate task cache: %v", err)
	}
}
