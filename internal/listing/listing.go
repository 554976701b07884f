// Package listing builds one page of ranked tasks for the active and finished views.
package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/tareas/internal/model"
	"github.com/agalitsyn/tareas/internal/pagination"
	"github.com/agalitsyn/tareas/internal/search"
)

// Source returns every task whose status is in the set, in no particular order.
type Source interface {
	FetchByStatus(ctx context.Context, statuses model.StatusSet) ([]model.Task, error)
}

type Observer interface {
	ObserveListing(flow, outcome string, elapsed time.Duration)
}

const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
)

type Flow struct {
	Name     string
	Statuses model.StatusSet
}

var (
	Active   = Flow{Name: "activas", Statuses: model.NewStatusSet(model.StatusPending, model.StatusInProgress)}
	Finished = Flow{Name: "finalizadas", Statuses: model.NewStatusSet(model.StatusFinished)}
)

func FlowByName(name string) (Flow, bool) {
	switch name {
	case Active.Name:
		return Active, true
	case Finished.Name:
		return Finished, true
	default:
		return Flow{}, false
	}
}

type Page struct {
	CurrentPage     int          `json:"currentPage"`
	TotalPages      int          `json:"totalPages"`
	PageWindowStart int          `json:"pageWindowStart"`
	PageWindowEnd   int          `json:"pageWindowEnd"`
	HasPrevPage     bool         `json:"hasPrevPage"`
	HasNextPage     bool         `json:"hasNextPage"`
	PageSize        int          `json:"pageSize"`
	SearchTerm      string       `json:"searchTerm"`
	Total           int          `json:"total"`
	Items           []model.Task `json:"items"`
}

// Window lists the page numbers to offer for navigation.
func (p Page) Window() []int {
	pages := make([]int, 0, p.PageWindowEnd-p.PageWindowStart+1)
	for n := p.PageWindowStart; n <= p.PageWindowEnd; n++ {
		pages = append(pages, n)
	}
	return pages
}

func newPage(pager pagination.Pager, term string, items []model.Task) Page {
	return Page{
		CurrentPage:     pager.Current,
		TotalPages:      pager.TotalPages,
		PageWindowStart: pager.WindowStart,
		PageWindowEnd:   pager.WindowEnd,
		HasPrevPage:     pager.HasPrev,
		HasNextPage:     pager.HasNext,
		PageSize:        pager.PageSize,
		SearchTerm:      term,
		Total:           pager.Total,
		Items:           items,
	}
}

type Lister struct {
	source   Source
	log      lgr.L
	observer Observer
}

// NewLister creates a lister over source. logger and observer may be nil.
func NewLister(source Source, logger lgr.L, observer Observer) *Lister {
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Lister{
		source:   source,
		log:      logger,
		observer: observer,
	}
}

// List never fails: any retrieval error or panic degrades to an empty single page.
func (l *Lister) List(ctx context.Context, flow Flow, query Query) (page Page) {
	started := time.Now()
	q := query.Clean()
	outcome := OutcomeOK

	defer func() {
		if r := recover(); r != nil {
			l.log.Logf("[ERROR] listing %s panicked: %v", flow.Name, r)
			page = emptyPage(q)
			outcome = OutcomeDegraded
		}
		if l.observer != nil {
			l.observer.ObserveListing(flow.Name, outcome, time.Since(started))
		}
	}()

	page, err := l.list(ctx, flow, q)
	if err != nil {
		l.log.Logf("[WARN] listing %s degraded to empty page: %v", flow.Name, err)
		outcome = OutcomeDegraded
		return emptyPage(q)
	}
	return page
}

func (l *Lister) list(ctx context.Context, flow Flow, q Query) (Page, error) {
	if l.source == nil {
		return Page{}, errors.New("no task source configured")
	}

	candidates, err := l.source.FetchByStatus(ctx, flow.Statuses)
	if err != nil {
		return Page{}, fmt.Errorf("could not fetch tasks: %w", err)
	}

	ranked := search.Rank(candidates, q.Term)

	pager := pagination.Calculate(len(ranked), q.PageSize, q.Page)
	lo, hi := pager.Bounds(len(ranked))
	items := make([]model.Task, hi-lo)
	copy(items, ranked[lo:hi])

	l.log.Logf("[DEBUG] listing %s: term=%q candidates=%d matches=%d page=%d/%d",
		flow.Name, q.Term, len(candidates), len(ranked), pager.Current, pager.TotalPages)

	return newPage(pager, q.Term, items), nil
}

func emptyPage(q Query) Page {
	return newPage(pagination.Empty(q.PageSize), q.Term, []model.Task{})
}
