package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agalitsyn/tareas/internal/model"
)

// Rank filters and orders candidates for the given raw term. The input slice is not modified.
//
// With a blank term every candidate is kept, ordered by due date then id.
// Otherwise only candidates whose normalized name contains the normalized term survive,
// ordered by relevance key then id.
func Rank(candidates []model.Task, term string) []model.Task {
	query := Normalize(strings.TrimSpace(term))
	if query == "" {
		out := slices.Clone(candidates)
		slices.SortFunc(out, func(a, b model.Task) int {
			if c := a.DueDate.Compare(b.DueDate); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		return out
	}

	type scored struct {
		task model.Task
		key  Key
	}
	matches := make([]scored, 0, len(candidates))
	for _, t := range candidates {
		name := Normalize(t.Name)
		if !strings.Contains(name, query) {
			continue
		}
		matches = append(matches, scored{task: t, key: Score(name, query)})
	}

	slices.SortFunc(matches, func(a, b scored) int {
		if c := a.key.Compare(b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.task.ID, b.task.ID)
	})

	out := make([]model.Task, len(matches))
	for i, m := range matches {
		out[i] = m.task
	}
	return out
}
